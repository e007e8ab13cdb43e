package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gallery/internal/model"
	"gallery/internal/queue"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishStatsRequest(ctx context.Context, req queue.StatsRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBeforeCreate(t *testing.T) {
	hooks := New(func() int { return 7 }, new(mockPublisher), discardLogger())

	u := &model.User{Username: "Jane Doe"}
	hooks.BeforeCreate(u)

	assert.Equal(t, 7, u.Nonce)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "jane-doe", u.Slug)
}

func TestBeforeCreate_KeepsExplicitID(t *testing.T) {
	hooks := New(nil, new(mockPublisher), discardLogger())
	id := uuid.New()

	u := &model.User{ID: id}
	hooks.BeforeCreate(u)

	assert.Equal(t, id, u.ID)
	assert.Empty(t, u.Slug)
	assert.GreaterOrEqual(t, u.Nonce, 0)
	assert.Less(t, u.Nonce, NonceCeiling)
}

func TestSharedNonce_IsStable(t *testing.T) {
	nonce := SharedNonce()
	hooks := New(nonce, new(mockPublisher), discardLogger())

	first, second := &model.User{}, &model.User{}
	hooks.BeforeCreate(first)
	hooks.BeforeCreate(second)

	assert.Equal(t, first.Nonce, second.Nonce)
	assert.Less(t, first.Nonce, NonceCeiling)
}

func TestRandomNonce_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n := RandomNonce()
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, NonceCeiling)
	}
}

func TestAfterCreate(t *testing.T) {
	tests := []struct {
		name      string
		userType  string
		publishes bool
	}{
		{name: "collector is enqueued", userType: model.UserTypeCollector, publishes: true},
		{name: "artist is not", userType: model.UserTypeArtist},
		{name: "untyped is not", userType: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(mockPublisher)
			u := &model.User{ID: uuid.New(), Type: tt.userType, EthereumAddress: "0xabc"}
			if tt.publishes {
				pub.On("PublishStatsRequest", mock.Anything, queue.StatsRequest{
					UserID:          u.ID.String(),
					EthereumAddress: "0xabc",
				}).Return(nil).Once()
			}

			New(nil, pub, discardLogger()).AfterCreate(context.Background(), u)

			pub.AssertExpectations(t)
			if !tt.publishes {
				pub.AssertNotCalled(t, "PublishStatsRequest", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAfterCreate_PublishErrorIsSwallowed(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishStatsRequest", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		New(nil, pub, discardLogger()).AfterCreate(context.Background(), &model.User{Type: model.UserTypeCollector})
	})
	pub.AssertExpectations(t)
}

func TestNonceMode(t *testing.T) {
	shared := NonceMode(true)
	first := shared()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, shared())
	}

	random := NonceMode(false)
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		seen[random()] = true
	}
	assert.Greater(t, len(seen), 1)
}
