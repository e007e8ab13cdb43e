package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gallery/internal/auth"
	"gallery/internal/errors"
	"gallery/internal/model"
	"gallery/internal/query"
	"gallery/internal/service"
)

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Add(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Fetch(ctx context.Context, id uuid.UUID, populate ...string) (*model.User, error) {
	args := m.Called(ctx, id, populate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) FetchByEthereumAddress(ctx context.Context, address string) (*model.User, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) FetchAll(ctx context.Context, params query.Params) ([]model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserService) Find(ctx context.Context, params query.Params, fields ...string) ([]model.User, error) {
	args := m.Called(ctx, params, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserService) Search(ctx context.Context, params query.Params) ([]model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserService) Count(ctx context.Context, params query.Params) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) CountSearch(ctx context.Context, params query.Params) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) Edit(ctx context.Context, id uuid.UUID, changes service.UserChanges) (*model.User, error) {
	args := m.Called(ctx, id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Remove(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) RemoveAll(ctx context.Context, ids []string) (*service.RemoveResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RemoveResult), args.Error(1)
}

type structValidator struct {
	v *validator.Validate
}

func (sv *structValidator) Validate(i interface{}) error {
	return sv.v.Struct(i)
}

type call struct {
	method string
	target string
	body   string
	params map[string]string
	claims *auth.Claims
}

// serve runs fn the way the router would and returns the recorded response.
func serve(t *testing.T, fn echo.HandlerFunc, in call) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = &structValidator{v: validator.New()}

	var body io.Reader
	if in.body != "" {
		body = strings.NewReader(in.body)
	}
	req := httptest.NewRequest(in.method, in.target, body)
	if in.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	for name, value := range in.params {
		c.SetParamNames(append(c.ParamNames(), name)...)
		c.SetParamValues(append(c.ParamValues(), value)...)
	}
	if in.claims != nil {
		c.Set(auth.ContextKey, in.claims)
	}

	if err := fn(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func newTestHandler(svc *MockUserService) *UserHandler {
	return NewUserHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func claimsFor(id uuid.UUID, role string) *auth.Claims {
	return &auth.Claims{UserID: id.String(), Email: "me@example.com", Role: role}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestFindOneByEthereumAddress_KeepsOnlyNonce(t *testing.T) {
	svc := new(MockUserService)
	svc.On("FetchByEthereumAddress", mock.Anything, "0xabc").Return(&model.User{
		ID:       uuid.New(),
		Email:    "a@b.com",
		Nonce:    42,
		Password: "hash",
	}, nil)

	rec := serve(t, newTestHandler(svc).FindOneByEthereumAddress, call{
		method: http.MethodGet,
		target: "/api/users/address/0xabc",
		params: map[string]string{"ethereumAddress": "0xabc"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nonce":42}`, rec.Body.String())
}

func TestFindOneByEthereumAddress_UnknownAddress(t *testing.T) {
	svc := new(MockUserService)
	svc.On("FetchByEthereumAddress", mock.Anything, "0xnone").Return(nil, errors.ErrUserNotFound)

	rec := serve(t, newTestHandler(svc).FindOneByEthereumAddress, call{
		method: http.MethodGet,
		target: "/api/users/address/0xnone",
		params: map[string]string{"ethereumAddress": "0xnone"},
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestFindOne(t *testing.T) {
	id := uuid.New()

	t.Run("sanitized", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Fetch", mock.Anything, id, []string(nil)).Return(&model.User{
			ID:                 id,
			Username:           "ada",
			Password:           "hash",
			ResetPasswordToken: "reset",
		}, nil)

		rec := serve(t, newTestHandler(svc).FindOne, call{
			method: http.MethodGet,
			target: "/api/users/" + id.String(),
			params: map[string]string{"id": id.String()},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ada", body["username"])
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "resetPasswordToken")
	})

	t.Run("absent", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Fetch", mock.Anything, id, []string(nil)).Return(nil, errors.ErrUserNotFound)

		rec := serve(t, newTestHandler(svc).FindOne, call{
			method: http.MethodGet,
			target: "/api/users/" + id.String(),
			params: map[string]string{"id": id.String()},
		})

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestFind_SearchOrFilter(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Search", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		return p.HasSearch && p.Search == "ada"
	})).Return([]model.User{{Username: "ada", Password: "hash"}}, nil)
	svc.On("FetchAll", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		return !p.HasSearch
	})).Return([]model.User{}, nil)
	h := newTestHandler(svc)

	rec := serve(t, h.Find, call{method: http.MethodGet, target: "/api/users?_q=ada"})
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "password")

	rec = serve(t, h.Find, call{method: http.MethodGet, target: "/api/users"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	svc.AssertExpectations(t)
}

func TestCount_SearchWritesSearchCount(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CountSearch", mock.Anything, mock.Anything).Return(int64(7), nil)

	rec := serve(t, newTestHandler(svc).Count, call{method: http.MethodGet, target: "/api/users/count?_q=x"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", strings.TrimSpace(rec.Body.String()))
	svc.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestMe_RequiresUser(t *testing.T) {
	h := newTestHandler(new(MockUserService))

	for name, fn := range map[string]echo.HandlerFunc{"me": h.Me, "updateMe": h.UpdateMe} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, fn, call{method: http.MethodGet, target: "/api/users/me"})

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{
				"statusCode": 400,
				"error": "Bad Request",
				"message": [{"messages": [{"id": "No authorization header was found"}]}],
				"data": [{"messages": [{"id": "No authorization header was found"}]}]
			}`, rec.Body.String())
		})
	}
}

func TestMe_PopulatesRelations(t *testing.T) {
	id := uuid.New()
	svc := new(MockUserService)
	svc.On("Fetch", mock.Anything, id, mePopulate).Return(&model.User{
		ID:           id,
		Username:     "me",
		Password:     "hash",
		PlacedOrders: []model.Order{{TxHash: "0xdeadbeef"}},
	}, nil)

	rec := serve(t, newTestHandler(svc).Me, call{
		method: http.MethodGet,
		target: "/api/users/me",
		claims: claimsFor(id, model.RoleAuthenticated),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body, "password")
	orders := body["placed_orders"].([]any)
	require.Len(t, orders, 1)
	assert.NotContains(t, orders[0].(map[string]any), "tx_hash")
	svc.AssertExpectations(t)
}

func TestUpdateMe_DefaultsLinksToEmpty(t *testing.T) {
	id := uuid.New()
	svc := new(MockUserService)
	svc.On("Edit", mock.Anything, id, mock.MatchedBy(func(c service.UserChanges) bool {
		return c.Bio != nil && *c.Bio == "hi" &&
			c.Links != nil && len(*c.Links) == 0 &&
			c.Username == nil && c.Role == nil
	})).Return(&model.User{ID: id, Bio: "hi"}, nil)

	rec := serve(t, newTestHandler(svc).UpdateMe, call{
		method: http.MethodPut,
		target: "/api/users/me",
		body:   `{"bio":"hi","username":"ignored","role":"admin"}`,
		claims: claimsFor(id, model.RoleAuthenticated),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDestroyAll_CapsAndSkipsSource(t *testing.T) {
	values := url.Values{}
	values.Set("source", "users-permissions")
	for i := 0; i < 150; i++ {
		values.Add("id_in", strconv.Itoa(i))
	}

	svc := new(MockUserService)
	svc.On("RemoveAll", mock.Anything, mock.MatchedBy(func(ids []string) bool {
		for _, id := range ids {
			if id == "users-permissions" {
				return false
			}
		}
		return len(ids) == service.RemoveAllLimit
	})).Return(&service.RemoveResult{Count: 0, IDs: []uuid.UUID{}}, nil)

	rec := serve(t, newTestHandler(svc).DestroyAll, call{
		method: http.MethodDelete,
		target: "/api/users?" + values.Encode(),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"ids":[]}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestDestroy_Absent(t *testing.T) {
	id := uuid.New()
	svc := new(MockUserService)
	svc.On("Remove", mock.Anything, id).Return(nil, errors.ErrUserNotFound)

	rec := serve(t, newTestHandler(svc).Destroy, call{
		method: http.MethodDelete,
		target: "/api/users/" + id.String(),
		params: map[string]string{"id": id.String()},
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetArtists(t *testing.T) {
	isArtistQuery := mock.MatchedBy(func(p query.Params) bool {
		return p.Where["type"] == model.UserTypeArtist
	})

	t.Run("none found", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Count", mock.Anything, isArtistQuery).Return(int64(0), nil)
		svc.On("Find", mock.Anything, isArtistQuery, artistFields).Return([]model.User{}, nil)

		rec := serve(t, newTestHandler(svc).GetArtists, call{method: http.MethodGet, target: "/api/users/artists?type=collector"})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "No artists found", body["message"])
	})

	t.Run("projected listing", func(t *testing.T) {
		id := uuid.New()
		svc := new(MockUserService)
		svc.On("Count", mock.Anything, isArtistQuery).Return(int64(12), nil)
		svc.On("Find", mock.Anything, isArtistQuery, artistFields).Return([]model.User{
			{ID: id, Username: "ada", Slug: "ada", ProfilePicture: "ada.png"},
		}, nil)

		rec := serve(t, newTestHandler(svc).GetArtists, call{method: http.MethodGet, target: "/api/users/artists?_limit=1"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"artists": [{"id": "`+id.String()+`", "username": "ada", "slug": "ada", "profile_picture": "ada.png"}],
			"count": 12
		}`, rec.Body.String())
	})
}

func TestCreate_Resolver(t *testing.T) {
	body := `{"username":"neo","email":"neo@example.com","password":"secret1","role":"admin","blocked":true}`

	t.Run("api forces authenticated role", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Add", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleAuthenticated && !u.Blocked
		})).Return(&model.User{Username: "neo", Password: "hash"}, nil)

		rec := serve(t, newTestHandler(svc).Create, call{method: http.MethodPost, target: "/api/users", body: body})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, decode(t, rec), "password")
		svc.AssertExpectations(t)
	})

	t.Run("admin may set role and flags", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Add", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleAdmin && u.Blocked
		})).Return(&model.User{Username: "neo"}, nil)

		rec := serve(t, newTestHandler(svc).Create, call{
			method: http.MethodPost,
			target: "/api/users",
			body:   body,
			claims: claimsFor(uuid.New(), model.RoleAdmin),
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Add", mock.Anything, mock.Anything).Return(nil, errors.ErrUsernameTaken)

		rec := serve(t, newTestHandler(svc).Create, call{method: http.MethodPost, target: "/api/users", body: body})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing action is not found", func(t *testing.T) {
		h := newTestHandler(new(MockUserService))
		h.api = actions{}

		rec := serve(t, h.Create, call{method: http.MethodPost, target: "/api/users", body: body})

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Not Found", decode(t, rec)["error"])
	})
}

func TestUpdate_Resolver(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	t.Run("user cannot edit someone else", func(t *testing.T) {
		rec := serve(t, newTestHandler(new(MockUserService)).Update, call{
			method: http.MethodPut,
			target: "/api/users/" + other.String(),
			body:   `{"bio":"x"}`,
			params: map[string]string{"id": other.String()},
			claims: claimsFor(self, model.RoleAuthenticated),
		})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("user cannot change role", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Edit", mock.Anything, self, mock.MatchedBy(func(c service.UserChanges) bool {
			return c.Role == nil && c.Bio != nil
		})).Return(&model.User{ID: self}, nil)

		rec := serve(t, newTestHandler(svc).Update, call{
			method: http.MethodPut,
			target: "/api/users/" + self.String(),
			body:   `{"bio":"x","role":"admin"}`,
			params: map[string]string{"id": self.String()},
			claims: claimsFor(self, model.RoleAuthenticated),
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("admin edits role of unknown user", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Edit", mock.Anything, other, mock.MatchedBy(func(c service.UserChanges) bool {
			return c.Role != nil && *c.Role == model.RoleAdmin
		})).Return(nil, errors.ErrUserNotFound)

		rec := serve(t, newTestHandler(svc).Update, call{
			method: http.MethodPut,
			target: "/api/users/" + other.String(),
			body:   `{"role":"admin"}`,
			params: map[string]string{"id": other.String()},
			claims: claimsFor(self, model.RoleAdmin),
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
