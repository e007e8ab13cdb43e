package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"gallery/internal/auth"
	"gallery/internal/config"
	"gallery/internal/handler"
)

func newTestServer() *echo.Echo {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	Register(e, Dependencies{
		Config:      &config.Config{},
		Logger:      logger,
		JWT:         auth.NewJWTService("secret"),
		Tokens:      auth.NewTokenStore(nil),
		UserHandler: handler.NewUserHandler(nil, logger),
		AuthHandler: handler.NewAuthHandler(nil, logger),
	})
	return e
}

func TestRoutes(t *testing.T) {
	e := newTestServer()

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "me is not an id", method: http.MethodGet, path: "/api/users/me", wantStatus: http.StatusBadRequest},
		{name: "destroy needs admin", method: http.MethodDelete, path: "/api/users/" + uuid.NewString(), wantStatus: http.StatusForbidden},
		{name: "destroyAll needs admin", method: http.MethodDelete, path: "/api/users?id=1", wantStatus: http.StatusForbidden},
		{name: "bad bearer token", method: http.MethodGet, path: "/api/users/me", token: "nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
