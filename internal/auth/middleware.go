package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "gallery/internal/errors"
	"gallery/internal/model"
)

// ContextKey is where the validated *Claims of the caller are kept.
const ContextKey = "auth.claims"

// ErrTokenRevoked is returned for access tokens revoked by logout.
var ErrTokenRevoked = errors.New("token revoked")

// Principal is the authenticated caller.
type Principal struct {
	ID    uuid.UUID
	Email string
	Role  string
}

// Middleware validates bearer tokens when one is sent. Requests without an
// Authorization header pass through anonymously; handlers decide whether
// that is acceptable.
func Middleware(jwtService *JWTService, store TokenStoreInterface) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  ContextKey,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			claims, err := jwtService.ValidateAccessToken(raw)
			if err != nil {
				return nil, err
			}
			if claims.ID != "" {
				revoked, err := store.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if err != nil {
					return nil, err
				}
				if revoked {
					return nil, ErrTokenRevoked
				}
			}
			return claims, nil
		},
	})
}

// ClaimsFrom returns the validated claims of the caller, if any.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(ContextKey).(*Claims)
	return claims, ok && claims != nil
}

// CurrentUser returns the authenticated caller, if any.
func CurrentUser(c echo.Context) (*Principal, bool) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, false
	}
	return &Principal{ID: id, Email: claims.Email, Role: claims.Role}, true
}

// IsAuthenticatedAdmin reports whether the caller holds the admin role.
func IsAuthenticatedAdmin(c echo.Context) bool {
	p, ok := CurrentUser(c)
	return ok && p.Role == model.RoleAdmin
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAuthenticatedAdmin(c) {
			httpErr := apperrors.MapErrorToHTTP(apperrors.ErrForbidden)
			return echo.NewHTTPError(http.StatusForbidden, httpErr.Payload())
		}
		return next(c)
	}
}
