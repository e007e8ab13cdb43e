package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"gallery/docs"
	"gallery/internal/auth"
	"gallery/internal/config"
	"gallery/internal/handler"
)

// Dependencies are the pieces the routes are served by.
type Dependencies struct {
	Config      *config.Config
	Logger      *slog.Logger
	JWT         *auth.JWTService
	Tokens      auth.TokenStoreInterface
	UserHandler *handler.UserHandler
	AuthHandler *handler.AuthHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, deps Dependencies) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	if deps.Config.SwaggerHost != "" {
		docs.SwaggerInfo.Host = deps.Config.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api", auth.Middleware(deps.JWT, deps.Tokens))

	api.POST("/auth/local/register", deps.AuthHandler.Register)
	api.POST("/auth/local", deps.AuthHandler.Login)
	api.POST("/auth/refresh", deps.AuthHandler.Refresh)
	api.POST("/auth/logout", deps.AuthHandler.Logout)

	users := api.Group("/users")
	h := deps.UserHandler

	// Static segments are registered before :id so they never match as ids.
	users.GET("/count", h.Count)
	users.GET("/me", h.Me)
	users.PUT("/me", h.UpdateMe)
	users.GET("/artists", h.GetArtists)
	users.GET("/address/:ethereumAddress", h.FindOneByEthereumAddress)

	users.GET("", h.Find)
	users.POST("", h.Create)
	users.GET("/:id", h.FindOne)
	users.PUT("/:id", h.Update)
	users.DELETE("/:id", h.Destroy, auth.RequireAdmin)
	users.DELETE("", h.DestroyAll, auth.RequireAdmin)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
