package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"gallery/internal/errors"
	"gallery/internal/model"
	"gallery/internal/sanitize"
)

// fail converts a service error into the HTTP error echo renders.
// Unmapped errors are logged and hidden behind a 500.
func fail(c echo.Context, logger *slog.Logger, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode == http.StatusInternalServerError {
		logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.Payload())
}

// badRequest reports a bind or validation failure.
func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: err.Error(),
		Code:  "INVALID_REQUEST",
	})
}

// sanitizedUser writes the user without its private attributes. A nil user
// produces an empty 204 response.
func sanitizedUser(c echo.Context, status int, user *model.User) error {
	if user == nil {
		return c.NoContent(http.StatusNoContent)
	}
	body, err := sanitize.Entity(user, model.UserSchema)
	if err != nil {
		return err
	}
	return c.JSON(status, body)
}

func sanitizedUsers(c echo.Context, users []model.User) error {
	body, err := sanitize.Entities(users, model.UserSchema)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, body)
}
