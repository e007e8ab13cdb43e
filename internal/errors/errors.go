package errors

import (
	"errors"
	"net/http"
)

// MsgNoAuthorizationHeader is the message id returned when a caller is not authenticated.
const MsgNoAuthorizationHeader = "No authorization header was found"

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrAuthenticationMissing is returned when an action needs a signed-in user.
	ErrAuthenticationMissing = errors.New("authentication missing")
	// ErrNotImplemented is returned when the resolved controller lacks an action.
	ErrNotImplemented = errors.New("action not implemented")
	// ErrNoArtists is returned when an artist listing is empty.
	ErrNoArtists = errors.New("no artists found")
	// ErrUsernameTaken is returned when a username is already in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when an email is already in use.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidCredentials is returned when identifier or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid identifier or password")
	// ErrUserBlocked is returned when a blocked user tries to sign in.
	ErrUserBlocked = errors.New("your account has been blocked by an administrator")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidStatsRequest is returned when a stats request cannot name a user.
	ErrInvalidStatsRequest = errors.New("invalid stats request")
	// ErrForbidden is returned when the caller lacks the admin role.
	ErrForbidden = errors.New("forbidden")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Message is a translatable message id.
type Message struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// MessageGroup groups messages for one field or concern.
type MessageGroup struct {
	Messages []Message `json:"messages"`
}

// BoomResponse is the error body shape the user endpoints have always returned.
type BoomResponse struct {
	StatusCode int         `json:"statusCode"`
	Error      string      `json:"error"`
	Message    interface{} `json:"message"`
	Data       interface{} `json:"data,omitempty"`
}

// NewBoom builds a BoomResponse for status with the given message payload.
func NewBoom(status int, message interface{}) BoomResponse {
	return BoomResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
		Data:       message,
	}
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       interface{}
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// Payload is the response body for the error.
func (e *HTTPError) Payload() interface{} {
	if e.Body != nil {
		return e.Body
	}
	return e.ToErrorResponse()
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrAuthenticationMissing):
		e := NewHTTPError(http.StatusBadRequest, err.Error(), "AUTHENTICATION_MISSING")
		e.Body = NewBoom(http.StatusBadRequest, []MessageGroup{
			{Messages: []Message{{ID: MsgNoAuthorizationHeader}}},
		})
		return e
	case errors.Is(err, ErrNotImplemented):
		e := NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
		e.Body = NewBoom(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return e
	case errors.Is(err, ErrNoArtists):
		e := NewHTTPError(http.StatusBadRequest, err.Error(), "NO_ARTISTS")
		e.Body = NewBoom(http.StatusBadRequest, "No artists found")
		return e
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUserBlocked):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "USER_BLOCKED")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
