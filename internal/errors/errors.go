package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication is returned for bad, expired or unusable credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrAuthorization is returned when the actor's role or ownership does not permit the action.
	ErrAuthorization = errors.New("not authorized")
	// ErrNotFound is returned for unknown record ids.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned for an illegal state transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrPrecondition is returned when an operation needs a state the record is not in.
	ErrPrecondition = errors.New("precondition failed")
)

// Validation wraps ErrValidation with a detail message.
func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

// Authentication wraps ErrAuthentication with a detail message.
func Authentication(format string, args ...any) error {
	return wrap(ErrAuthentication, format, args...)
}

// Authorization wraps ErrAuthorization with a detail message.
func Authorization(format string, args ...any) error {
	return wrap(ErrAuthorization, format, args...)
}

// NotFound wraps ErrNotFound with a detail message.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// InvalidState wraps ErrInvalidState with a detail message.
func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

// Precondition wraps ErrPrecondition with a detail message.
func Precondition(format string, args ...any) error {
	return wrap(ErrPrecondition, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
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

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrAuthentication):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "AUTHENTICATION_FAILED")
	case errors.Is(err, ErrAuthorization):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrInvalidState):
		return NewHTTPError(http.StatusConflict, err.Error(), "INVALID_STATE")
	case errors.Is(err, ErrPrecondition):
		return NewHTTPError(http.StatusPreconditionFailed, err.Error(), "PRECONDITION_FAILED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
