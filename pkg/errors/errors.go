package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrLoad                  = errors.New("catalog load failed")
	ErrSongNotFound          = errors.New("song not found")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCollaborationNotFound = errors.New("collaboration not found")
	ErrInvalidPredicate      = errors.New("invalid predicate")
	ErrNoMedia               = errors.New("song has no media")
	ErrUpstream              = errors.New("upstream fetch failed")
	ErrInternal              = errors.New("internal error")
	ErrTimeout               = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrSongNotFound),
		errors.Is(err, ErrCategoryNotFound),
		errors.Is(err, ErrCollaborationNotFound),
		errors.Is(err, ErrNoMedia):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPredicate):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is and As re-export the stdlib helpers so callers need a single errors
// import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
