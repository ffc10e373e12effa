package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrStorage     = errors.New("storage error")
	ErrNetwork     = errors.New("network error")
	ErrUnknown     = errors.New("unknown error")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrTimeout     = errors.New("operation timed out")
)

// AppError carries a taxonomy sentinel plus what an HTTP boundary needs.
// RetryAfter is set when the other side asked to be called back later.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	RetryAfter time.Duration
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

// Storage wraps a persistence failure. The caller sees ErrStorage; the
// underlying cause stays reachable through errors.Is/As.
func Storage(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, cause)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Kind reduces err to one of the taxonomy sentinels. Anything that does
// not match a known sentinel is ErrUnknown.
func Kind(err error) error {
	for _, sentinel := range []error{ErrValidation, ErrNotFound, ErrStorage, ErrNetwork, ErrRateLimited, ErrTimeout} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return ErrUnknown
}
