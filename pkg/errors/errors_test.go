package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("create: %w", ErrValidation), http.StatusBadRequest},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"storage", Storage("save", errors.New("disk full")), http.StatusInternalServerError},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"app error wins", New(ErrNotFound, http.StatusGone, "gone"), http.StatusGone},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("saving restaurants", cause)
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected ErrStorage in chain: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause in chain: %v", err)
	}
}

func TestKind(t *testing.T) {
	if got := Kind(Newf(ErrValidation, 400, "rating %v", 7)); got != ErrValidation {
		t.Errorf("Kind = %v, want ErrValidation", got)
	}
	if got := Kind(errors.New("weird")); got != ErrUnknown {
		t.Errorf("Kind = %v, want ErrUnknown", got)
	}
}
