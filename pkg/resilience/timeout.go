package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
)

// WithTimeout runs fn under a deadline. A missed deadline returns an error
// matching both apperrors.ErrTimeout and context.DeadlineExceeded, so
// callers can classify it either way. fn keeps running in the background
// until it observes its context.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is WithTimeout for functions that produce a value.
func Call[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		return r.v, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%w: %s exceeded %v: %w", apperrors.ErrTimeout, name, timeout, context.DeadlineExceeded)
	}
}
