package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls the backoff schedule.
//
// Retryable, when set, stops the loop early for errors it rejects. Hint,
// when set, lets an error dictate its own delay (a Retry-After header, for
// instance); a hinted delay longer than MaxDelay ends the loop instead of
// being shortened.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	Retryable      func(err error) bool
	Hint           func(err error) (time.Duration, bool)
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

// nextDelay reports how long to wait after the given failed attempt, or
// false when the error should not be retried.
func (cfg RetryConfig) nextDelay(attempt int, err error) (time.Duration, bool) {
	if cfg.Retryable != nil && !cfg.Retryable(err) {
		return 0, false
	}
	if cfg.Hint != nil {
		if d, ok := cfg.Hint(err); ok {
			return d, d <= cfg.MaxDelay
		}
	}
	return computeDelay(attempt, cfg), true
}

// Retry calls fn until it succeeds, the attempts run out, or ctx is done.
// The returned error wraps the last failure.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, lastErr)
		}
		delay, ok := cfg.nextDelay(attempt, lastErr)
		if !ok {
			return lastErr
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
		logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"error", lastErr,
			"next_delay", delay,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}
	}
}

func computeDelay(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	backoff += backoff * cfg.JitterFraction * (2*rand.Float64() - 1)
	switch {
	case backoff > float64(cfg.MaxDelay):
		return cfg.MaxDelay
	case backoff < 0:
		return cfg.InitialDelay
	}
	return time.Duration(backoff)
}
