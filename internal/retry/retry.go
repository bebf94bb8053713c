// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls the retry behavior.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration
	// Multiplier scales the delay after each failure. Zero means 2.
	Multiplier float64
	// Retryable reports whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is done. The last error is returned when all attempts fail.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 2
	}

	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * mult)
	}
	return fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
