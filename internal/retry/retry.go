// Package retry provides a small exponential-backoff retry primitive,
// adapted from the teacher's resilience package and trimmed to the one use
// this domain has for it: retrying a subprocess spawn failure (not a
// non-zero exit, and never a parse error) a bounded number of times.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Policy configures WithRetry's exponential backoff.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
	Logger     *slog.Logger
}

// DefaultPolicy is tuned for a transient fork/exec failure: two attempts, a
// short base delay. It is deliberately not tuned for network calls — the
// maintainer metadata client is explicitly single-attempt (spec.md §4.4).
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries: 1,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// WithRetry runs operation, retrying on a non-nil error according to policy.
// Context cancellation during a retry delay returns ctx.Err() immediately.
func WithRetry(ctx context.Context, policy *Policy, operation func() error) error {
	if policy == nil {
		policy = DefaultPolicy()
	}
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	delay := policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		if attempt >= policy.MaxRetries {
			logger.Error("operation failed after all retries", "attempts", attempt+1, "error", lastErr)
			break
		}

		wait := delay
		if policy.Jitter {
			wait += time.Duration(rand.Int63n(int64(delay) / 10))
		}
		logger.Warn("operation failed, retrying", "attempt", attempt+1, "delay", wait, "error", lastErr)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return lastErr
}
