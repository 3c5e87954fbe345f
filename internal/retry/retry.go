// Package retry re-runs journal database operations that fail with transient errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/webstep/internal/common"
)

// Config holds the backoff policy.
type Config struct {
	MaxRetries      int           // attempts after the first one
	InitialDelay    time.Duration // delay before the first retry
	MaxDelay        time.Duration // upper bound for any delay
	BackoffFactor   float64       // multiplier per attempt
	RetryableErrors []string      // lower-case substrings that mark an error transient
}

// DefaultConfig suits sqlite busy locks and short postgres connection drops.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"timeout",
			"temporary failure",
			"deadlock",
			"database is locked",
			"sqlite_busy",
			"connection lost",
			"broken pipe",
			"bad connection",
		},
	}
}

// Retryable reports whether err matches one of the transient error markers.
// Context cancellation is never retried.
func (c *Config) Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range c.RetryableErrors {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Delay is the wait before retry number attempt (1-based), capped at MaxDelay.
func (c *Config) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return c.InitialDelay
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. A nil config uses DefaultConfig.
func Do(ctx context.Context, cfg *Config, op func() error) error {
	_, err := Value(ctx, cfg, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// Value is Do for operations that produce a result, such as sql.Result or *sql.Rows.
func Value[T any](ctx context.Context, cfg *Config, op func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := common.GetLogger().WithComponent("journal-retry")

	var zero T
	attempts := cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		v, err := op()
		if err == nil {
			if attempt > 1 {
				logger.Info("journal operation succeeded after retry", "attempt", attempt)
			}
			return v, nil
		}
		if !cfg.Retryable(err) {
			return zero, err
		}
		if attempt >= attempts {
			logger.Error("journal operation failed after all retry attempts", "error", err, "attempts", attempts)
			return zero, fmt.Errorf("retry: giving up after %d attempts: %w", attempts, err)
		}

		delay := cfg.Delay(attempt)
		logger.Warn("journal operation failed, retrying", "error", err, "attempt", attempt, "max_attempts", attempts, "retry_delay", delay)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("retry: cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}
