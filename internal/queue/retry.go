package queue

import (
	"context"
	"fmt"
	"time"

	"prospector/internal/models"
)

// ClassifiedError is an extraction failure tagged with its kind and the
// number of attempts made before giving up
type ClassifiedError struct {
	Kind     models.ErrorKind
	Attempts int
	Err      error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// RetryConfig controls the retry executor
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryConfig returns the production retry settings
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Second}
}

// ExecuteWithRetry invokes work until it succeeds or attempts are exhausted,
// doubling the delay between attempts. Failures classified as not_found or
// access_restricted are never retried. A failure always surfaces as a
// *ClassifiedError; only context cancellation escapes unclassified.
func ExecuteWithRetry[T any](ctx context.Context, cfg RetryConfig, work func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error
	var lastKind models.ErrorKind

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := work(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		lastKind = Classify(err)
		if !lastKind.Retryable() {
			return zero, &ClassifiedError{Kind: lastKind, Attempts: attempt, Err: err}
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return zero, &ClassifiedError{Kind: lastKind, Attempts: cfg.MaxAttempts, Err: lastErr}
}
