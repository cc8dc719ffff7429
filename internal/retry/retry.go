// Package retry wraps transient-failure-prone remote operations with a
// bounded attempt budget.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/aditywn/csv-pickup/pkg/logger"
)

// Policy is a reusable retry budget for idempotent remote operations.
// MaxAttempts is the TOTAL number of attempts: an operation that fails
// MaxAttempts times is exhausted; one that succeeds on the final attempt
// succeeds. Backoff grows linearly with the attempt number.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Default mirrors the pipeline defaults: three attempts, half a second of
// base backoff.
func Default() Policy {
	return Policy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}
}

// ExhaustedError reports that an operation failed on every attempt.
// It wraps the error of the last attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do runs fn up to p.MaxAttempts times, sleeping Backoff*attempt between
// attempts. Cancellation is honored between attempts; a cancelled context
// returns ctx.Err() directly rather than an ExhaustedError so callers can
// tell shutdown from genuine exhaustion.
//
// Do must only be given transport-level operations. Validation failures are
// deterministic and belong to the caller, never to a retry loop.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		logger.Log.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Err(lastErr).
			Msg("operation attempt failed")

		if attempt == attempts {
			break
		}
		if p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff * time.Duration(attempt)):
			}
		}
	}

	return &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}
