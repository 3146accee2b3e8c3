package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	// ErrTransientProvider matches every error that exhausted its retries.
	ErrTransientProvider = errors.New("embedding provider failed")
	// ErrInvalidMaxAttempts is returned when a RetryPolicy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)

// PermanentError marks a provider failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that RetryPolicy.Do stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// RetryExhaustedError is returned after the last failed attempt.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// Is reports ErrTransientProvider so callers can branch without knowing the attempt count.
func (e *RetryExhaustedError) Is(target error) bool { return target == ErrTransientProvider }

// RetryPolicy retries with a linearly growing delay: the wait before attempt
// k+1 is Delay*k. MaxAttempts counts every attempt including the first.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Jitter adds up to half of each delay at random.
	Jitter bool
}

// DefaultRetryPolicy is three attempts, two seconds apart and growing.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}

// Backoff returns the wait after failed attempt k (1-based).
func (p RetryPolicy) Backoff(k int) time.Duration {
	d := p.Delay * time.Duration(k)
	if p.Jitter && d > 0 {
		d += time.Duration(rand.Int64N(int64(d)/2 + 1))
	}
	return d
}

// Do runs op until it succeeds, returns a PermanentError, or MaxAttempts is reached.
// It returns the number of attempts made. Cancelling ctx aborts both attempts and waits.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}
		var perm *PermanentError
		if errors.As(lastErr, &perm) {
			return attempt, lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return p.MaxAttempts, &RetryExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}
