package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("503 service unavailable")

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 6*time.Second, p.Backoff(3))

	p.Jitter = true
	for i := 0; i < 20; i++ {
		d := p.Backoff(2)
		assert.GreaterOrEqual(t, d, 4*time.Second)
		assert.LessOrEqual(t, d, 6*time.Second)
	}
}

func TestRetryPolicy_Exhaustion(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
	assert.True(t, errors.Is(err, ErrTransientProvider))
	assert.True(t, errors.Is(err, errFlaky), "last error is preserved")

	var exhausted *RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestRetryPolicy_SucceedsAfterFailures(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, Delay: time.Millisecond}
	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPolicy_PermanentStops(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond}
	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errors.New("401 unauthorized"))
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	var perm *PermanentError
	assert.True(t, errors.As(err, &perm))
	assert.False(t, errors.Is(err, ErrTransientProvider))
}

func TestRetryPolicy_ContextCancelDuringWait(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	_, err := p.Do(ctx, func(context.Context) error {
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryPolicy_InvalidAttempts(t *testing.T) {
	_, err := RetryPolicy{}.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestPermanent_nil(t *testing.T) {
	assert.Nil(t, Permanent(nil))
}
