package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3}

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsOnFinalAttempt(t *testing.T) {
	// MaxAttempts is the total budget: failing twice and succeeding on the
	// third attempt is within a budget of 3.
	p := Policy{MaxAttempts: 3}

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAfterMaxAttempts(t *testing.T) {
	// An operation that would succeed on attempt 4 is exhausted by a
	// budget of 3: the fourth attempt never runs.
	p := Policy{MaxAttempts: 3}

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "op", exhausted.Op)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.EqualError(t, exhausted.Err, "transient")
}

func TestDo_WrapsLastError(t *testing.T) {
	p := Policy{MaxAttempts: 2}

	sentinel := errors.New("boom")
	attempt := 0
	err := p.Do(context.Background(), "op", func() error {
		attempt++
		if attempt == 1 {
			return errors.New("first failure")
		}
		return sentinel
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	p := Policy{}

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledBeforeFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.Do(ctx, "op", func() error {
		calls++
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls, "cancelled context must prevent any attempt")
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 5, Backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "op", func() error {
			calls++
			return errors.New("transient")
		})
	}()

	// Give the first attempt time to fail and enter backoff.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls, "backoff must be interruptible")
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.Backoff)
}
