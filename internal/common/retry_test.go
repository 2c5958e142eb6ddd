package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coupn-app/coupn/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhausts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := WithRetry(context.Background(), fastRetry(2), func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	badRequest := errors.New("bad request")
	calls := 0
	err := WithRetry(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return Permanent(badRequest)
	})

	assert.Equal(t, badRequest, err)
	assert.Equal(t, 1, calls)
	var marked *RetryableError
	require.ErrorAs(t, Permanent(badRequest), &marked)
	assert.False(t, marked.Retryable)
	assert.NoError(t, Permanent(nil))
}

func TestWithRetryDoesNotRetryContextErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRateLimitWaitsMaxDelay(t *testing.T) {
	opts := service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2,
	}

	calls := 0
	start := time.Now()
	err := WithRetry(context.Background(), opts, func(context.Context) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("upstream: %w", ErrRateLimit)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), opts.MaxDelay)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
	}, func(context.Context) error { return errors.New("fail") })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserMessage(t *testing.T) {
	err := NewUserError("Could not access microphone", errors.New("device busy"))

	assert.Equal(t, "Could not access microphone: device busy", err.Error())
	assert.Equal(t, "Could not access microphone", UserMessage(err, "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("raw"), "fallback"))
}

func TestParseLevel(t *testing.T) {
	_, err := ParseLevel("verbose")
	assert.Error(t, err)

	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())
}
