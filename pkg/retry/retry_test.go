package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clickup-bridge/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Strategy:     StrategyFixed,
		Timeout:      time.Second,
	}
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := NewWithConfig(fastConfig(3)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := NewWithConfig(fastConfig(3)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := NewWithConfig(fastConfig(3)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.ValidationError(errors.CodeInvalidInput, "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeInvalidInput, appErr.Code)
	assert.Equal(t, 3, appErr.Context["retry_attempts"])
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	calls := 0
	retryable := errors.ExternalError("clickup", fmt.Errorf("boom")).SetRetryable(true)
	err := NewWithConfig(fastConfig(4)).Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return retryable
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastConfig(3)
	cfg.InitialDelay = time.Minute
	cfg.MaxDelay = time.Minute

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- NewWithConfig(cfg).Execute(ctx, func(ctx context.Context, attempt int) error {
			calls++
			return fmt.Errorf("timeout")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("execute did not return after cancellation")
	}
}

func TestExecuteWithResult(t *testing.T) {
	calls := 0
	got, err := ExecuteWithResult(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) (int, error) {
		calls++
		if calls < 2 {
			return 0, fmt.Errorf("connection reset")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithResultReturnsZeroOnFailure(t *testing.T) {
	got, err := ExecuteWithResult(context.Background(), fastConfig(2), func(ctx context.Context, attempt int) ([]string, error) {
		return nil, errors.ValidationError(errors.CodeInvalidInput, "bad")
	})
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestWithOnRetry(t *testing.T) {
	var attempts []int
	retryer := NewWithConfig(fastConfig(3)).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	})

	err := retryer.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		return fmt.Errorf("timeout")
	})
	require.Error(t, err)
	// The callback fires before each sleep, so not after the final attempt
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDefaultRetryCondition(t *testing.T) {
	assert.False(t, DefaultRetryCondition(nil, 1))
	assert.True(t, DefaultRetryCondition(fmt.Errorf("dial tcp: connection refused"), 1))
	assert.True(t, DefaultRetryCondition(fmt.Errorf("503 service unavailable"), 1))
	assert.False(t, DefaultRetryCondition(fmt.Errorf("no such webhook"), 1))

	assert.True(t, DefaultRetryCondition(errors.TimeoutError("op"), 1))
	assert.False(t, DefaultRetryCondition(errors.ValidationError(errors.CodeInvalidInput, "bad"), 1))
}

func TestErrorTypeCondition(t *testing.T) {
	condition := ErrorTypeCondition(errors.ErrorTypeExternal, errors.ErrorTypeTimeout)

	assert.True(t, condition(errors.ExternalError("clickup", fmt.Errorf("boom")), 1))
	assert.True(t, condition(errors.TimeoutError("op"), 1))
	assert.False(t, condition(errors.InternalError("boom"), 1))
	assert.False(t, condition(fmt.Errorf("plain"), 1))
}

func TestBackoffStrategies(t *testing.T) {
	cfg := &Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, FixedBackoff(1, cfg))
	assert.Equal(t, 100*time.Millisecond, FixedBackoff(5, cfg))

	assert.Equal(t, 100*time.Millisecond, LinearBackoff(1, cfg))
	assert.Equal(t, 300*time.Millisecond, LinearBackoff(3, cfg))
	assert.Equal(t, time.Second, LinearBackoff(50, cfg))

	assert.Equal(t, 100*time.Millisecond, ExponentialBackoff(1, cfg))
	assert.Equal(t, 400*time.Millisecond, ExponentialBackoff(3, cfg))
	assert.Equal(t, time.Second, ExponentialBackoff(10, cfg))
}

func TestJitterStaysInBounds(t *testing.T) {
	cfg := &Config{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		Jitter:        true,
		JitterPercent: 0.5,
	}

	for i := 0; i < 100; i++ {
		delay := FixedBackoff(1, cfg)
		assert.GreaterOrEqual(t, delay, 50*time.Millisecond)
		assert.LessOrEqual(t, delay, 150*time.Millisecond)
	}
}
