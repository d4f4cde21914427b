package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"clickup-bridge/pkg/errors"
)

// Strategy selects how delays grow between attempts
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyLinear      Strategy = "linear"
	StrategyExponential Strategy = "exponential"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	Strategy      Strategy      `json:"strategy" yaml:"strategy"`
	Multiplier    float64       `json:"multiplier" yaml:"multiplier"`
	Jitter        bool          `json:"jitter" yaml:"jitter"`
	JitterPercent float64       `json:"jitter_percent" yaml:"jitter_percent"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		Strategy:      StrategyExponential,
		Multiplier:    2.0,
		Jitter:        true,
		JitterPercent: 0.1,
		Timeout:       5 * time.Minute,
	}
}

// Preset configurations
var (
	// HealthCheckConfig mirrors the reconciliation job settings: three
	// attempts with a fixed one minute pause between them.
	HealthCheckConfig = &Config{
		MaxAttempts:  3,
		InitialDelay: 60 * time.Second,
		MaxDelay:     60 * time.Second,
		Strategy:     StrategyFixed,
		Timeout:      5 * time.Minute,
	}

	RemoteAPIConfig = &Config{
		MaxAttempts:   4,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		Strategy:      StrategyExponential,
		Multiplier:    2.0,
		Jitter:        true,
		JitterPercent: 0.2,
		Timeout:       2 * time.Minute,
	}
)

// RetryFunc is a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// RetryCondition decides whether an error should trigger another attempt
type RetryCondition func(err error, attempt int) bool

// BackoffFunc calculates the delay before the next attempt
type BackoffFunc func(attempt int, config *Config) time.Duration

// Retryer handles retry logic
type Retryer struct {
	config    *Config
	condition RetryCondition
	backoff   BackoffFunc
	onRetry   func(attempt int, err error, delay time.Duration)
}

// New creates a Retryer with default configuration
func New() *Retryer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Retryer with custom configuration
func NewWithConfig(config *Config) *Retryer {
	return &Retryer{
		config:    config,
		condition: DefaultRetryCondition,
		backoff:   getBackoffFunc(config.Strategy),
	}
}

// WithCondition sets a custom retry condition
func (r *Retryer) WithCondition(condition RetryCondition) *Retryer {
	r.condition = condition
	return r
}

// WithOnRetry sets a callback invoked before each sleep
func (r *Retryer) WithOnRetry(onRetry func(attempt int, err error, delay time.Duration)) *Retryer {
	r.onRetry = onRetry
	return r
}

// Execute runs fn until it succeeds, the condition rejects the error, or
// attempts are exhausted.
func (r *Retryer) Execute(ctx context.Context, fn RetryFunc) error {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt >= r.config.MaxAttempts || !r.condition(err, attempt) {
			break
		}

		delay := r.backoff(attempt, r.config)
		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if appErr := errors.GetAppError(lastErr); appErr != nil {
		return appErr.WithContext("retry_attempts", r.config.MaxAttempts)
	}
	return errors.Wrap(lastErr, errors.ErrorTypeInternal, errors.CodeInternal,
		fmt.Sprintf("operation failed after %d attempts", r.config.MaxAttempts)).
		WithContext("retry_attempts", r.config.MaxAttempts)
}

// ExecuteWithResult runs a function that returns a value and error
func ExecuteWithResult[T any](ctx context.Context, config *Config, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var result T
	var resultSet bool

	retryFn := func(ctx context.Context, attempt int) error {
		r, err := fn(ctx, attempt)
		if err == nil {
			result = r
			resultSet = true
		}
		return err
	}

	err := NewWithConfig(config).Execute(ctx, retryFn)
	if !resultSet {
		var zero T
		return zero, err
	}
	return result, err
}

// DefaultRetryCondition retries AppErrors marked retryable and plain errors
// that look transient.
func DefaultRetryCondition(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr.IsRetryable()
	}
	return isTransient(err)
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// ErrorTypeCondition retries only errors of the given types
func ErrorTypeCondition(errorTypes ...errors.ErrorType) RetryCondition {
	return func(err error, attempt int) bool {
		if appErr := errors.GetAppError(err); appErr != nil {
			for _, errorType := range errorTypes {
				if appErr.Type == errorType {
					return true
				}
			}
		}
		return false
	}
}

func getBackoffFunc(strategy Strategy) BackoffFunc {
	switch strategy {
	case StrategyFixed:
		return FixedBackoff
	case StrategyLinear:
		return LinearBackoff
	default:
		return ExponentialBackoff
	}
}

// FixedBackoff keeps a constant delay between attempts
func FixedBackoff(attempt int, config *Config) time.Duration {
	delay := config.InitialDelay
	if config.Jitter {
		delay = addJitter(delay, config.JitterPercent)
	}
	return delay
}

// LinearBackoff grows the delay linearly with the attempt number
func LinearBackoff(attempt int, config *Config) time.Duration {
	delay := config.InitialDelay * time.Duration(attempt)
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if config.Jitter {
		delay = addJitter(delay, config.JitterPercent)
	}
	return delay
}

// ExponentialBackoff doubles (by Multiplier) the delay each attempt
func ExponentialBackoff(attempt int, config *Config) time.Duration {
	multiplier := config.Multiplier
	if multiplier <= 1.0 {
		multiplier = 2.0
	}

	delay := time.Duration(float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if config.Jitter {
		delay = addJitter(delay, config.JitterPercent)
	}
	return delay
}

// addJitter spreads delays to avoid synchronized retries
func addJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return delay
	}

	jitter := float64(delay) * jitterPercent
	adjustment := (rand.Float64() - 0.5) * 2 * jitter

	result := time.Duration(float64(delay) + adjustment)
	if result < 0 {
		result = delay / 2
	}
	return result
}
