package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration // first wait between attempts
	MaxDelay    time.Duration
	Backoff     bool // exponential backoff when true, constant Delay otherwise
}

// DefaultConfig retries up to three times with exponential backoff from 500ms.
func DefaultConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Backoff:     true,
	}
}

// Permanent wraps err so WithRetry gives up immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// WithRetry calls fn until it succeeds, returns a Permanent error, the
// attempts are used up or ctx is done.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var policy backoff.BackOff
	if config.Backoff {
		exp := backoff.NewExponentialBackOff()
		if config.Delay > 0 {
			exp.InitialInterval = config.Delay
		}
		if config.MaxDelay > 0 {
			exp.MaxInterval = config.MaxDelay
		}
		exp.MaxElapsedTime = 0
		policy = exp
	} else {
		policy = backoff.NewConstantBackOff(config.Delay)
	}

	tries := 0
	op := func() error {
		tries++
		return fn()
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx)
	err := backoff.Retry(op, b)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", tries, err)
}
