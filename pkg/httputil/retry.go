package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Policy.Do] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy describes how transient failures are retried. The delay doubles
// after each failed attempt.
type Policy struct {
	Attempts int           // total attempts, treated as at least 1
	Delay    time.Duration // delay before the second attempt
}

// DefaultPolicy retries three times starting at one second, enough to ride
// out a single index failover without stalling a whole prefetch batch.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second}

// Do executes fn under the policy. It only retries errors wrapped with
// [RetryableError]; other errors are returned immediately. Returns the
// last error if all attempts fail, or ctx.Err() if cancelled while
// waiting between attempts.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
