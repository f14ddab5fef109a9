package render

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate the frame should be
// attempted again. Non-retryable errors abort the job immediately.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// frameAttempts bounds how often one frame is tried before the job
// aborts: the first attempt plus two retries.
const frameAttempts = 3

// retryFrame executes fn up to attempts times with a doubling delay.
// Only errors wrapped in [RetryableError] are retried. Returns ctx.Err()
// when cancelled while waiting.
func retryFrame(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errors.As(err, new(*RetryableError)) {
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
