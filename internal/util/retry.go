package util

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn up to maxAttempts times, doubling the delay between
// attempts starting from baseDelay. It returns nil on the first success and
// the last error once attempts run out. Cancelling ctx aborts the backoff
// wait and returns ctx.Err.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		return fmt.Errorf("retry: maxAttempts %d, must be at least 1", maxAttempts)
	}

	var err error
	for attempt, delay := 1, baseDelay; ; attempt, delay = attempt+1, delay*2 {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
