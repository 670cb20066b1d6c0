package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations evenly at a fixed per-minute rate. The first
// call proceeds immediately; each later call waits until a full interval has
// passed since the previous one.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute. A non-positive rate disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	var interval time.Duration
	if perMinute > 0 {
		interval = time.Minute / time.Duration(perMinute)
	}
	return &RateLimiter{interval: interval}
}

// Wait blocks until the next operation slot or until ctx is cancelled. On
// cancellation the slot is not consumed.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	wait := rl.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	slot := now.Add(wait)
	rl.next = slot.Add(rl.interval)
	rl.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// Give the slot back so a later caller is not pushed out by a
		// wait that never happened.
		rl.mu.Lock()
		if rl.next.Equal(slot.Add(rl.interval)) {
			rl.next = slot
		}
		rl.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
