package mev

import (
	"context"
	"time"
)

// Waiter pauses a request without pinning a worker.
type Waiter interface {
	// Wait blocks for d or until ctx is done, returning ctx.Err() in that case.
	Wait(ctx context.Context, d time.Duration) error
}

// TimerWaiter waits on a timer.
type TimerWaiter struct{}

// Wait implements Waiter.
func (TimerWaiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
