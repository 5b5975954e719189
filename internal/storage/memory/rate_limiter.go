package memory

import (
	"context"
	"sync"
	"time"

	"solana-curve-guard/internal/storage"
)

// RateLimiter is an in-memory sliding-window implementation of storage.RateLimiter.
// Idle keys are swept whenever the map doubles since the last sweep.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	now       func() time.Time
	sweepSize int
}

// NewRateLimiter allows limit requests per key within window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:      make(map[string][]time.Time),
		now:       time.Now,
		sweepSize: minSweepSize,
	}
}

// Allow reports whether one more request for key fits in the window.
func (l *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	hits := l.hits[key]
	kept := hits[:0]
	for _, h := range hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}

	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false, nil
	}
	l.hits[key] = append(kept, now)

	if len(l.hits) >= l.sweepSize {
		for k, h := range l.hits {
			if len(h) == 0 || !h[len(h)-1].After(cutoff) {
				delete(l.hits, k)
			}
		}
		l.sweepSize = max(2*len(l.hits), minSweepSize)
	}
	return true, nil
}

var _ storage.RateLimiter = (*RateLimiter)(nil)
