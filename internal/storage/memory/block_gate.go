package memory

import (
	"context"
	"sync"
	"time"

	"solana-curve-guard/internal/storage"
)

// BlockGate is an in-memory implementation of storage.BlockGate.
// Expired windows are swept whenever the map doubles since the last sweep.
type BlockGate struct {
	mu        sync.Mutex
	until     map[string]time.Time
	now       func() time.Time
	sweepSize int
}

// minSweepSize is the map size below which expired entries are left alone.
const minSweepSize = 64

// NewBlockGate creates a new in-memory block gate.
func NewBlockGate() *BlockGate {
	return &BlockGate{
		until:     make(map[string]time.Time),
		now:       time.Now,
		sweepSize: minSweepSize,
	}
}

// Block opens a retry window for key. An existing longer window is kept.
func (g *BlockGate) Block(_ context.Context, key string, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.until[key]; ok && cur.After(until) {
		return nil
	}
	g.until[key] = until

	if len(g.until) >= g.sweepSize {
		now := g.now()
		for k, u := range g.until {
			if !u.After(now) {
				delete(g.until, k)
			}
		}
		g.sweepSize = max(2*len(g.until), minSweepSize)
	}
	return nil
}

// BlockedFor returns the time left in key's retry window.
func (g *BlockGate) BlockedFor(_ context.Context, key string) (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.until[key]
	if !ok {
		return 0, nil
	}
	remaining := until.Sub(g.now())
	if remaining <= 0 {
		delete(g.until, key)
		return 0, nil
	}
	return remaining, nil
}

var _ storage.BlockGate = (*BlockGate)(nil)
