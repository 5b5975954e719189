package storage

import (
	"context"
	"time"

	"solana-curve-guard/internal/domain"
)

// TokenStore provides access to per-token cumulative counters.
type TokenStore interface {
	// Get retrieves counters for a mint. Returns ErrNotFound if none recorded.
	Get(ctx context.Context, mint string) (*domain.TokenCounters, error)

	// Put inserts or replaces counters for a mint.
	Put(ctx context.Context, c *domain.TokenCounters) error

	// Update applies fn to the mint's counters atomically and persists the result.
	// Missing counters start at zero. Nothing is written if fn returns an error.
	Update(ctx context.Context, mint string, fn func(c *domain.TokenCounters) error) (*domain.TokenCounters, error)
}

// TradeStore provides access to the confirmed trade log.
type TradeStore interface {
	// Insert appends a trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// RecentTrades retrieves trades for a mint with timestamp >= sinceMs,
	// ordered by timestamp ASC.
	RecentTrades(ctx context.Context, mint string, sinceMs int64) ([]*domain.TradeRecord, error)
}

// BundleStore provides access to the submission audit log.
type BundleStore interface {
	// Insert appends a bundle record. Returns ErrDuplicateKey if bundle_id exists.
	Insert(ctx context.Context, b *domain.Bundle) error

	// GetByID retrieves a bundle. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, bundleID string) (*domain.Bundle, error)

	// GetByWallet retrieves up to limit bundles for a wallet, newest first.
	GetByWallet(ctx context.Context, wallet string, limit int) ([]*domain.Bundle, error)
}

// BlockGate tracks retry windows opened by blocked submissions.
type BlockGate interface {
	// Block opens a retry window for key until the given time.
	Block(ctx context.Context, key string, until time.Time) error

	// BlockedFor returns the time left in key's retry window, or 0 when open.
	BlockedFor(ctx context.Context, key string) (time.Duration, error)
}

// RateLimiter limits requests per client key.
type RateLimiter interface {
	// Allow reports whether one more request for key fits in the current window.
	Allow(ctx context.Context, key string) (bool, error)
}

// Archiver copies bundle audit records to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, b *domain.Bundle) error
}
