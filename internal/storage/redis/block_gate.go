package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-curve-guard/internal/storage"
)

//go:embed scripts/block.lua
var blockLua string

// BlockGate implements storage.BlockGate with expiring keys, so windows are
// shared by every replica and vanish on their own.
type BlockGate struct {
	client *Client
	block  *redis.Script
}

// NewBlockGate creates a BlockGate backed by the given Client.
func NewBlockGate(c *Client) *BlockGate {
	return &BlockGate{client: c, block: redis.NewScript(blockLua)}
}

// Block opens a retry window for key. An existing longer window is kept.
func (g *BlockGate) Block(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	err := g.block.Run(ctx, g.client.rdb,
		[]string{g.client.key("block", key)},
		until.UnixMilli(),
		ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis: block %s: %w", key, err)
	}
	return nil
}

// BlockedFor returns the time left in key's retry window.
func (g *BlockGate) BlockedFor(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := g.client.rdb.PTTL(ctx, g.client.key("block", key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: blocked for %s: %w", key, err)
	}
	// PTTL reports missing or persistent keys as negative values.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// Compile-time interface check.
var _ storage.BlockGate = (*BlockGate)(nil)
