package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"solana-curve-guard/internal/storage"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// RateLimiter implements storage.RateLimiter with a sliding window kept in a
// sorted set and updated by one atomic Lua script.
type RateLimiter struct {
	client        *Client
	limit         int
	window        time.Duration
	slidingWindow *redis.Script
}

// NewRateLimiter allows limit requests per key within window.
func NewRateLimiter(c *Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:        c,
		limit:         limit,
		window:        window,
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

// Allow reports whether one more request for key fits in the window and
// counts it if so.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := rl.slidingWindow.Run(
		ctx,
		rl.client.rdb,
		[]string{rl.client.key("ratelimit", key)},
		time.Now().UnixMicro(),
		rl.window.Microseconds(),
		rl.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("redis: rate limit allow %s: unexpected result length %d", key, len(result))
	}

	return result[0] == 1, nil
}

// Compile-time interface check.
var _ storage.RateLimiter = (*RateLimiter)(nil)
