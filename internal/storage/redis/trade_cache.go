package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// TradeCache is a read-through storage.TradeStore that keeps each mint's
// recent trades in a sorted set scored by timestamp. Inserts go to the
// backing store first; cache failures are logged and served from the
// backing store.
type TradeCache struct {
	client    *Client
	next      storage.TradeStore
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewTradeCache wraps next. Queries reaching further back than retention
// bypass the cache.
func NewTradeCache(c *Client, next storage.TradeStore, retention time.Duration, logger *zap.Logger) *TradeCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeCache{client: c, next: next, retention: retention, logger: logger, now: time.Now}
}

func (tc *TradeCache) tradesKey(mint string) string {
	return tc.client.key("trades", mint)
}

func (tc *TradeCache) warmKey(mint string) string {
	return tc.client.key("trades", mint, "warm")
}

// Insert writes the trade to the backing store and, when the mint is
// cached, to the sorted set.
func (tc *TradeCache) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if err := tc.next.Insert(ctx, t); err != nil {
		return err
	}

	warm, err := tc.client.rdb.Exists(ctx, tc.warmKey(t.Mint)).Result()
	if err != nil {
		tc.logger.Warn("trade cache check failed", zap.String("mint", t.Mint), zap.Error(err))
		return nil
	}
	if warm == 0 {
		return nil
	}
	if err := tc.add(ctx, t.Mint, []*domain.TradeRecord{t}); err != nil {
		tc.logger.Warn("trade cache write failed", zap.String("mint", t.Mint), zap.Error(err))
		// Drop the mint so the next read reloads it.
		tc.client.rdb.Del(ctx, tc.warmKey(t.Mint))
	}
	return nil
}

// RecentTrades retrieves trades for a mint since sinceMs, ordered by timestamp ASC.
func (tc *TradeCache) RecentTrades(ctx context.Context, mint string, sinceMs int64) ([]*domain.TradeRecord, error) {
	horizon := tc.now().Add(-tc.retention).UnixMilli()
	if sinceMs < horizon {
		return tc.next.RecentTrades(ctx, mint, sinceMs)
	}

	trades, err := tc.cached(ctx, mint, sinceMs)
	if err == nil {
		return trades, nil
	}
	if !errors.Is(err, redis.Nil) {
		tc.logger.Warn("trade cache read failed", zap.String("mint", mint), zap.Error(err))
		return tc.next.RecentTrades(ctx, mint, sinceMs)
	}

	// Cold mint: load the retention window and serve from it.
	loaded, err := tc.next.RecentTrades(ctx, mint, horizon)
	if err != nil {
		return nil, err
	}
	if err := tc.fill(ctx, mint, loaded); err != nil {
		tc.logger.Warn("trade cache fill failed", zap.String("mint", mint), zap.Error(err))
	}

	out := make([]*domain.TradeRecord, 0, len(loaded))
	for _, t := range loaded {
		if t.TimestampMs >= sinceMs {
			out = append(out, t)
		}
	}
	return out, nil
}

// cached returns redis.Nil when the mint is not loaded.
func (tc *TradeCache) cached(ctx context.Context, mint string, sinceMs int64) ([]*domain.TradeRecord, error) {
	warm, err := tc.client.rdb.Exists(ctx, tc.warmKey(mint)).Result()
	if err != nil {
		return nil, err
	}
	if warm == 0 {
		return nil, redis.Nil
	}

	members, err := tc.client.rdb.ZRangeByScore(ctx, tc.tradesKey(mint), &redis.ZRangeBy{
		Min: strconv.FormatInt(sinceMs, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	trades := make([]*domain.TradeRecord, 0, len(members))
	for _, m := range members {
		var t domain.TradeRecord
		if err := json.Unmarshal([]byte(m), &t); err != nil {
			return nil, fmt.Errorf("decode cached trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, nil
}

func (tc *TradeCache) fill(ctx context.Context, mint string, trades []*domain.TradeRecord) error {
	if err := tc.add(ctx, mint, trades); err != nil {
		return err
	}
	return tc.client.rdb.Set(ctx, tc.warmKey(mint), "1", tc.retention).Err()
}

func (tc *TradeCache) add(ctx context.Context, mint string, trades []*domain.TradeRecord) error {
	key := tc.tradesKey(mint)
	horizon := tc.now().Add(-tc.retention).UnixMilli()

	_, err := tc.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range trades {
			data, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("encode trade %s: %w", t.TradeID, err)
			}
			pipe.ZAdd(ctx, key, redis.Z{Score: float64(t.TimestampMs), Member: string(data)})
		}
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(horizon, 10))
		pipe.PExpire(ctx, key, tc.retention)
		return nil
	})
	return err
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeCache)(nil)
