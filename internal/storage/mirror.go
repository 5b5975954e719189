package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
)

// MirrorTradeStore writes trades to a primary store and copies them to an
// analytics store. Window reads go to the analytics store and fall back to
// the primary one when it fails.
type MirrorTradeStore struct {
	primary   TradeStore
	analytics TradeStore
	logger    *zap.Logger
}

// NewMirrorTradeStore creates a mirror over primary and analytics.
func NewMirrorTradeStore(primary, analytics TradeStore, logger *zap.Logger) *MirrorTradeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorTradeStore{primary: primary, analytics: analytics, logger: logger}
}

// Insert implements TradeStore. Only primary failures are returned.
func (m *MirrorTradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if err := m.primary.Insert(ctx, t); err != nil {
		return err
	}
	if err := m.analytics.Insert(ctx, t); err != nil {
		m.logger.Warn("mirror trade to analytics failed",
			zap.String("trade_id", t.TradeID),
			zap.String("mint", t.Mint),
			zap.Error(err),
		)
	}
	return nil
}

// RecentTrades implements TradeStore.
func (m *MirrorTradeStore) RecentTrades(ctx context.Context, mint string, sinceMs int64) ([]*domain.TradeRecord, error) {
	trades, err := m.analytics.RecentTrades(ctx, mint, sinceMs)
	if err == nil {
		return trades, nil
	}
	m.logger.Warn("analytics window read failed, using primary", zap.String("mint", mint), zap.Error(err))

	trades, err = m.primary.RecentTrades(ctx, mint, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}
	return trades, nil
}
