package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
	"solana-curve-guard/internal/storage/memory"
)

type brokenTradeStore struct{}

func (brokenTradeStore) Insert(context.Context, *domain.TradeRecord) error {
	return errors.New("analytics down")
}

func (brokenTradeStore) RecentTrades(context.Context, string, int64) ([]*domain.TradeRecord, error) {
	return nil, errors.New("analytics down")
}

func trade(id string, ts int64) *domain.TradeRecord {
	return &domain.TradeRecord{TradeID: id, Mint: "mint-a", Direction: domain.DirectionBuy, SolAmount: 1, TokenAmount: 10, TimestampMs: ts}
}

func TestMirrorTradeStore_CopiesToAnalytics(t *testing.T) {
	ctx := context.Background()
	primary, analytics := memory.NewTradeStore(), memory.NewTradeStore()
	m := storage.NewMirrorTradeStore(primary, analytics, nil)

	require.NoError(t, m.Insert(ctx, trade("t-1", 100)))
	require.NoError(t, m.Insert(ctx, trade("t-2", 200)))

	got, err := analytics.RecentTrades(ctx, "mint-a", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.RecentTrades(ctx, "mint-a", 150)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t-2", got[0].TradeID)

	assert.ErrorIs(t, m.Insert(ctx, trade("t-1", 100)), storage.ErrDuplicateKey)
}

func TestMirrorTradeStore_AnalyticsFailure(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewTradeStore()
	m := storage.NewMirrorTradeStore(primary, brokenTradeStore{}, nil)

	require.NoError(t, m.Insert(ctx, trade("t-1", 100)))

	got, err := m.RecentTrades(ctx, "mint-a", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].TradeID)
}
