package mev

import (
	"context"
	"fmt"
	"time"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// RiskSignalSource supplies the market signals the scorer consumes.
// Implementations may be heuristic; real telemetry can replace them
// without touching the scorer.
type RiskSignalSource interface {
	// MarketAnalysis summarises the token's recent trade activity.
	MarketAnalysis(ctx context.Context, token string) (domain.MarketAnalysis, error)

	// MempoolConflicts counts pending activity that could sandwich a trade of size SOL.
	MempoolConflicts(ctx context.Context, token string, size float64) (int, error)
}

// ConflictScanner counts recent on-chain activity touching an account.
type ConflictScanner interface {
	RecentActivity(token string, within time.Duration) int
}

// ConflictWindow is how far back the conflict scan looks.
const ConflictWindow = 2 * time.Second

// StoreSignalSource derives signals from the trade log and an optional
// conflict scanner.
type StoreSignalSource struct {
	trades  storage.TradeStore
	scanner ConflictScanner
	now     func() time.Time
}

// NewStoreSignalSource creates a signal source. scanner may be nil, in which
// case no mempool conflicts are reported.
func NewStoreSignalSource(trades storage.TradeStore, scanner ConflictScanner) *StoreSignalSource {
	return &StoreSignalSource{trades: trades, scanner: scanner, now: time.Now}
}

// MarketAnalysis implements RiskSignalSource.
func (s *StoreSignalSource) MarketAnalysis(ctx context.Context, token string) (domain.MarketAnalysis, error) {
	if token == "" {
		return domain.MarketAnalysis{}, nil
	}
	now := s.now()
	trades, err := s.trades.RecentTrades(ctx, token, now.Add(-AnalysisWindow).UnixMilli())
	if err != nil {
		return domain.MarketAnalysis{}, fmt.Errorf("recent trades: %w", err)
	}
	return AnalyzeMarket(trades, now), nil
}

// MempoolConflicts implements RiskSignalSource.
func (s *StoreSignalSource) MempoolConflicts(ctx context.Context, token string, size float64) (int, error) {
	if s.scanner == nil || token == "" {
		return 0, ctx.Err()
	}
	return s.scanner.RecentActivity(token, ConflictWindow), nil
}
