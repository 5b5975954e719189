package memory

import (
	"context"
	"sort"
	"sync"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.TradeRecord   // keyed by trade_id
	byMint map[string][]*domain.TradeRecord // kept sorted by timestamp
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data:   make(map[string]*domain.TradeRecord),
		byMint: make(map[string][]*domain.TradeRecord),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy

	trades := append(s.byMint[t.Mint], &copy)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TimestampMs < trades[j].TimestampMs
	})
	s.byMint[t.Mint] = trades
	return nil
}

// RecentTrades retrieves trades for a mint since sinceMs, ordered by timestamp ASC.
func (s *TradeStore) RecentTrades(_ context.Context, mint string, sinceMs int64) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.byMint[mint]
	start := sort.Search(len(trades), func(i int) bool {
		return trades[i].TimestampMs >= sinceMs
	})

	result := make([]*domain.TradeRecord, 0, len(trades)-start)
	for _, t := range trades[start:] {
		copy := *t
		result = append(result, &copy)
	}
	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
