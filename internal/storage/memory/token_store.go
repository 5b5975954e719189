package memory

import (
	"context"
	"sync"
	"time"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.Mutex
	data map[string]domain.TokenCounters // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]domain.TokenCounters),
	}
}

// Get retrieves counters for a mint. Returns ErrNotFound if none recorded.
func (s *TokenStore) Get(_ context.Context, mint string) (*domain.TokenCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

// Put inserts or replaces counters for a mint.
func (s *TokenStore) Put(_ context.Context, c *domain.TokenCounters) error {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[c.Mint] = *c
	return nil
}

// Update applies fn to the mint's counters under the store lock.
func (s *TokenStore) Update(_ context.Context, mint string, fn func(c *domain.TokenCounters) error) (*domain.TokenCounters, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[mint]
	if !ok {
		c = domain.TokenCounters{Mint: mint}
	}
	if err := fn(&c); err != nil {
		return nil, err
	}
	c.Mint = mint
	c.UpdatedAt = time.Now().UnixMilli()
	s.data[mint] = c

	out := c
	return &out, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
