package memory

import (
	"context"
	"sort"
	"sync"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// BundleStore is an in-memory implementation of storage.BundleStore.
type BundleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bundle // keyed by bundle_id
}

// NewBundleStore creates a new in-memory bundle store.
func NewBundleStore() *BundleStore {
	return &BundleStore{
		data: make(map[string]*domain.Bundle),
	}
}

// Insert adds a new bundle. Returns ErrDuplicateKey if bundle_id exists.
func (s *BundleStore) Insert(_ context.Context, b *domain.Bundle) error {
	if b == nil || b.BundleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.BundleID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[b.BundleID] = cloneBundle(b)
	return nil
}

// GetByID retrieves a bundle. Returns ErrNotFound if not exists.
func (s *BundleStore) GetByID(_ context.Context, bundleID string) (*domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[bundleID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneBundle(b), nil
}

// GetByWallet retrieves up to limit bundles for a wallet, newest first.
// A non-positive limit returns all bundles.
func (s *BundleStore) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bundle
	for _, b := range s.data {
		if b.Wallet == wallet {
			result = append(result, cloneBundle(b))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].BundleID < result[j].BundleID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Len returns the number of stored bundles.
func (s *BundleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func cloneBundle(b *domain.Bundle) *domain.Bundle {
	copy := *b
	copy.Signatures = append([]string(nil), b.Signatures...)
	return &copy
}

var _ storage.BundleStore = (*BundleStore)(nil)
