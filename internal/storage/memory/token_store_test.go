package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

func TestTokenStore_GetPut(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "mintA")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	c := &domain.TokenCounters{
		Mint:       "mintA",
		SolRaised:  decimal.RequireFromString("1.5"),
		TokensSold: decimal.NewFromInt(1_000_000),
	}
	require.NoError(t, store.Put(ctx, c))

	got, err := store.Get(ctx, "mintA")
	require.NoError(t, err)
	assert.True(t, got.SolRaised.Equal(c.SolRaised))
	assert.True(t, got.TokensSold.Equal(c.TokensSold))

	assert.ErrorIs(t, store.Put(ctx, &domain.TokenCounters{}), storage.ErrInvalidInput)
}

func TestTokenStore_UpdateStartsAtZero(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	got, err := store.Update(ctx, "mintA", func(c *domain.TokenCounters) error {
		assert.True(t, c.SolRaised.IsZero())
		c.SolRaised = c.SolRaised.Add(decimal.NewFromInt(2))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2", got.SolRaised.String())
	assert.NotZero(t, got.UpdatedAt)
}

func TestTokenStore_UpdateErrorLeavesCounters(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &domain.TokenCounters{Mint: "mintA", SolRaised: decimal.NewFromInt(1)}))

	boom := errors.New("boom")
	_, err := store.Update(ctx, "mintA", func(c *domain.TokenCounters) error {
		c.SolRaised = decimal.NewFromInt(99)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "mintA")
	require.NoError(t, err)
	assert.Equal(t, "1", got.SolRaised.String())
}

func TestTokenStore_ConcurrentUpdates(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "mintA", func(c *domain.TokenCounters) error {
				c.TokensSold = c.TokensSold.Add(decimal.NewFromInt(10))
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "mintA")
	require.NoError(t, err)
	assert.Equal(t, "500", got.TokensSold.String())
}
