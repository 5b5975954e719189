package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
// Counters are exchanged as text so NUMERIC precision survives the round trip.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Get retrieves counters for a mint. Returns ErrNotFound if none recorded.
func (s *TokenStore) Get(ctx context.Context, mint string) (c *domain.TokenCounters, err error) {
	defer func(start time.Time) { observe("token_get", start, err) }(time.Now())

	query := `
		SELECT mint, sol_raised::text, tokens_sold::text, updated_at
		FROM token_counters
		WHERE mint = $1
	`

	c, err = scanCounters(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token counters: %w", err)
	}
	return c, nil
}

// Put inserts or replaces counters for a mint.
func (s *TokenStore) Put(ctx context.Context, c *domain.TokenCounters) (err error) {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("token_put", start, err) }(time.Now())

	query := `
		INSERT INTO token_counters (mint, sol_raised, tokens_sold, updated_at)
		VALUES ($1, $2::numeric, $3::numeric, $4)
		ON CONFLICT (mint) DO UPDATE SET
			sol_raised = EXCLUDED.sol_raised,
			tokens_sold = EXCLUDED.tokens_sold,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query, c.Mint, c.SolRaised.String(), c.TokensSold.String(), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put token counters: %w", err)
	}
	return nil
}

// Update applies fn to the mint's counters inside a transaction holding the
// row lock. Missing counters start at zero.
func (s *TokenStore) Update(ctx context.Context, mint string, fn func(c *domain.TokenCounters) error) (out *domain.TokenCounters, err error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("token_update", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Make sure a row exists so concurrent first updates serialize on it.
	if _, err := tx.Exec(ctx, `
		INSERT INTO token_counters (mint) VALUES ($1)
		ON CONFLICT (mint) DO NOTHING
	`, mint); err != nil {
		return nil, fmt.Errorf("seed token counters: %w", err)
	}

	c, err := scanCounters(tx.QueryRow(ctx, `
		SELECT mint, sol_raised::text, tokens_sold::text, updated_at
		FROM token_counters
		WHERE mint = $1
		FOR UPDATE
	`, mint))
	if err != nil {
		return nil, fmt.Errorf("lock token counters: %w", err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.Mint = mint
	c.UpdatedAt = time.Now().UnixMilli()

	if _, err := tx.Exec(ctx, `
		UPDATE token_counters
		SET sol_raised = $2::numeric, tokens_sold = $3::numeric, updated_at = $4
		WHERE mint = $1
	`, mint, c.SolRaised.String(), c.TokensSold.String(), c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update token counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return c, nil
}

func scanCounters(row pgx.Row) (*domain.TokenCounters, error) {
	var (
		c                     domain.TokenCounters
		solRaised, tokensSold string
	)
	if err := row.Scan(&c.Mint, &solRaised, &tokensSold, &c.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.SolRaised, err = decimal.NewFromString(solRaised); err != nil {
		return nil, fmt.Errorf("parse sol_raised: %w", err)
	}
	if c.TokensSold, err = decimal.NewFromString(tokensSold); err != nil {
		return nil, fmt.Errorf("parse tokens_sold: %w", err)
	}
	return &c, nil
}
