package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// BundleStore implements storage.BundleStore using PostgreSQL.
type BundleStore struct {
	pool *Pool
}

// NewBundleStore creates a new BundleStore.
func NewBundleStore(pool *Pool) *BundleStore {
	return &BundleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BundleStore = (*BundleStore)(nil)

const bundleColumns = `
	bundle_id, tier, status, signatures, wallet, token_address,
	transaction_count, priority_fee, compute_units,
	risk_score, risk_level, delay_ms, degraded,
	backend, relay_bundle_id, slot, error, created_at
`

// Insert adds a new bundle. Returns ErrDuplicateKey if bundle_id exists.
func (s *BundleStore) Insert(ctx context.Context, b *domain.Bundle) (err error) {
	if b == nil || b.BundleID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("bundle_insert", start, err) }(time.Now())

	query := `
		INSERT INTO bundles (` + bundleColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)
	`

	signatures := b.Signatures
	if signatures == nil {
		signatures = []string{}
	}

	_, err = s.pool.Exec(ctx, query,
		b.BundleID, string(b.Tier), string(b.Status), signatures, b.Wallet, b.TokenAddress,
		b.TransactionCount, int64(b.PriorityFee), int64(b.ComputeUnits),
		b.RiskScore, string(b.RiskLevel), b.DelayMs, b.Degraded,
		b.Backend, b.RelayBundleID, b.Slot, b.Error, b.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bundle: %w", err)
	}
	return nil
}

// GetByID retrieves a bundle. Returns ErrNotFound if not exists.
func (s *BundleStore) GetByID(ctx context.Context, bundleID string) (b *domain.Bundle, err error) {
	defer func(start time.Time) { observe("bundle_get", start, err) }(time.Now())

	query := `SELECT ` + bundleColumns + ` FROM bundles WHERE bundle_id = $1`

	b, err = scanBundle(s.pool.QueryRow(ctx, query, bundleID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bundle by id: %w", err)
	}
	return b, nil
}

// GetByWallet retrieves up to limit bundles for a wallet, newest first.
// A non-positive limit returns all bundles.
func (s *BundleStore) GetByWallet(ctx context.Context, wallet string, limit int) (bundles []*domain.Bundle, err error) {
	defer func(start time.Time) { observe("bundle_by_wallet", start, err) }(time.Now())

	query := `
		SELECT ` + bundleColumns + `
		FROM bundles
		WHERE wallet = $1
		ORDER BY created_at DESC, bundle_id ASC
	`
	args := []interface{}{wallet}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get bundles by wallet: %w", err)
	}
	defer rows.Close()

	bundles = []*domain.Bundle{}
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bundle row: %w", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bundle rows: %w", err)
	}
	return bundles, nil
}

func scanBundle(row pgx.Row) (*domain.Bundle, error) {
	var (
		b                       domain.Bundle
		tier, status, level     string
		priorityFee, computeCUs int64
	)

	err := row.Scan(
		&b.BundleID, &tier, &status, &b.Signatures, &b.Wallet, &b.TokenAddress,
		&b.TransactionCount, &priorityFee, &computeCUs,
		&b.RiskScore, &level, &b.DelayMs, &b.Degraded,
		&b.Backend, &b.RelayBundleID, &b.Slot, &b.Error, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Tier = domain.BundleTier(tier)
	b.Status = domain.BundleStatus(status)
	b.RiskLevel = domain.RiskLevel(level)
	b.PriorityFee = uint64(priorityFee)
	b.ComputeUnits = uint32(computeCUs)
	return &b, nil
}
