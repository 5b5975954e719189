package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) (err error) {
	if t == nil || t.TradeID == "" || t.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("trade_insert", start, err) }(time.Now())

	query := `
		INSERT INTO trade_records (
			trade_id, mint, wallet, direction,
			sol_amount, token_amount, price, market_cap, profit_pct,
			signature, timestamp_ms
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11
		)
	`

	_, err = s.pool.Exec(ctx, query,
		t.TradeID, t.Mint, t.Wallet, string(t.Direction),
		t.SolAmount, t.TokenAmount, t.Price, t.MarketCap, t.ProfitPct,
		t.Signature, t.TimestampMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// RecentTrades retrieves trades for a mint since sinceMs, ordered by timestamp ASC.
func (s *TradeStore) RecentTrades(ctx context.Context, mint string, sinceMs int64) (trades []*domain.TradeRecord, err error) {
	defer func(start time.Time) { observe("trade_recent", start, err) }(time.Now())

	query := `
		SELECT
			trade_id, mint, wallet, direction,
			sol_amount, token_amount, price, market_cap, profit_pct,
			signature, timestamp_ms
		FROM trade_records
		WHERE mint = $1 AND timestamp_ms >= $2
		ORDER BY timestamp_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("get recent trades: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	trades := []*domain.TradeRecord{}

	for rows.Next() {
		var (
			t         domain.TradeRecord
			direction string
		)

		err := rows.Scan(
			&t.TradeID, &t.Mint, &t.Wallet, &direction,
			&t.SolAmount, &t.TokenAmount, &t.Price, &t.MarketCap, &t.ProfitPct,
			&t.Signature, &t.TimestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		t.Direction = domain.Direction(direction)

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
