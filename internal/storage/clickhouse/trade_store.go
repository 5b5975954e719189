package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/observability"
	"solana-curve-guard/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse.
// MergeTree does not enforce uniqueness, so Insert checks trade_id first.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Conn returns the connection the store writes to.
func (s *TradeStore) Conn() *Conn {
	return s.conn
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	return s.InsertBulk(ctx, []*domain.TradeRecord{t})
}

// InsertBulk adds multiple trades. Fails entire batch on any duplicate trade_id.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) (err error) {
	if len(trades) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "trade_insert", time.Since(start).Seconds(), err)
	}(time.Now())

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.Mint == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.TradeID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, t := range trades {
		exists, err := s.exists(ctx, t.TradeID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trades (
			trade_id, mint, wallet, direction,
			sol_amount, token_amount, price, market_cap, profit_pct,
			signature, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			t.TradeID, t.Mint, t.Wallet, string(t.Direction),
			t.SolAmount, t.TokenAmount, t.Price, t.MarketCap, t.ProfitPct,
			t.Signature, t.TimestampMs,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// RecentTrades retrieves trades for a mint since sinceMs, ordered by timestamp ASC.
func (s *TradeStore) RecentTrades(ctx context.Context, mint string, sinceMs int64) (trades []*domain.TradeRecord, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "trade_recent", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT
			trade_id, mint, wallet, direction,
			sol_amount, token_amount, price, market_cap, profit_pct,
			signature, timestamp_ms
		FROM trades FINAL
		WHERE mint = ? AND timestamp_ms >= ?
		ORDER BY timestamp_ms ASC, trade_id ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// exists checks if a trade with the given id exists.
func (s *TradeStore) exists(ctx context.Context, tradeID string) (bool, error) {
	query := `SELECT count(*) FROM trades WHERE trade_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, tradeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanTrades scans multiple rows.
func scanTrades(rows chRows) ([]*domain.TradeRecord, error) {
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
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.Direction = domain.Direction(direction)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
