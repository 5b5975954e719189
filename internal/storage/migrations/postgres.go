package migrations

import (
	"context"
	"fmt"

	"solana-curve-guard/internal/storage/postgres"
)

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ApplyPostgres applies every migration not yet listed in schema_migrations,
// each in its own transaction, and returns the versions it applied.
func ApplyPostgres(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	all, err := scripts("postgres")
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	done, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, s := range all {
		if done[s.Version] {
			continue
		}
		if err := applyPostgres(ctx, pool, s); err != nil {
			return applied, err
		}
		applied = append(applied, s.Version)
	}
	return applied, nil
}

func appliedVersions(ctx context.Context, pool *postgres.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

func applyPostgres(ctx context.Context, pool *postgres.Pool, s script) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", s.Version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, s.SQL); err != nil {
		return fmt.Errorf("apply migration %s: %w", s.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, s.Version); err != nil {
		return fmt.Errorf("record migration %s: %w", s.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", s.Version, err)
	}
	return nil
}
