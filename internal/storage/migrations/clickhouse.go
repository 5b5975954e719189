package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "solana-curve-guard/internal/storage/clickhouse"
)

// OpenClickhouseTradeLog creates the DSN's database if needed, applies the
// ClickHouse migrations and returns the analytics trade store on it.
// Closing the store's Conn releases the connection.
func OpenClickhouseTradeLog(ctx context.Context, dsn string) (*chstore.TradeStore, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	all, err := scripts("clickhouse")
	if err != nil {
		return nil, err
	}

	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName)
	_ = admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}
	for _, s := range all {
		if err := applyClickhouse(ctx, conn, s); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return chstore.NewTradeStore(conn), nil
}

// The driver runs one statement per Exec.
func applyClickhouse(ctx context.Context, conn *chstore.Conn, s script) error {
	if err := validateNoSemicolonInStrings(s.SQL); err != nil {
		return fmt.Errorf("migration %s: %w", s.Version, err)
	}
	for _, stmt := range splitStatements(s.SQL) {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.Version, err)
		}
	}
	return nil
}

// splitStatements drops "--" comment lines and splits on semicolons.
// Migrations keep semicolons out of string literals and block comments.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL that splitStatements would cut
// inside a quoted literal.
func validateNoSemicolonInStrings(sql string) error {
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if quoted && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			quoted = !quoted
		case ';':
			if quoted {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn %q names no database", u.Redacted())
	}
	return db, nil
}
