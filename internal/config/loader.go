package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (optional) over the defaults, loads a
// .env file when present, and applies CURVEGUARD_* overrides. The result is
// not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides lets operators inject secrets and endpoints at deploy
// time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setBool(&cfg.UseMemory, "CURVEGUARD_USE_MEMORY")

	// Server
	setStr(&cfg.Server.Addr, "CURVEGUARD_SERVER_ADDR")
	setInt(&cfg.Server.RateLimit, "CURVEGUARD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "CURVEGUARD_SERVER_RATE_WINDOW")

	// Risk
	setFloat64(&cfg.Risk.QuotePrice, "CURVEGUARD_RISK_QUOTE_PRICE")

	// Solana
	setStr(&cfg.Solana.RPCURL, "CURVEGUARD_SOLANA_RPC_URL")
	setStr(&cfg.Solana.WSURL, "CURVEGUARD_SOLANA_WS_URL")
	setStr(&cfg.Solana.Commitment, "CURVEGUARD_SOLANA_COMMITMENT")
	setStr(&cfg.Solana.KeypairPath, "CURVEGUARD_SOLANA_KEYPAIR_PATH")
	setStr(&cfg.Solana.PrivateKey, "CURVEGUARD_SOLANA_PRIVATE_KEY")
	setBool(&cfg.Solana.WatchActivity, "CURVEGUARD_SOLANA_WATCH_ACTIVITY")
	setStr(&cfg.Solana.CurveProgram, "CURVEGUARD_SOLANA_CURVE_PROGRAM")

	// Jito
	setBool(&cfg.Jito.Enabled, "CURVEGUARD_JITO_ENABLED")
	setStr(&cfg.Jito.BaseURL, "CURVEGUARD_JITO_BASE_URL")
	setStr(&cfg.Jito.AuthUUID, "CURVEGUARD_JITO_AUTH_UUID")

	// Postgres / ClickHouse
	setStr(&cfg.Postgres.DSN, "CURVEGUARD_POSTGRES_DSN")
	setInt(&cfg.Postgres.MaxConns, "CURVEGUARD_POSTGRES_MAX_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CURVEGUARD_POSTGRES_RUN_MIGRATIONS")
	setBool(&cfg.ClickHouse.Enabled, "CURVEGUARD_CLICKHOUSE_ENABLED")
	setStr(&cfg.ClickHouse.DSN, "CURVEGUARD_CLICKHOUSE_DSN")

	// Redis
	setBool(&cfg.Redis.Enabled, "CURVEGUARD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CURVEGUARD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CURVEGUARD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CURVEGUARD_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "CURVEGUARD_REDIS_TLS_ENABLED")

	// S3
	setBool(&cfg.S3.Enabled, "CURVEGUARD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CURVEGUARD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CURVEGUARD_S3_REGION")
	setStr(&cfg.S3.Bucket, "CURVEGUARD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CURVEGUARD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CURVEGUARD_S3_SECRET_KEY")

	// Log
	setStr(&cfg.Log.Level, "CURVEGUARD_LOG_LEVEL")
	setStr(&cfg.Log.Format, "CURVEGUARD_LOG_FORMAT")
	setStr(&cfg.Log.File, "CURVEGUARD_LOG_FILE")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
