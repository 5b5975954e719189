package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-curve-guard/internal/api"
	"solana-curve-guard/internal/config"
	"solana-curve-guard/internal/storage"
	"solana-curve-guard/internal/storage/memory"
	"solana-curve-guard/internal/storage/migrations"
	pgstore "solana-curve-guard/internal/storage/postgres"
	redisstore "solana-curve-guard/internal/storage/redis"
	s3archive "solana-curve-guard/internal/storage/s3"
)

// serviceStores holds every storage implementation the service uses.
type serviceStores struct {
	tokens   storage.TokenStore
	trades   storage.TradeStore
	bundles  storage.BundleStore
	gate     storage.BlockGate
	limiter  storage.RateLimiter
	archiver storage.Archiver // nil when archiving is disabled
	health   map[string]api.HealthCheck
}

// createStores connects the configured backends. The returned cleanup
// closes them in reverse order.
func createStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*serviceStores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*serviceStores, func(), error) {
		cleanup()
		return nil, nil, err
	}

	stores := &serviceStores{health: make(map[string]api.HealthCheck)}

	if cfg.UseMemory {
		logger.Warn("using in-memory storage, nothing survives a restart")
		stores.tokens = memory.NewTokenStore()
		stores.trades = memory.NewTradeStore()
		stores.bundles = memory.NewBundleStore()
	} else {
		// PostgreSQL
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, int32(cfg.Postgres.MaxConns))
		if err != nil {
			return fail(fmt.Errorf("connect to postgres: %w", err))
		}
		closers = append(closers, pool.Close)
		if cfg.Postgres.RunMigrations {
			applied, err := migrations.ApplyPostgres(ctx, pool)
			if err != nil {
				return fail(fmt.Errorf("postgres migrations: %w", err))
			}
			logger.Info("postgres schema ready", zap.Strings("applied", applied))
		}
		stores.health["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }

		stores.tokens = pgstore.NewTokenStore(pool)
		stores.bundles = pgstore.NewBundleStore(pool)
		stores.trades = pgstore.NewTradeStore(pool)

		// ClickHouse
		if cfg.ClickHouse.Enabled {
			analytics, err := migrations.OpenClickhouseTradeLog(ctx, cfg.ClickHouse.DSN)
			if err != nil {
				return fail(fmt.Errorf("clickhouse: %w", err))
			}
			conn := analytics.Conn()
			closers = append(closers, func() { _ = conn.Close() })
			stores.health["clickhouse"] = func(ctx context.Context) error { return conn.Ping(ctx) }

			stores.trades = storage.NewMirrorTradeStore(stores.trades, analytics, logger.Named("trades"))
		}
	}

	// Redis
	if cfg.Redis.Enabled {
		client, err := redisstore.New(ctx, redisstore.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("connect to redis: %w", err))
		}
		closers = append(closers, func() { _ = client.Close() })
		stores.health["redis"] = client.Ping

		stores.gate = redisstore.NewBlockGate(client)
		stores.limiter = redisstore.NewRateLimiter(client, cfg.Server.RateLimit, cfg.Server.RateWindow.Duration)
		stores.trades = redisstore.NewTradeCache(client, stores.trades, cfg.Redis.TradeCacheRetention.Duration, logger.Named("trade_cache"))
	} else {
		stores.gate = memory.NewBlockGate()
		stores.limiter = memory.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow.Duration)
	}

	// S3
	if cfg.S3.Enabled {
		archiver, err := s3archive.New(ctx, s3archive.Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("s3 archive: %w", err))
		}
		stores.archiver = archiver
		stores.health["s3"] = archiver.Health
	}

	return stores, cleanup, nil
}
