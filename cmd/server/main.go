// Package main runs the curve-guard HTTP service: curve previews, trade
// protection, protected submission and the confirmed-trade ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-curve-guard/internal/api"
	"solana-curve-guard/internal/config"
	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/feeoracle"
	"solana-curve-guard/internal/jito"
	"solana-curve-guard/internal/ledger"
	"solana-curve-guard/internal/logging"
	"solana-curve-guard/internal/mev"
	"solana-curve-guard/internal/protection"
	"solana-curve-guard/internal/solana"
)

func main() {
	configPath := flag.String("config", os.Getenv("CURVEGUARD_CONFIG"), "Path to TOML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.UseMemory = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closeLog := logging.Must(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer func() {
		_ = logger.Sync()
		_ = closeLog()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	calc, err := curve.NewCalculator(cfg.Curve.Domain())
	if err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	assessor := protection.NewAssessor(calc, cfg.Slippage.Protection())
	orchestrator := protection.NewOrchestrator(assessor, cfg.Risk.Protection())

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Chain access
	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL,
		solana.WithTimeout(cfg.Solana.Timeout.Duration),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithSkipPreflight(cfg.Solana.SkipPreflight),
		solana.WithCommitment(cfg.Solana.Commitment),
	)
	stores.health["solana"] = func(ctx context.Context) error {
		_, err := rpc.GetSlot(ctx)
		return err
	}

	var conflicts mev.ConflictScanner
	if cfg.Solana.WatchActivity {
		wsCfg := solana.DefaultWSConfig()
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSURL, &wsCfg, logger.Named("ws"))
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()

		scanner := solana.NewActivityScanner(ws, logger.Named("activity"),
			solana.WithCurveProgram(cfg.Solana.CurveProgram))
		defer scanner.Close()
		conflicts = scanner
	}

	var signer solana.Signer
	if cfg.Solana.KeypairPath != "" || cfg.Solana.PrivateKey != "" {
		kp, err := solana.LoadKeypairSigner(cfg.Solana.KeypairPath, cfg.Solana.PrivateKey)
		if err != nil {
			return fmt.Errorf("load signer: %w", err)
		}
		logger.Info("service signer loaded", zap.String("pubkey", kp.PublicKey().String()))
		signer = kp
	} else {
		logger.Warn("no service signer configured, only presigned transactions are accepted")
	}

	fees := feeoracle.New(rpc, feeoracle.Config{
		Percentile: cfg.Fees.Percentile,
		DefaultFee: cfg.Fees.DefaultFee,
		MinFee:     cfg.Fees.MinFee,
		MaxFee:     cfg.Fees.MaxFee,
		CacheTTL:   cfg.Fees.CacheTTL.Duration,
	}, logger.Named("fees"))
	if _, err := fees.RecommendedFee(ctx, domain.TierStandard); err != nil {
		logger.Warn("fee oracle warmup failed, default fee in use", zap.Error(err))
	}

	confirmer := solana.NewConfirmer(rpc,
		solana.WithPollInterval(cfg.Solana.PollInterval.Duration),
		solana.WithConfirmTimeout(cfg.Solana.ConfirmTimeout.Duration),
		solana.WithConfirmCommitment(cfg.Solana.Commitment),
	)

	var atomic mev.AtomicBackend
	if cfg.Jito.Enabled {
		atomic = jito.NewClient(jito.Config{
			BaseURL:      cfg.Jito.BaseURL,
			AuthUUID:     cfg.Jito.AuthUUID,
			Timeout:      cfg.Jito.Timeout.Duration,
			RetryCount:   2,
			PollInterval: cfg.Jito.PollInterval.Duration,
			AwaitTimeout: cfg.Jito.AwaitTimeout.Duration,
		}, logger.Named("jito"))
	} else {
		logger.Warn("no atomic relay configured, flash bundles fall back to sequential submission")
	}

	mevLog := logger.Named("mev")
	submitter := mev.NewSubmitter(mev.SubmitterOptions{
		Scorer:     mev.NewScorer(mev.NewStoreSignalSource(stores.trades, conflicts), mevLog),
		Waiter:     mev.TimerWaiter{},
		Enhancer:   solana.NewEnhancer(signer, logger.Named("enhancer")),
		Fees:       fees,
		Sequential: mev.NewSequentialBackend(rpc, confirmer, mev.TimerWaiter{}, mevLog),
		Atomic:     atomic,
		Bundles:    stores.bundles,
		Gate:       stores.gate,
		Archiver:   stores.archiver,
		Logger:     mevLog,
		SavingsFn:  protection.FormatSavings,
	})

	server := api.NewServer(api.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout.Duration,
		WriteTimeout:    cfg.Server.WriteTimeout.Duration,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration,
	}, api.Deps{
		Calculator:   calc,
		Orchestrator: orchestrator,
		Ledger:       ledger.New(calc, stores.tokens, stores.trades, logger.Named("ledger")),
		Submitter:    submitter,
		Bundles:      stores.bundles,
		Limiter:      stores.limiter,
		Health:       stores.health,
		Logger:       logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	return g.Wait()
}
