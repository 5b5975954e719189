// Package api exposes the curve, protection and submission HTTP endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/ledger"
	"solana-curve-guard/internal/mev"
	"solana-curve-guard/internal/observability"
	"solana-curve-guard/internal/protection"
	"solana-curve-guard/internal/storage"
)

// Ledger reads curve state and applies confirmed trades.
type Ledger interface {
	State(ctx context.Context, mint string) (domain.CurveState, error)
	ApplyConfirmedTrade(ctx context.Context, t ledger.ConfirmedTrade) (domain.CurveState, error)
}

// Submitter runs a protected submission.
type Submitter interface {
	Submit(ctx context.Context, req mev.SubmitRequest) (*mev.SubmitResult, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config holds the HTTP server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Deps aggregates what the handlers need.
type Deps struct {
	Calculator   *curve.Calculator
	Orchestrator *protection.Orchestrator
	Ledger       Ledger
	Submitter    Submitter
	Bundles      storage.BundleStore
	Limiter      storage.RateLimiter // optional
	Health       map[string]HealthCheck
	Logger       *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	deps       Deps
	logger     *zap.Logger
	handler    http.Handler
	httpServer *http.Server
	shutdown   time.Duration
}

// NewServer registers every route and wraps the mux in middleware.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: deps.Logger.Named("api"), shutdown: cfg.ShutdownTimeout}
	if s.shutdown <= 0 {
		s.shutdown = 15 * time.Second
	}

	mux := http.NewServeMux()

	// Curve previews
	mux.HandleFunc("GET /api/curve/{mint}/state", s.handleCurveState)
	mux.HandleFunc("POST /api/curve/{mint}/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/curve/{mint}/assess", s.handleAssess)
	mux.HandleFunc("GET /api/curve/table", s.handleCurveTable)

	// Submission
	mux.HandleFunc("POST /api/mev/submit", s.handleSubmit)
	mux.HandleFunc("GET /api/bundles/{id}", s.handleGetBundle)
	mux.HandleFunc("GET /api/bundles", s.handleListBundles)

	// Ledger
	mux.HandleFunc("POST /api/trades", s.handleTrade)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())

	var h http.Handler = mux
	h = instrument(s.logger)(h)
	if deps.Limiter != nil {
		h = rateLimit(deps.Limiter, s.logger)(h)
	}
	h = requestID(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
