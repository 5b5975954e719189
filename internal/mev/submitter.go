package mev

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/observability"
	"solana-curve-guard/internal/storage"
)

// MaxTransactions is the largest bundle accepted in one request.
const MaxTransactions = 5

// Enhancer prepares one base64 transaction for submission, adding the
// compute budget when the transaction is still unsigned.
type Enhancer interface {
	Enhance(ctx context.Context, txBase64 string, plan domain.FeePlan) (*domain.PreparedTx, error)
}

// FeeOracle recommends a priority fee in micro-lamports per compute unit.
type FeeOracle interface {
	RecommendedFee(ctx context.Context, tier domain.BundleTier) (uint64, error)
}

// SubmitRequest is one protected submission request.
type SubmitRequest struct {
	RequestID     string   `json:"-"` // set by the server; generated when empty
	Transactions  []string `json:"transactions"` // base64 encoded
	UserWallet    string   `json:"userWallet"`
	BundleType    string   `json:"bundleType"`
	TokenAddress  string   `json:"tokenAddress,omitempty"`
	ExpectedPrice float64  `json:"expectedPrice,omitempty"`
	MaxSlippage   float64  `json:"maxSlippage,omitempty"`
	TradeSize     float64  `json:"tradeSize,omitempty"` // SOL
}

// SubmitResult is the outcome of a submission that passed the risk check.
type SubmitResult struct {
	BundleID         string              `json:"bundleId"`
	Status           domain.BundleStatus `json:"status"`
	Signatures       []string            `json:"signatures"`
	ProtectionLevel  domain.BundleTier   `json:"protectionLevel"`
	Degraded         bool                `json:"degraded"`
	Backend          string              `json:"backend"`
	RiskScore        float64             `json:"riskScore"`
	RiskLevel        domain.RiskLevel    `json:"riskLevel"`
	Slot             int64               `json:"slot,omitempty"`
	EstimatedSavings string              `json:"estimatedSavings"`
	Error            string              `json:"error,omitempty"`
}

// BlockedError is returned when the risk check rejects a submission.
type BlockedError struct {
	BundleID       string  `json:"bundleId"`
	Reason         string  `json:"reason"`
	SuggestedDelay int     `json:"suggestedDelay"` // seconds
	RiskScore      float64 `json:"riskScore"`
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s (retry in %ds, score %.0f)", e.Reason, e.SuggestedDelay, e.RiskScore)
}

// Is matches domain.ErrBlocked.
func (e *BlockedError) Is(target error) bool {
	return target == domain.ErrBlocked
}

// BackoffError is returned for submissions inside an open retry window.
type BackoffError struct {
	Remaining time.Duration
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("%s: %s remaining", domain.ErrBackoffActive, e.Remaining.Round(time.Second))
}

// Is matches domain.ErrBackoffActive.
func (e *BackoffError) Is(target error) bool {
	return target == domain.ErrBackoffActive
}

// SubmitterOptions contains dependencies for creating a Submitter.
type SubmitterOptions struct {
	Scorer     *Scorer
	Waiter     Waiter
	Enhancer   Enhancer
	Fees       FeeOracle
	Sequential Backend
	Atomic     AtomicBackend // nil when no relay is configured
	Bundles    storage.BundleStore
	Gate       storage.BlockGate // optional
	Archiver   storage.Archiver  // optional
	Logger     *zap.Logger
	SavingsFn  func(tier domain.BundleTier, txCount int) string
}

// Submitter runs the protected submission state machine:
// RECEIVED → CHECK → {BLOCKED | DELAYED → SAFE | SAFE} → ENHANCE → SUBMIT → {INCLUDED | FAILED}.
// It keeps no per-request state and is safe for concurrent use.
type Submitter struct {
	scorer     *Scorer
	waiter     Waiter
	enhancer   Enhancer
	fees       FeeOracle
	sequential Backend
	atomic     Backend
	bundles    storage.BundleStore
	gate       storage.BlockGate
	archiver   storage.Archiver
	logger     *zap.Logger
	savings    func(domain.BundleTier, int) string
	now        func() time.Time
}

// NewSubmitter creates a submitter.
func NewSubmitter(opts SubmitterOptions) *Submitter {
	s := &Submitter{
		scorer:     opts.Scorer,
		waiter:     opts.Waiter,
		enhancer:   opts.Enhancer,
		fees:       opts.Fees,
		sequential: opts.Sequential,
		bundles:    opts.Bundles,
		gate:       opts.Gate,
		archiver:   opts.Archiver,
		logger:     opts.Logger,
		savings:    opts.SavingsFn,
		now:        time.Now,
	}
	if opts.Atomic != nil {
		s.atomic = atomicAdapter{relay: opts.Atomic}
	}
	if s.waiter == nil {
		s.waiter = TimerWaiter{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.savings == nil {
		s.savings = func(domain.BundleTier, int) string { return "" }
	}
	return s
}

// Submit scores, enhances and submits the request's transactions.
// Returns *BlockedError when the risk check rejects the trade and
// *BackoffError inside an open retry window. A failed submission is
// reported through the result status, not the error.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	// RECEIVED
	tier, err := validateRequest(&req)
	if err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	params := tier.Params()
	log := s.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("wallet", req.UserWallet),
		zap.String("token", req.TokenAddress),
		zap.String("tier", string(tier)),
	)
	log.Info("submission received", zap.Int("tx_count", len(req.Transactions)), zap.Float64("trade_size", req.TradeSize))

	gateKey := backoffKey(req.UserWallet, req.TokenAddress)
	if remaining := s.blockedFor(ctx, log, gateKey); remaining > 0 {
		observability.RecordBackoffRejection()
		log.Info("submission inside retry window", zap.Duration("remaining", remaining))
		return nil, &BackoffError{Remaining: remaining}
	}

	bundle := &domain.Bundle{
		BundleID:         uuid.NewString(),
		Tier:             tier,
		Status:           domain.BundleStatusPending,
		Signatures:       []string{},
		Wallet:           req.UserWallet,
		TokenAddress:     req.TokenAddress,
		TransactionCount: len(req.Transactions),
		ComputeUnits:     params.ComputeUnits,
		CreatedAt:        s.now().UnixMilli(),
	}

	// CHECK
	risk := s.scorer.Assess(ctx, req.TokenAddress, req.TradeSize)
	bundle.RiskScore = risk.Score
	bundle.RiskLevel = risk.Level
	bundle.Degraded = risk.Degraded
	log.Info("risk assessed",
		zap.Float64("score", risk.Score),
		zap.String("level", string(risk.Level)),
		zap.Bool("degraded", risk.Degraded),
	)

	if !risk.Safe {
		// BLOCKED
		observability.RecordBlocked()
		bundle.Status = domain.BundleStatusFailed
		bundle.Error = risk.Reason
		s.record(ctx, log, bundle)

		if s.gate != nil {
			until := s.now().Add(time.Duration(risk.SuggestedDelay) * time.Second)
			if err := s.gate.Block(ctx, gateKey, until); err != nil {
				log.Warn("open retry window failed", zap.Error(err))
			}
		}
		log.Warn("submission blocked", zap.Int("suggested_delay_s", risk.SuggestedDelay))
		return nil, &BlockedError{
			BundleID:       bundle.BundleID,
			Reason:         risk.Reason,
			SuggestedDelay: risk.SuggestedDelay,
			RiskScore:      risk.Score,
		}
	}

	// DELAYED → SAFE
	if delay := s.scorer.ProtectiveDelay(risk.Level); delay > 0 {
		log.Info("protective delay", zap.Duration("delay", delay))
		observability.RecordProtectiveDelay(delay.Seconds())
		bundle.DelayMs = delay.Milliseconds()
		if err := s.waiter.Wait(ctx, delay); err != nil {
			bundle.Status = domain.BundleStatusFailed
			bundle.Error = "cancelled during protective delay: " + err.Error()
			s.record(ctx, log, bundle)
			return nil, err
		}
	}

	// ENHANCE
	fee, err := s.fees.RecommendedFee(ctx, tier)
	if err != nil {
		log.Warn("fee oracle failed", zap.Error(err))
	}
	bundle.PriorityFee = fee
	plan := domain.FeePlan{ComputeUnits: params.ComputeUnits, MicroLamports: fee}

	prepared := make([]*domain.PreparedTx, 0, len(req.Transactions))
	for i, raw := range req.Transactions {
		tx, err := s.enhancer.Enhance(ctx, raw, plan)
		if err != nil {
			bundle.Status = domain.BundleStatusFailed
			bundle.Error = fmt.Sprintf("enhance tx %d: %v", i, err)
			s.record(ctx, log, bundle)
			observability.RecordSubmission(string(tier), string(bundle.Status))
			if errors.Is(err, domain.ErrValidation) {
				return nil, err
			}
			return s.result(bundle), nil
		}
		prepared = append(prepared, tx)
	}
	log.Info("transactions prepared", zap.Uint64("priority_fee", fee), zap.Uint32("compute_units", params.ComputeUnits))

	// SUBMIT
	backend := s.sequential
	bundle.Backend = backend.Name()
	if tier == domain.TierFlash {
		if s.atomic != nil {
			backend = s.atomic
			bundle.Backend = backend.Name()
		} else {
			bundle.Degraded = true
			bundle.Backend = domain.BackendSequentialFallback
			observability.RecordFallbackSubmission()
			log.Warn("no atomic relay configured, submitting flash bundle sequentially")
		}
	}

	sub := backend.Submit(ctx, prepared, params)
	bundle.Signatures = append(bundle.Signatures, sub.Signatures...)
	bundle.Slot = sub.Slot
	bundle.RelayBundleID = sub.RelayBundleID
	if sub.Included {
		bundle.Status = domain.BundleStatusIncluded
	} else {
		bundle.Status = domain.BundleStatusFailed
		if sub.Err != nil {
			bundle.Error = sub.Err.Error()
		}
	}

	s.record(ctx, log, bundle)
	observability.RecordSubmission(string(tier), string(bundle.Status))
	log.Info("submission finished",
		zap.String("bundle_id", bundle.BundleID),
		zap.String("status", string(bundle.Status)),
		zap.String("backend", bundle.Backend),
		zap.Int("signatures", len(bundle.Signatures)),
	)
	return s.result(bundle), nil
}

func (s *Submitter) result(b *domain.Bundle) *SubmitResult {
	return &SubmitResult{
		BundleID:         b.BundleID,
		Status:           b.Status,
		Signatures:       b.Signatures,
		ProtectionLevel:  b.Tier,
		Degraded:         b.Degraded,
		Backend:          b.Backend,
		RiskScore:        b.RiskScore,
		RiskLevel:        b.RiskLevel,
		Slot:             b.Slot,
		EstimatedSavings: s.savings(b.Tier, b.TransactionCount),
		Error:            b.Error,
	}
}

// record persists the audit record even when ctx is already cancelled.
func (s *Submitter) record(ctx context.Context, log *zap.Logger, b *domain.Bundle) {
	ctx = context.WithoutCancel(ctx)
	if err := s.bundles.Insert(ctx, b); err != nil {
		log.Error("persist bundle failed", zap.String("bundle_id", b.BundleID), zap.Error(err))
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, b); err != nil {
			log.Warn("archive bundle failed", zap.String("bundle_id", b.BundleID), zap.Error(err))
		}
	}
}

// blockedFor checks the retry window. Gate errors are logged and ignored.
func (s *Submitter) blockedFor(ctx context.Context, log *zap.Logger, key string) time.Duration {
	if s.gate == nil {
		return 0
	}
	remaining, err := s.gate.BlockedFor(ctx, key)
	if err != nil {
		log.Warn("retry window lookup failed", zap.Error(err))
		return 0
	}
	return remaining
}

func backoffKey(wallet, token string) string {
	return wallet + ":" + token
}

func validateRequest(req *SubmitRequest) (domain.BundleTier, error) {
	if len(req.Transactions) == 0 {
		return "", domain.NewValidationError("transactions", "no transactions provided")
	}
	if len(req.Transactions) > MaxTransactions {
		return "", domain.NewValidationError("transactions", fmt.Sprintf("at most %d transactions per bundle", MaxTransactions))
	}
	for i, tx := range req.Transactions {
		if strings.TrimSpace(tx) == "" {
			return "", domain.NewValidationError("transactions", fmt.Sprintf("transaction %d is empty", i))
		}
	}
	if strings.TrimSpace(req.UserWallet) == "" {
		return "", domain.NewValidationError("userWallet", "required")
	}
	if req.TradeSize < 0 {
		return "", domain.WrapValidation("tradeSize", domain.ErrInvalidAmount)
	}
	if req.MaxSlippage < 0 || req.MaxSlippage > 100 {
		return "", domain.NewValidationError("maxSlippage", "must be within [0, 100]")
	}
	tier, err := domain.ParseTier(req.BundleType)
	if err != nil {
		return "", domain.WrapValidation("bundleType", err)
	}
	return tier, nil
}
