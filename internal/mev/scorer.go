package mev

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/observability"
)

// Score band limits.
const (
	BlockedAbove = 80.0
	HighAbove    = 60.0
	MediumAbove  = 30.0

	// FallbackScore is used when signals cannot be gathered.
	FallbackScore = 50.0
)

// Delay ranges per band.
var (
	blockedDelaySeconds = [2]int{15, 45}
	highWait            = [2]time.Duration{5 * time.Second, 15 * time.Second}
	mediumWait          = [2]time.Duration{1 * time.Second, 4 * time.Second}
)

// Scorer computes anti-sandwich risk scores from a RiskSignalSource.
// It never fails: signal errors degrade to FallbackScore.
type Scorer struct {
	signals RiskSignalSource
	logger  *zap.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithRand sets the random source used for delays.
func WithRand(r *rand.Rand) ScorerOption {
	return func(s *Scorer) {
		s.rng = r
	}
}

// NewScorer creates a scorer over signals.
func NewScorer(signals RiskSignalSource, logger *zap.Logger, opts ...ScorerOption) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scorer{
		signals: signals,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess scores a trade of size SOL on token.
func (s *Scorer) Assess(ctx context.Context, token string, size float64) domain.RiskAssessment {
	market, conflicts, err := s.gather(ctx, token, size)
	if err != nil {
		s.logger.Warn("risk analysis failed, using fallback score",
			zap.String("token", token),
			zap.Float64("score", FallbackScore),
			zap.Error(err),
		)
		observability.RecordDegradedProtection()
		observability.RecordRiskScore(string(domain.RiskLevelErrorFallback), FallbackScore)
		return domain.RiskAssessment{
			Score:    FallbackScore,
			Level:    domain.RiskLevelErrorFallback,
			Safe:     true,
			Reason:   "risk analysis unavailable",
			Degraded: true,
		}
	}

	score := Score(market, conflicts, size)
	a := s.classify(score)
	a.Market = market
	a.Conflicts = conflicts
	observability.RecordRiskScore(string(a.Level), a.Score)
	return a
}

func (s *Scorer) gather(ctx context.Context, token string, size float64) (domain.MarketAnalysis, int, error) {
	market, err := s.signals.MarketAnalysis(ctx, token)
	if err != nil {
		return domain.MarketAnalysis{}, 0, fmt.Errorf("market analysis: %w", err)
	}
	conflicts, err := s.signals.MempoolConflicts(ctx, token, size)
	if err != nil {
		return domain.MarketAnalysis{}, 0, fmt.Errorf("mempool scan: %w", err)
	}
	return market, conflicts, nil
}

// classify maps a score to its band.
func (s *Scorer) classify(score float64) domain.RiskAssessment {
	switch {
	case score > BlockedAbove:
		lo, hi := blockedDelaySeconds[0], blockedDelaySeconds[1]
		return domain.RiskAssessment{
			Score:          score,
			Level:          domain.RiskLevelBlocked,
			Safe:           false,
			Reason:         "High MEV risk detected. Transaction blocked for protection.",
			SuggestedDelay: lo + int(s.randN(int64(hi-lo+1))),
		}
	case score > HighAbove:
		return domain.RiskAssessment{Score: score, Level: domain.RiskLevelHighProtection, Safe: true}
	case score > MediumAbove:
		return domain.RiskAssessment{Score: score, Level: domain.RiskLevelMediumProtection, Safe: true}
	default:
		return domain.RiskAssessment{Score: score, Level: domain.RiskLevelLow, Safe: true}
	}
}

// ProtectiveDelay returns the randomized wait for a level.
// ERROR_FALLBACK waits like MEDIUM_PROTECTION.
func (s *Scorer) ProtectiveDelay(level domain.RiskLevel) time.Duration {
	switch level {
	case domain.RiskLevelHighProtection:
		return s.between(highWait)
	case domain.RiskLevelMediumProtection, domain.RiskLevelErrorFallback:
		return s.between(mediumWait)
	default:
		return 0
	}
}

func (s *Scorer) between(r [2]time.Duration) time.Duration {
	return r[0] + time.Duration(s.randN(int64(r[1]-r[0])+1))
}

func (s *Scorer) randN(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int64N(n)
}

// Score sums the risk contributions of market signals, mempool conflicts
// and the trade's own size.
func Score(m domain.MarketAnalysis, conflicts int, size float64) float64 {
	var score float64

	switch {
	case m.RecentVolume > 100:
		score += 20
	case m.RecentVolume > 50:
		score += 10
	}

	switch {
	case m.PriceVolatility > 20:
		score += 15
	case m.PriceVolatility > 10:
		score += 8
	}

	score += capped(float64(m.SuspiciousActivity)*10, 30)
	if m.MEVBotsActive {
		score += 15
	}

	score += capped(float64(conflicts)*10, 30)

	switch {
	case size > 10:
		score += 25
	case size > 5:
		score += 15
	}

	return score
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
