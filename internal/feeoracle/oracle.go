// Package feeoracle recommends compute-unit prices from recent network fees.
package feeoracle

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/solana"
)

// FeeSource returns recent per-slot prioritization fees.
type FeeSource interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]solana.PrioritizationFee, error)
}

// Config configures the oracle.
type Config struct {
	// Percentile of non-zero recent fees used as the base fee, in (0,100].
	Percentile float64
	// DefaultFee is the base fee when no recent data is available.
	DefaultFee uint64
	// MinFee and MaxFee bound the base fee. MaxFee 0 means unbounded.
	MinFee uint64
	MaxFee uint64
	// CacheTTL is how long a base fee is reused.
	CacheTTL time.Duration
	// Accounts narrows the fee sample to transactions touching them.
	Accounts []string
	// FetchTimeout bounds one shared lookup. It does not follow the
	// cancellation of the caller that started it.
	FetchTimeout time.Duration
}

// DefaultConfig returns the default oracle configuration.
func DefaultConfig() Config {
	return Config{
		Percentile:   75,
		DefaultFee:   100_000,
		MinFee:       10_000,
		MaxFee:       5_000_000,
		CacheTTL:     2 * time.Second,
		FetchTimeout: 5 * time.Second,
	}
}

// Oracle implements the submitter's fee oracle.
type Oracle struct {
	source FeeSource
	cfg    Config
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time

	mu       sync.Mutex
	cached   uint64
	cachedAt time.Time
}

// New creates a fee oracle.
func New(source FeeSource, cfg Config, logger *zap.Logger) *Oracle {
	def := DefaultConfig()
	if cfg.Percentile <= 0 || cfg.Percentile > 100 {
		cfg.Percentile = def.Percentile
	}
	if cfg.DefaultFee == 0 {
		cfg.DefaultFee = def.DefaultFee
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{source: source, cfg: cfg, logger: logger, now: time.Now}
}

// RecommendedFee returns the tier-scaled priority fee in micro-lamports per
// compute unit. On lookup failure it returns the scaled default fee along
// with the error.
func (o *Oracle) RecommendedFee(ctx context.Context, tier domain.BundleTier) (uint64, error) {
	if !tier.IsValid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownTier, tier)
	}
	mult := tier.Params().FeeMultiplier

	base, err := o.baseFee(ctx)
	if err != nil {
		return scale(o.cfg.DefaultFee, mult), err
	}
	return scale(base, mult), nil
}

func (o *Oracle) baseFee(ctx context.Context) (uint64, error) {
	o.mu.Lock()
	if !o.cachedAt.IsZero() && o.now().Sub(o.cachedAt) < o.cfg.CacheTTL {
		fee := o.cached
		o.mu.Unlock()
		return fee, nil
	}
	o.mu.Unlock()

	ch := o.group.DoChan("base", func() (interface{}, error) {
		// shared by every waiting caller
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.FetchTimeout)
		defer cancel()

		fees, err := o.source.GetRecentPrioritizationFees(fetchCtx, o.cfg.Accounts)
		if err != nil {
			return uint64(0), fmt.Errorf("recent prioritization fees: %w", err)
		}
		fee := o.clamp(Percentile(fees, o.cfg.Percentile))
		if fee == 0 {
			fee = o.clamp(o.cfg.DefaultFee)
		}

		o.mu.Lock()
		o.cached = fee
		o.cachedAt = o.now()
		o.mu.Unlock()

		o.logger.Debug("base priority fee refreshed", zap.Uint64("fee", fee), zap.Int("samples", len(fees)))
		return fee, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(uint64), nil
	}
}

func (o *Oracle) clamp(fee uint64) uint64 {
	if fee == 0 {
		return 0
	}
	if fee < o.cfg.MinFee {
		fee = o.cfg.MinFee
	}
	if o.cfg.MaxFee > 0 && fee > o.cfg.MaxFee {
		fee = o.cfg.MaxFee
	}
	return fee
}

// Percentile returns the nearest-rank percentile of the non-zero fees, or 0
// when there are none.
func Percentile(fees []solana.PrioritizationFee, p float64) uint64 {
	values := make([]uint64, 0, len(fees))
	for _, f := range fees {
		if f.PrioritizationFee > 0 {
			values = append(values, f.PrioritizationFee)
		}
	}
	if len(values) == 0 {
		return 0
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	rank := int(math.Ceil(p / 100 * float64(len(values))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(values) {
		rank = len(values)
	}
	return values[rank-1]
}

func scale(fee uint64, mult float64) uint64 {
	return uint64(math.Round(float64(fee) * mult))
}
