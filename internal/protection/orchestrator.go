package protection

import (
	"solana-curve-guard/internal/domain"
)

// Risk defaults.
const (
	DefaultQuotePrice       = 230.0 // quote units per SOL
	DefaultHighValueQuote   = 10_000.0
	DefaultMediumValueQuote = 1_000.0

	sandwichLiquidityShare   = 0.2
	largeTradeLiquidityShare = 0.1
	bundleImpact             = 15.0
	waitImpact               = 10.0
)

// RiskConfig controls the client-side MEV risk tiers.
type RiskConfig struct {
	QuotePrice       float64 // SOL price in quote units used to value trades
	HighValueQuote   float64 // trade value above which MEV risk is high
	MediumValueQuote float64 // trade value above which MEV risk is medium
}

// DefaultRiskConfig returns the standard risk tiers.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		QuotePrice:       DefaultQuotePrice,
		HighValueQuote:   DefaultHighValueQuote,
		MediumValueQuote: DefaultMediumValueQuote,
	}
}

// Orchestrator combines slippage, MEV risk and liquidity into one trade gate.
type Orchestrator struct {
	assessor *Assessor
	cfg      RiskConfig
}

// NewOrchestrator creates an orchestrator over assessor.
func NewOrchestrator(assessor *Assessor, cfg RiskConfig) *Orchestrator {
	return &Orchestrator{assessor: assessor, cfg: cfg}
}

// AssessTrade grades a trade against the current state.
// Callers must not execute when ShouldProceed is false.
func (o *Orchestrator) AssessTrade(state domain.CurveState, amount float64, dir domain.Direction) (*domain.TradeProtection, error) {
	p, err := o.assessor.assess(state, amount, dir)
	if err != nil {
		return nil, err
	}
	slippage := p.assessment

	size := solLeg(p.result, amount)
	mevRisk := o.mevRisk(size)

	// Liquidity is the virtual SOL base plus raised funds.
	liquidity := p.state.VirtualSolReserves

	var liquidityWarning string
	switch {
	case size > liquidity*sandwichLiquidityShare:
		liquidityWarning = "Trade size is >20% of available liquidity. High sandwich attack risk detected."
	case size > liquidity*largeTradeLiquidityShare:
		liquidityWarning = "Large trade detected. Consider using MEV protection to prevent sandwich attacks."
	case mevRisk == domain.MEVRiskHigh:
		liquidityWarning = "High MEV risk detected. Recommend using priority bundling."
	}

	timing := domain.TimingImmediate
	switch {
	case mevRisk == domain.MEVRiskHigh || slippage.PriceImpact > bundleImpact:
		timing = domain.TimingBundle
	case slippage.PriceImpact > waitImpact:
		timing = domain.TimingWait
	}

	tp := &domain.TradeProtection{
		Slippage:         slippage,
		MEVRisk:          mevRisk,
		LiquidityWarning: liquidityWarning,
		OptimalTiming:    timing,
		ShouldProceed:    slippage.CanProceed && mevRisk != domain.MEVRiskHigh,
		SuggestedTier:    suggestForRisk(SuggestTier(size, 0), mevRisk),
	}
	tp.Recommendations = Recommendations(tp)
	return tp, nil
}

func (o *Orchestrator) mevRisk(solAmount float64) domain.MEVRisk {
	value := solAmount * o.cfg.QuotePrice
	switch {
	case value > o.cfg.HighValueQuote:
		return domain.MEVRiskHigh
	case value > o.cfg.MediumValueQuote:
		return domain.MEVRiskMedium
	default:
		return domain.MEVRiskLow
	}
}

// suggestForRisk raises tier to the minimum the MEV risk calls for.
func suggestForRisk(tier domain.BundleTier, risk domain.MEVRisk) domain.BundleTier {
	switch {
	case risk == domain.MEVRiskHigh:
		return domain.TierFlash
	case risk == domain.MEVRiskMedium && tier == domain.TierStandard:
		return domain.TierPriority
	default:
		return tier
	}
}
