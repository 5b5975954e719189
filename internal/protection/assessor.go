package protection

import (
	"fmt"
	"math"

	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
)

// Slippage bounds in percent.
const (
	DefaultMaxSlippage      = 10.0
	DefaultWarningThreshold = 5.0
	DefaultHardCeiling      = 25.0

	minRecommendedSlippage   = 0.5
	lowLiquidityFloor        = 3.0
	lowLiquidityThreshold    = 10.0 // SOL
	largeTradeLiquidityRatio = 0.1
	slippageBuffer           = 1.2
	liquidityRatioWeight     = 50.0
)

// SlippageConfig controls the slippage assessor.
type SlippageConfig struct {
	MaxSlippage      float64 // soft threshold: impact above is excessive
	WarningThreshold float64 // impact above produces a moderate warning
	HardCeiling      float64 // impact at or above blocks execution
	AutoAdjust       bool    // recommend a computed slippage instead of MaxSlippage
}

// DefaultSlippageConfig returns the standard assessor configuration.
func DefaultSlippageConfig() SlippageConfig {
	return SlippageConfig{
		MaxSlippage:      DefaultMaxSlippage,
		WarningThreshold: DefaultWarningThreshold,
		HardCeiling:      DefaultHardCeiling,
		AutoAdjust:       true,
	}
}

// Validate checks the thresholds are ordered.
func (c SlippageConfig) Validate() error {
	if c.WarningThreshold <= 0 || c.MaxSlippage <= 0 || c.HardCeiling <= 0 {
		return domain.NewValidationError("slippage", "thresholds must be positive")
	}
	if c.WarningThreshold > c.MaxSlippage || c.MaxSlippage > c.HardCeiling {
		return domain.NewValidationError("slippage", "require warning <= max <= hard ceiling")
	}
	return nil
}

// Assessor computes price impact and recommended slippage for previewed trades.
type Assessor struct {
	calc *curve.Calculator
	cfg  SlippageConfig
}

// NewAssessor creates an assessor over calc.
func NewAssessor(calc *curve.Calculator, cfg SlippageConfig) *Assessor {
	return &Assessor{calc: calc, cfg: cfg}
}

// Calculator returns the underlying curve calculator.
func (a *Assessor) Calculator() *curve.Calculator {
	return a.calc
}

// AssessSlippage previews the trade and grades its slippage.
// A non-positive amount is rejected before simulation.
func (a *Assessor) AssessSlippage(state domain.CurveState, amount float64, dir domain.Direction) (domain.ProtectionAssessment, error) {
	p, err := a.assess(state, amount, dir)
	return p.assessment, err
}

// preview is one graded simulation together with the state it ran against.
type preview struct {
	assessment domain.ProtectionAssessment
	result     *domain.TradeResult
	state      domain.CurveState
}

// assess grades a trade against the state derived from the counters of
// state. Derived fields supplied by the caller are ignored.
func (a *Assessor) assess(state domain.CurveState, amount float64, dir domain.Direction) (preview, error) {
	if !dir.IsValid() {
		return preview{}, domain.NewValidationError("direction", fmt.Sprintf("unknown direction %q", dir))
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return preview{}, domain.WrapValidation("amount", domain.ErrInvalidAmount)
	}

	current, err := a.calc.State(state.SolRaised, state.TokensSold)
	if err != nil {
		return preview{}, err
	}
	result, err := a.calc.Simulate(current, dir, amount)
	if err != nil {
		return preview{}, err
	}

	priceImpact := math.Abs(result.PriceAfter-result.PriceBefore) / result.PriceBefore * 100

	// Liquidity is counted as virtual SOL reserves plus raised funds.
	liquidity := current.VirtualSolReserves + current.SolRaised
	liquidityRatio := solLeg(result, amount) / liquidity

	recommended := math.Max(priceImpact*slippageBuffer, math.Max(minRecommendedSlippage, liquidityRatio*liquidityRatioWeight))
	if liquidity < lowLiquidityThreshold {
		recommended = math.Max(recommended, lowLiquidityFloor)
	}
	recommended = math.Min(recommended, a.cfg.HardCeiling)
	if !a.cfg.AutoAdjust {
		recommended = a.cfg.MaxSlippage
	}

	excessive := priceImpact > a.cfg.MaxSlippage

	var warning string
	switch {
	case excessive:
		warning = fmt.Sprintf("High slippage detected (%.2f%%). Consider reducing trade size.", priceImpact)
	case priceImpact > a.cfg.WarningThreshold:
		warning = fmt.Sprintf("Moderate slippage (%.2f%%). Price may move against you.", priceImpact)
	case liquidityRatio > largeTradeLiquidityRatio:
		warning = "Large trade relative to liquidity. Consider splitting into smaller trades."
	}

	return preview{
		assessment: domain.ProtectionAssessment{
			PriceImpact:         priceImpact,
			RecommendedSlippage: recommended,
			IsExcessiveSlippage: excessive,
			CanProceed:          !excessive || priceImpact < a.cfg.HardCeiling,
			WarningMessage:      warning,
		},
		result: result,
		state:  current,
	}, nil
}

// solLeg returns the SOL-denominated size of a trade.
// Buys are sized by the requested SOL; sells by the SOL they return.
func solLeg(result *domain.TradeResult, amount float64) float64 {
	if result.Direction == domain.DirectionSell {
		return math.Abs(result.SolIn)
	}
	return amount
}
