package curve

import (
	"fmt"
	"math"

	"solana-curve-guard/internal/domain"
)

// Calculator derives curve state and previews trades for one curve configuration.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	cfg domain.CurveConfig
}

// NewCalculator creates a calculator after validating cfg.
func NewCalculator(cfg domain.CurveConfig) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("curve config: %w", err)
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the curve configuration.
func (c *Calculator) Config() domain.CurveConfig {
	return c.cfg
}

// State computes the curve state for the given cumulative counters.
// Input: solRaised >= 0, tokensSold in [0, curveSupply].
func (c *Calculator) State(solRaised, tokensSold float64) (domain.CurveState, error) {
	if !isFinite(solRaised) || solRaised < 0 {
		return domain.CurveState{}, domain.NewValidationError("sol_raised", "must be a non-negative finite number")
	}
	if !isFinite(tokensSold) || tokensSold < 0 {
		return domain.CurveState{}, domain.NewValidationError("tokens_sold", "must be a non-negative finite number")
	}
	if tokensSold > c.cfg.CurveSupply {
		return domain.CurveState{}, domain.WrapValidation("tokens_sold", domain.ErrExceedsSupply)
	}
	return c.state(solRaised, tokensSold), nil
}

// state computes the curve state without validation.
func (c *Calculator) state(solRaised, tokensSold float64) domain.CurveState {
	solReserves := c.cfg.VirtualSolBase + solRaised
	tokenReserves := c.cfg.VirtualTokenBase - tokensSold
	price := solReserves / tokenReserves
	marketCap := price * c.cfg.TotalSupply

	return domain.CurveState{
		TokensSold:           tokensSold,
		SolRaised:            solRaised,
		TokensRemaining:      c.cfg.CurveSupply - tokensSold,
		VirtualSolReserves:   solReserves,
		VirtualTokenReserves: tokenReserves,
		CurrentPrice:         price,
		MarketCap:            marketCap,
		ProgressPercentage:   tokensSold / c.cfg.CurveSupply * 100,
		IsGraduated:          marketCap >= c.cfg.GraduationThreshold,
	}
}

// PriceAt returns the spot price at tokensSold holding the SOL side at its
// virtual base. Used for curve visualization.
func (c *Calculator) PriceAt(tokensSold float64) (float64, error) {
	if !isFinite(tokensSold) || tokensSold < 0 || tokensSold > c.cfg.CurveSupply {
		return 0, domain.NewValidationError("tokens_sold", fmt.Sprintf("must be within [0, %.0f]", c.cfg.CurveSupply))
	}
	return c.cfg.VirtualSolBase / (c.cfg.VirtualTokenBase - tokensSold), nil
}

// CurveData samples the curve in steps intervals from 0 to curveSupply,
// returning steps+1 points. Steps below 1 default to 100.
func (c *Calculator) CurveData(steps int) []domain.CurvePoint {
	if steps < 1 {
		steps = 100
	}
	out := make([]domain.CurvePoint, 0, steps+1)
	step := c.cfg.CurveSupply / float64(steps)
	for i := 0; i <= steps; i++ {
		sold := step * float64(i)
		if i == steps {
			sold = c.cfg.CurveSupply
		}
		price, _ := c.PriceAt(sold)
		marketCap := price * c.cfg.TotalSupply
		out = append(out, domain.CurvePoint{
			TokensSold:  sold,
			Price:       price,
			MarketCap:   marketCap,
			Progress:    sold / c.cfg.CurveSupply * 100,
			IsGraduated: marketCap >= c.cfg.GraduationThreshold,
		})
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateAmount(amount float64) error {
	if !isFinite(amount) || amount <= 0 {
		return domain.WrapValidation("amount", domain.ErrInvalidAmount)
	}
	return nil
}
