package reporting

import (
	"fmt"
	"time"

	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/protection"
)

// Generator builds trade previews from a curve state.
type Generator struct {
	calc         *curve.Calculator
	orchestrator *protection.Orchestrator
	now          func() time.Time
}

// NewGenerator creates a preview generator.
func NewGenerator(calc *curve.Calculator, orchestrator *protection.Orchestrator) *Generator {
	return &Generator{calc: calc, orchestrator: orchestrator, now: time.Now}
}

// WithClock sets a fixed clock for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Preview simulates and grades one trade against state.
func (g *Generator) Preview(mint string, state domain.CurveState, dir domain.Direction, amount float64) (*Preview, error) {
	result, err := g.calc.Simulate(state, dir, amount)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	tp, err := g.orchestrator.AssessTrade(state, amount, dir)
	if err != nil {
		return nil, fmt.Errorf("assess: %w", err)
	}

	tier := tp.SuggestedTier
	return &Preview{
		GeneratedAt: g.now().UTC(),
		Mint:        mint,
		Direction:   dir,
		Amount:      amount,
		State:       state,
		Result:      result,
		Protection:  tp,
		MinOut:      protection.MinOut(result, tp.Slippage.RecommendedSlippage),
		Tier:        tier,
		Savings:     protection.FormatSavings(tier, 1),
	}, nil
}
