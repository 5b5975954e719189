package curve

import (
	"fmt"
	"math"

	"solana-curve-guard/internal/domain"
)

// SimulateBuy previews buying with solIn SOL against the given state.
// Output beyond the remaining curve supply is clamped and the SOL input is
// recomputed to match the clamped amount. Counters are re-derived from
// scratch via State, never extrapolated.
func (c *Calculator) SimulateBuy(state domain.CurveState, solIn float64) (*domain.TradeResult, error) {
	if err := validateAmount(solIn); err != nil {
		return nil, err
	}
	before, err := c.State(state.SolRaised, state.TokensSold)
	if err != nil {
		return nil, err
	}

	result := &domain.TradeResult{
		Direction:   domain.DirectionBuy,
		PriceBefore: before.CurrentPrice,
	}

	// Curve exhausted: nothing to buy.
	if before.TokensRemaining <= 0 {
		result.PriceAfter = before.CurrentPrice
		result.MarketCapAfter = before.MarketCap
		result.NewTokensRemaining = 0
		result.NewSolRaised = before.SolRaised
		result.NewTokensSold = before.TokensSold
		result.Clamped = true
		return result, nil
	}

	x := before.VirtualSolReserves
	y := before.VirtualTokenReserves
	k := x * y

	tokensOut := y - k/(x+solIn)
	spent := solIn
	if tokensOut > before.TokensRemaining {
		tokensOut = before.TokensRemaining
		spent = x * tokensOut / (y - tokensOut)
		result.Clamped = true
	}

	newSold := math.Min(before.TokensSold+tokensOut, c.cfg.CurveSupply)
	if result.Clamped {
		newSold = c.cfg.CurveSupply
	}
	after := c.state(before.SolRaised+spent, newSold)

	result.TokensOut = tokensOut
	result.SolIn = spent
	result.PriceAfter = after.CurrentPrice
	result.MarketCapAfter = after.MarketCap
	result.NewTokensRemaining = after.TokensRemaining
	result.NewSolRaised = after.SolRaised
	result.NewTokensSold = after.TokensSold
	result.Fees = c.Fees(domain.DirectionBuy, spent, before.IsGraduated)
	return result, nil
}

// SimulateSell previews selling tokensIn tokens against the given state.
// TokensOut and SolIn are reported negative. Counters floor at zero.
func (c *Calculator) SimulateSell(state domain.CurveState, tokensIn float64) (*domain.TradeResult, error) {
	if err := validateAmount(tokensIn); err != nil {
		return nil, err
	}
	before, err := c.State(state.SolRaised, state.TokensSold)
	if err != nil {
		return nil, err
	}
	if tokensIn > before.TokensSold {
		return nil, domain.WrapValidation("amount", fmt.Errorf("%w: selling %.4f of %.4f sold", domain.ErrExceedsSupply, tokensIn, before.TokensSold))
	}

	x := before.VirtualSolReserves
	y := before.VirtualTokenReserves
	k := x * y

	solOut := x - k/(y+tokensIn)
	after := c.state(math.Max(before.SolRaised-solOut, 0), math.Max(before.TokensSold-tokensIn, 0))

	return &domain.TradeResult{
		Direction:          domain.DirectionSell,
		TokensOut:          -tokensIn,
		SolIn:              -solOut,
		PriceBefore:        before.CurrentPrice,
		PriceAfter:         after.CurrentPrice,
		MarketCapAfter:     after.MarketCap,
		NewTokensRemaining: after.TokensRemaining,
		NewSolRaised:       after.SolRaised,
		NewTokensSold:      after.TokensSold,
		Fees:               c.Fees(domain.DirectionSell, solOut, before.IsGraduated),
	}, nil
}

// Simulate dispatches to SimulateBuy or SimulateSell.
// For buys amount is SOL in; for sells it is tokens in.
func (c *Calculator) Simulate(state domain.CurveState, dir domain.Direction, amount float64) (*domain.TradeResult, error) {
	switch dir {
	case domain.DirectionBuy:
		return c.SimulateBuy(state, amount)
	case domain.DirectionSell:
		return c.SimulateSell(state, amount)
	default:
		return nil, domain.NewValidationError("direction", fmt.Sprintf("unknown direction %q", dir))
	}
}

// Fees computes the fee breakdown on a SOL amount.
// Fees are reported alongside the preview and are not deducted from it.
func (c *Calculator) Fees(dir domain.Direction, solAmount float64, graduated bool) domain.FeeBreakdown {
	var rates domain.FeeRates
	switch {
	case dir == domain.DirectionBuy && !graduated:
		rates = c.cfg.Fees.BuyPre
	case dir == domain.DirectionBuy:
		rates = c.cfg.Fees.BuyPost
	case !graduated:
		rates = c.cfg.Fees.SellPre
	default:
		rates = c.cfg.Fees.SellPost
	}

	amount := math.Abs(solAmount)
	fee := func(bps int64) float64 { return amount * float64(bps) / 10_000 }

	return domain.FeeBreakdown{
		Platform:  fee(rates.PlatformBps),
		Creator:   fee(rates.CreatorBps),
		PrizePool: fee(rates.PrizePoolBps),
		Reserves:  fee(rates.ReservesBps),
		Total:     fee(rates.TotalBps()),
	}
}
