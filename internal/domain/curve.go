package domain

import "fmt"

// CurveConfig holds the immutable parameters of one bonding curve.
// Passed by value into the calculator; never shared as package state.
type CurveConfig struct {
	TotalSupply         float64     // total token supply
	CurveSupply         float64     // tokens sold through the curve
	CreatorSupply       float64     // tokens reserved for the creator
	GraduationThreshold float64     // market cap (quote units) at which the token graduates
	VirtualSolBase      float64     // virtual SOL reserves at tokensSold = 0
	VirtualTokenBase    float64     // virtual token reserves at tokensSold = 0
	Fees                FeeSchedule // trading fee schedule
}

// FeeSchedule holds fee rates in basis points.
type FeeSchedule struct {
	BuyPre   FeeRates // buy fees before graduation
	BuyPost  FeeRates // buy fees after graduation
	SellPre  FeeRates // sell fees before graduation
	SellPost FeeRates // sell fees after graduation
}

// FeeRates holds per-recipient fee rates in basis points.
type FeeRates struct {
	PlatformBps  int64
	CreatorBps   int64
	PrizePoolBps int64
	ReservesBps  int64
}

// TotalBps returns the sum of all rates.
func (r FeeRates) TotalBps() int64 {
	return r.PlatformBps + r.CreatorBps + r.PrizePoolBps + r.ReservesBps
}

// Default curve parameters (pump.fun-like launch).
const (
	DefaultTotalSupply         = 1_000_000_000
	DefaultCurveSupply         = 800_000_000
	DefaultCreatorSupply       = 200_000_000
	DefaultGraduationThreshold = 75_000
	DefaultVirtualSolBase      = 30
	DefaultVirtualTokenBase    = 1_073_000_000
)

// DefaultFeeSchedule mirrors the on-chain program fee tables.
var DefaultFeeSchedule = FeeSchedule{
	BuyPre:   FeeRates{PlatformBps: 100, CreatorBps: 50, PrizePoolBps: 30, ReservesBps: 20},
	BuyPost:  FeeRates{PlatformBps: 50, CreatorBps: 100, PrizePoolBps: 30, ReservesBps: 20},
	SellPre:  FeeRates{PlatformBps: 100, CreatorBps: 50},
	SellPost: FeeRates{PlatformBps: 50, CreatorBps: 100},
}

// DefaultCurveConfig returns the standard launch configuration.
func DefaultCurveConfig() CurveConfig {
	return CurveConfig{
		TotalSupply:         DefaultTotalSupply,
		CurveSupply:         DefaultCurveSupply,
		CreatorSupply:       DefaultCreatorSupply,
		GraduationThreshold: DefaultGraduationThreshold,
		VirtualSolBase:      DefaultVirtualSolBase,
		VirtualTokenBase:    DefaultVirtualTokenBase,
		Fees:                DefaultFeeSchedule,
	}
}

// Validate checks that the configuration describes a usable curve.
func (c CurveConfig) Validate() error {
	switch {
	case c.TotalSupply <= 0:
		return NewValidationError("total_supply", "must be positive")
	case c.CurveSupply <= 0:
		return NewValidationError("curve_supply", "must be positive")
	case c.CurveSupply > c.TotalSupply:
		return NewValidationError("curve_supply", "exceeds total supply")
	case c.CreatorSupply < 0:
		return NewValidationError("creator_supply", "must not be negative")
	case c.GraduationThreshold <= 0:
		return NewValidationError("graduation_threshold", "must be positive")
	case c.VirtualSolBase <= 0:
		return NewValidationError("virtual_sol_base", "must be positive")
	case c.VirtualTokenBase <= c.CurveSupply:
		// token reserves must stay positive at tokensSold = curveSupply
		return NewValidationError("virtual_token_base", fmt.Sprintf("must exceed curve supply %.0f", c.CurveSupply))
	}
	return nil
}

// CurveState is derived from the persisted counters and never stored.
type CurveState struct {
	TokensSold           float64 `json:"tokensSold"`
	SolRaised            float64 `json:"solRaised"`
	TokensRemaining      float64 `json:"tokensRemaining"`
	VirtualSolReserves   float64 `json:"virtualSolReserves"`
	VirtualTokenReserves float64 `json:"virtualTokenReserves"`
	CurrentPrice         float64 `json:"currentPrice"`
	MarketCap            float64 `json:"marketCap"`
	ProgressPercentage   float64 `json:"progressPercentage"`
	IsGraduated          bool    `json:"isGraduated"`
}

// CurvePoint is one sample of the curve for visualization.
type CurvePoint struct {
	TokensSold  float64 `json:"tokensSold"`
	Price       float64 `json:"price"`
	MarketCap   float64 `json:"marketCap"`
	Progress    float64 `json:"progress"`
	IsGraduated bool    `json:"isGraduated"`
}
