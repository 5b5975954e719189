package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade against the curve.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection parses a case-insensitive direction string.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", NewValidationError("direction", fmt.Sprintf("unknown direction %q", s))
	}
	return d, nil
}

// IsValid checks if the direction is buy or sell.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// TradeResult is the preview of one simulated trade.
// Sign of TokensOut/SolIn gives direction: both negative on sells.
type TradeResult struct {
	Direction          Direction    `json:"direction"`
	TokensOut          float64      `json:"tokensOut"`
	SolIn              float64      `json:"solIn"`
	PriceBefore        float64      `json:"priceBefore"`
	PriceAfter         float64      `json:"priceAfter"`
	MarketCapAfter     float64      `json:"marketCapAfter"`
	NewTokensRemaining float64      `json:"newTokensRemaining"`
	NewSolRaised       float64      `json:"newSolRaised"`
	NewTokensSold      float64      `json:"newTokensSold"`
	Clamped            bool         `json:"clamped"` // buy limited by remaining supply
	Fees               FeeBreakdown `json:"fees"`
}

// FeeBreakdown is the fee charged on a trade's SOL leg.
type FeeBreakdown struct {
	Platform  float64 `json:"platform"`
	Creator   float64 `json:"creator"`
	PrizePool float64 `json:"prizePool"`
	Reserves  float64 `json:"reserves"`
	Total     float64 `json:"total"`
}

// TokenCounters are the persisted cumulative counters of one token.
// Decimal keeps ledger arithmetic exact; previews convert to float64.
type TokenCounters struct {
	Mint       string          // token mint address
	SolRaised  decimal.Decimal // cumulative SOL raised
	TokensSold decimal.Decimal // cumulative tokens sold
	UpdatedAt  int64           // Unix timestamp in milliseconds
}

// Floats returns the counters as float64 for the curve calculator.
func (c TokenCounters) Floats() (solRaised, tokensSold float64) {
	return c.SolRaised.InexactFloat64(), c.TokensSold.InexactFloat64()
}

// TradeRecord is one confirmed trade in the ledger.
type TradeRecord struct {
	TradeID     string    // unique id (tx signature when available)
	Mint        string    // token mint address
	Wallet      string    // trader wallet
	Direction   Direction // buy | sell
	SolAmount   float64   // SOL leg, always positive
	TokenAmount float64   // token leg, always positive
	Price       float64   // price after the trade
	MarketCap   float64   // market cap after the trade
	ProfitPct   float64   // realised profit percentage reported by the trader (0 for buys)
	Signature   string    // transaction signature
	TimestampMs int64     // Unix timestamp in milliseconds
}

// SignedAmount returns the SOL leg signed by direction (sells negative).
func (t *TradeRecord) SignedAmount() float64 {
	if t.Direction == DirectionSell {
		return -t.SolAmount
	}
	return t.SolAmount
}
