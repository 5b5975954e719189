// Package reporting renders curve tables and trade previews as CSV and Markdown.
package reporting

import (
	"time"

	"solana-curve-guard/internal/domain"
)

// Preview is one previewed trade with its protection verdict.
type Preview struct {
	GeneratedAt time.Time               `json:"generatedAt"`
	Mint        string                  `json:"mint,omitempty"`
	Direction   domain.Direction        `json:"direction"`
	Amount      float64                 `json:"amount"`
	State       domain.CurveState       `json:"state"`
	Result      *domain.TradeResult     `json:"result"`
	Protection  *domain.TradeProtection `json:"protection"`
	// MinOut is the minimum output under the recommended slippage.
	MinOut float64 `json:"minOut"`
	// Tier suggested for a protected submission, with its cost estimate.
	Tier    domain.BundleTier `json:"suggestedTier"`
	Savings string            `json:"estimatedSavings"`
}
