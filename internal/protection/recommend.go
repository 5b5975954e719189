package protection

import (
	"fmt"
	"math"
	"strings"

	"solana-curve-guard/internal/domain"
)

// Tier thresholds for SuggestTier.
const (
	flashTradeSize     = 20.0 // SOL
	flashTokenVolume   = 10_000.0
	priorityTradeSize  = 5.0
	priorityVolume     = 1_000.0
	splitImpactPerPart = 5.0 // percent of impact per suggested split
)

// SuggestTier picks a protection tier from trade size in SOL and the
// token's recent volume. Zero volume is treated as unknown.
func SuggestTier(tradeSize, tokenVolume float64) domain.BundleTier {
	switch {
	case tradeSize > flashTradeSize || tokenVolume > flashTokenVolume:
		return domain.TierFlash
	case tradeSize > priorityTradeSize || tokenVolume > priorityVolume:
		return domain.TierPriority
	default:
		return domain.TierStandard
	}
}

// EstimateCost returns the approximate protection cost in SOL for txCount
// transactions submitted under tier.
func EstimateCost(tier domain.BundleTier, txCount int) float64 {
	if txCount < 1 {
		txCount = 1
	}
	return tier.Params().CostPerTxSOL * float64(txCount)
}

// EstimatedSavings returns the approximate SOL protected from MEV for txCount
// transactions under tier.
func EstimatedSavings(tier domain.BundleTier, txCount int) float64 {
	return tier.Params().SavingsFactor * float64(txCount) * 0.1
}

// FormatSavings renders EstimatedSavings for API responses.
func FormatSavings(tier domain.BundleTier, txCount int) string {
	return fmt.Sprintf("~%.4f SOL in MEV protection", EstimatedSavings(tier, txCount))
}

// MinOut returns the minimum acceptable output of a previewed trade under a
// slippage bound in percent: tokens for buys, SOL for sells.
func MinOut(result *domain.TradeResult, slippagePct float64) float64 {
	if result == nil {
		return 0
	}
	slippagePct = math.Min(math.Max(slippagePct, 0), 100)
	out := result.TokensOut
	if result.Direction == domain.DirectionSell {
		out = result.SolIn
	}
	return math.Abs(out) * (1 - slippagePct/100)
}

// Recommendations derives user-facing advice from a trade verdict.
func Recommendations(tp *domain.TradeProtection) []string {
	recs := []string{}

	if tp.Slippage.PriceImpact > waitImpact {
		parts := int(math.Ceil(tp.Slippage.PriceImpact / splitImpactPerPart))
		recs = append(recs, fmt.Sprintf("Consider splitting trade into %d smaller trades", parts))
	}

	switch tp.MEVRisk {
	case domain.MEVRiskHigh:
		recs = append(recs,
			"High sandwich attack risk: use flash MEV protection",
			"Set high priority fees to avoid being frontrun",
		)
	case domain.MEVRiskMedium:
		recs = append(recs,
			"Medium MEV risk: use priority protection bundle",
			"Add random delay to avoid bot detection",
		)
	}

	switch tp.OptimalTiming {
	case domain.TimingBundle:
		recs = append(recs, "Bundle transaction with MEV protection for safety")
	case domain.TimingWait:
		recs = append(recs, "Wait for lower MEV bot activity")
	}

	if tp.LiquidityWarning != "" {
		recs = append(recs, "Trade during higher activity periods for better liquidity")
		if strings.Contains(tp.LiquidityWarning, "sandwich") {
			recs = append(recs, "High sandwich risk: enable anti-MEV protection")
		}
	}

	if !tp.ShouldProceed {
		recs = append(recs, "Trade blocked: reduce size below the hard slippage ceiling or MEV threshold")
	}
	return recs
}
