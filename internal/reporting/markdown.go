package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-curve-guard/internal/domain"
)

// RenderCurveMarkdown renders curve samples as a Markdown table.
func RenderCurveMarkdown(points []domain.CurvePoint) string {
	var sb strings.Builder

	sb.WriteString("| Tokens Sold | Price (SOL) | Market Cap | Progress | Graduated |\n")
	sb.WriteString("|-------------|-------------|------------|----------|-----------|\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("| %.0f | %.6e | %.4f | %.2f%% | %s |\n",
			p.TokensSold, p.Price, p.MarketCap, p.Progress, yesNo(p.IsGraduated)))
	}
	return sb.String()
}

// RenderPreviewMarkdown renders a trade preview as Markdown string.
func RenderPreviewMarkdown(p *Preview) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Preview\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", p.GeneratedAt.Format(time.RFC3339)))
	if p.Mint != "" {
		sb.WriteString(fmt.Sprintf("Token: `%s`\n\n", p.Mint))
	}

	// Curve state
	sb.WriteString("## Curve State\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| SOL Raised | %.6f |\n", p.State.SolRaised))
	sb.WriteString(fmt.Sprintf("| Tokens Sold | %.0f |\n", p.State.TokensSold))
	sb.WriteString(fmt.Sprintf("| Price (SOL) | %.6e |\n", p.State.CurrentPrice))
	sb.WriteString(fmt.Sprintf("| Market Cap | %.4f |\n", p.State.MarketCap))
	sb.WriteString(fmt.Sprintf("| Progress | %.2f%% |\n", p.State.ProgressPercentage))
	sb.WriteString(fmt.Sprintf("| Graduated | %s |\n", yesNo(p.State.IsGraduated)))
	sb.WriteString("\n")

	// Simulation
	r := p.Result
	sb.WriteString(fmt.Sprintf("## Simulated %s of %g\n\n", strings.ToUpper(string(p.Direction)), p.Amount))
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tokens Out | %.4f |\n", r.TokensOut))
	sb.WriteString(fmt.Sprintf("| SOL In | %.9f |\n", r.SolIn))
	sb.WriteString(fmt.Sprintf("| Price Before | %.6e |\n", r.PriceBefore))
	sb.WriteString(fmt.Sprintf("| Price After | %.6e |\n", r.PriceAfter))
	sb.WriteString(fmt.Sprintf("| Market Cap After | %.4f |\n", r.MarketCapAfter))
	sb.WriteString(fmt.Sprintf("| Fees (SOL) | %.9f |\n", r.Fees.Total))
	if r.Clamped {
		sb.WriteString("| Clamped | yes, limited by remaining supply |\n")
	}
	sb.WriteString("\n")

	// Protection
	tp := p.Protection
	sb.WriteString("## Protection\n\n")
	sb.WriteString("| Check | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Price Impact | %.4f%% |\n", tp.Slippage.PriceImpact))
	sb.WriteString(fmt.Sprintf("| Recommended Slippage | %.2f%% |\n", tp.Slippage.RecommendedSlippage))
	sb.WriteString(fmt.Sprintf("| Minimum Out | %.6f |\n", p.MinOut))
	sb.WriteString(fmt.Sprintf("| MEV Risk | %s |\n", tp.MEVRisk))
	sb.WriteString(fmt.Sprintf("| Timing | %s |\n", tp.OptimalTiming))
	sb.WriteString(fmt.Sprintf("| Suggested Tier | %s (%s) |\n", p.Tier, p.Savings))
	sb.WriteString("\n")

	if tp.ShouldProceed {
		sb.WriteString("**Decision: PROCEED**\n\n")
	} else {
		sb.WriteString("**Decision: DO NOT EXECUTE**\n\n")
	}

	var warnings []string
	if tp.Slippage.WarningMessage != "" {
		warnings = append(warnings, tp.Slippage.WarningMessage)
	}
	if tp.LiquidityWarning != "" {
		warnings = append(warnings, tp.LiquidityWarning)
	}
	if len(warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}
	if len(tp.Recommendations) > 0 {
		sb.WriteString("### Recommendations\n\n")
		for _, rec := range tp.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", rec))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
