package reporting

import (
	"fmt"
	"strings"

	"solana-curve-guard/internal/domain"
)

// RenderCurveCSV renders curve samples as CSV string.
func RenderCurveCSV(points []domain.CurvePoint) string {
	var sb strings.Builder

	// Header
	sb.WriteString("tokens_sold,price,market_cap,progress_pct,graduated\n")

	// Rows
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%.0f,%.12e,%.6f,%.4f,%t\n",
			p.TokensSold,
			p.Price,
			p.MarketCap,
			p.Progress,
			p.IsGraduated,
		))
	}

	return sb.String()
}
