// Package main previews bonding-curve trades offline: curve tables, trade
// simulation and the protection verdict, without chain or database access.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"solana-curve-guard/internal/config"
	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/protection"
	"solana-curve-guard/internal/reporting"
)

func main() {
	configPath := flag.String("config", "", "Optional TOML config for curve, slippage and risk parameters")
	table := flag.Int("table", 0, "Print the curve sampled in N steps instead of a preview")
	format := flag.String("format", "markdown", "Output format: markdown, csv (table only) or json")
	solRaised := flag.Float64("sol-raised", 0, "SOL raised so far")
	tokensSold := flag.Float64("tokens-sold", 0, "Tokens sold so far")
	direction := flag.String("direction", "buy", "Trade direction: buy or sell")
	amount := flag.Float64("amount", 1, "SOL in for buys, tokens in for sells")
	mint := flag.String("mint", "", "Token mint shown in the preview")
	flag.Parse()

	if err := run(*configPath, *table, *format, *solRaised, *tokensSold, *direction, *amount, *mint); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, table int, format string, solRaised, tokensSold float64, direction string, amount float64, mint string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	calc, err := curve.NewCalculator(cfg.Curve.Domain())
	if err != nil {
		return err
	}
	slippage := cfg.Slippage.Protection()
	if err := slippage.Validate(); err != nil {
		return err
	}
	orch := protection.NewOrchestrator(protection.NewAssessor(calc, slippage), cfg.Risk.Protection())

	if table > 0 {
		points := calc.CurveData(table)
		switch format {
		case "csv":
			fmt.Print(reporting.RenderCurveCSV(points))
		case "json":
			return printJSON(points)
		default:
			fmt.Print(reporting.RenderCurveMarkdown(points))
		}
		return nil
	}

	dir, err := domain.ParseDirection(direction)
	if err != nil {
		return err
	}
	state, err := calc.State(solRaised, tokensSold)
	if err != nil {
		return err
	}
	if state.IsGraduated {
		return domain.ErrGraduated
	}

	preview, err := reporting.NewGenerator(calc, orch).Preview(mint, state, dir, amount)
	if err != nil {
		return err
	}
	if format == "json" {
		return printJSON(preview)
	}
	fmt.Print(reporting.RenderPreviewMarkdown(preview))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
