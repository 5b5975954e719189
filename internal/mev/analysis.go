package mev

import (
	"math"
	"sort"
	"time"

	"solana-curve-guard/internal/domain"
)

// Market analysis parameters.
const (
	AnalysisWindow = 5 * time.Minute

	suspiciousGapMs     = 1000 // consecutive trades closer than this are suspicious
	largeTradeSOL       = 10.0
	botActivityMinCount = 2 // bots are active above this many suspicious pairs
)

// AnalyzeMarket summarises trades within AnalysisWindow before now.
// Trades outside the window are ignored; input order does not matter.
func AnalyzeMarket(trades []*domain.TradeRecord, now time.Time) domain.MarketAnalysis {
	cutoff := now.Add(-AnalysisWindow).UnixMilli()

	window := make([]*domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t != nil && t.TimestampMs >= cutoff {
			window = append(window, t)
		}
	}
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].TimestampMs < window[j].TimestampMs
	})

	var a domain.MarketAnalysis
	a.TradeCount = len(window)
	if len(window) == 0 {
		return a
	}

	profits := make([]float64, 0, len(window))
	for i, t := range window {
		amount := math.Abs(t.SignedAmount())
		a.RecentVolume += amount
		if amount > largeTradeSOL {
			a.LargeTrades++
		}
		if i > 0 && t.TimestampMs-window[i-1].TimestampMs < suspiciousGapMs {
			a.SuspiciousActivity++
		}
		profits = append(profits, t.ProfitPct)
	}

	a.PriceVolatility = stddev(profits)
	a.MEVBotsActive = a.SuspiciousActivity > botActivityMinCount
	return a
}

// stddev returns the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
