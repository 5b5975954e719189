package domain

// ProtectionAssessment is the slippage verdict for one previewed trade.
type ProtectionAssessment struct {
	PriceImpact         float64 `json:"priceImpact"`         // percent
	RecommendedSlippage float64 `json:"recommendedSlippage"` // percent
	IsExcessiveSlippage bool    `json:"isExcessiveSlippage"`
	CanProceed          bool    `json:"canProceed"`
	WarningMessage      string  `json:"warningMessage,omitempty"`
}

// MEVRisk is the client-side MEV risk tier derived from trade value.
type MEVRisk string

const (
	MEVRiskLow    MEVRisk = "low"
	MEVRiskMedium MEVRisk = "medium"
	MEVRiskHigh   MEVRisk = "high"
)

// Timing is the recommended execution timing.
type Timing string

const (
	TimingImmediate Timing = "immediate"
	TimingWait      Timing = "wait"
	TimingBundle    Timing = "bundle"
)

// TradeProtection is the combined gate verdict for one trade.
type TradeProtection struct {
	Slippage         ProtectionAssessment `json:"slippage"`
	MEVRisk          MEVRisk              `json:"mevRisk"`
	LiquidityWarning string               `json:"liquidityWarning,omitempty"`
	OptimalTiming    Timing               `json:"optimalTiming"`
	ShouldProceed    bool                 `json:"shouldProceed"` // callers must block execution when false
	SuggestedTier    BundleTier           `json:"suggestedTier"`
	Recommendations  []string             `json:"recommendations"`
}
