package domain

// MarketAnalysis summarises a token's recent trade activity.
type MarketAnalysis struct {
	RecentVolume       float64 `json:"recentVolume"`    // sum of |SOL amount| in the window
	PriceVolatility    float64 `json:"priceVolatility"` // stddev of profit pct
	SuspiciousActivity int     `json:"suspiciousActivity"`
	LargeTrades        int     `json:"largeTrades"`
	MEVBotsActive      bool    `json:"mevBotsActive"`
	TradeCount         int     `json:"tradeCount"`
}

// RiskLevel is the anti-sandwich band of a risk score.
type RiskLevel string

const (
	RiskLevelBlocked          RiskLevel = "BLOCKED"
	RiskLevelHighProtection   RiskLevel = "HIGH_PROTECTION"
	RiskLevelMediumProtection RiskLevel = "MEDIUM_PROTECTION"
	RiskLevelLow              RiskLevel = "LOW_RISK"
	RiskLevelErrorFallback    RiskLevel = "ERROR_FALLBACK"
)

// RiskAssessment is the anti-sandwich verdict for one submission.
type RiskAssessment struct {
	Score          float64        `json:"riskScore"`
	Level          RiskLevel      `json:"riskLevel"`
	Safe           bool           `json:"safe"`
	Reason         string         `json:"reason,omitempty"`
	SuggestedDelay int            `json:"suggestedDelay,omitempty"` // seconds, set when blocked
	Market         MarketAnalysis `json:"market"`
	Conflicts      int            `json:"mempoolConflicts"`
	Degraded       bool           `json:"degraded"` // scoring failed, fixed fallback score used
}
