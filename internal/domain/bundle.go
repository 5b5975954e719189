package domain

import (
	"fmt"
	"strings"
	"time"
)

// BundleTier is the protection tier requested for a submission.
type BundleTier string

const (
	TierFlash    BundleTier = "flash"
	TierPriority BundleTier = "priority"
	TierStandard BundleTier = "standard"
)

// TierParams are the submission parameters of one tier.
type TierParams struct {
	FeeMultiplier float64       // applied to the oracle's base priority fee
	ComputeUnits  uint32        // compute unit limit requested per transaction
	MaxRetries    int           // RPC-level retries per transaction
	SubmitGap     time.Duration // pause between sequential sends
	CostPerTxSOL  float64       // estimated protection cost per transaction
	SavingsFactor float64       // estimated MEV protection fraction
}

var tierParams = map[BundleTier]TierParams{
	TierFlash:    {FeeMultiplier: 3, ComputeUnits: 1_400_000, MaxRetries: 3, CostPerTxSOL: 0.002, SavingsFactor: 0.15},
	TierPriority: {FeeMultiplier: 2, ComputeUnits: 800_000, MaxRetries: 2, SubmitGap: 100 * time.Millisecond, CostPerTxSOL: 0.001, SavingsFactor: 0.08},
	TierStandard: {FeeMultiplier: 1.5, ComputeUnits: 400_000, MaxRetries: 1, CostPerTxSOL: 0.0005, SavingsFactor: 0.03},
}

// ParseTier parses a bundle type. Empty input defaults to standard.
func ParseTier(s string) (BundleTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TierStandard, nil
	}
	t := BundleTier(s)
	if _, ok := tierParams[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Params returns the tier's submission parameters.
func (t BundleTier) Params() TierParams {
	return tierParams[t]
}

// IsValid checks if the tier is known.
func (t BundleTier) IsValid() bool {
	_, ok := tierParams[t]
	return ok
}

// BundleStatus is the outcome of a submission.
type BundleStatus string

const (
	BundleStatusPending  BundleStatus = "pending"
	BundleStatusIncluded BundleStatus = "included"
	BundleStatusFailed   BundleStatus = "failed"
)

// Submission backends recorded on a bundle.
const (
	BackendAtomic             = "atomic"
	BackendSequential         = "sequential"
	BackendSequentialFallback = "sequential-fallback" // flash tier without an atomic relay
)

// Bundle is the audit record of one submission attempt.
// Written for every attempt regardless of outcome.
type Bundle struct {
	BundleID         string       `json:"bundleId"`
	Tier             BundleTier   `json:"bundleType"`
	Status           BundleStatus `json:"status"`
	Signatures       []string     `json:"signatures"`
	Wallet           string       `json:"userWallet"`
	TokenAddress     string       `json:"tokenAddress,omitempty"`
	TransactionCount int          `json:"transactionCount"`
	PriorityFee      uint64       `json:"priorityFee"` // micro-lamports per compute unit
	ComputeUnits     uint32       `json:"computeUnits"`
	RiskScore        float64      `json:"riskScore"`
	RiskLevel        RiskLevel    `json:"riskLevel"`
	DelayMs          int64        `json:"delayMs"`  // protective delay applied before submission
	Degraded         bool         `json:"degraded"` // protection weaker than requested
	Backend          string       `json:"backend"`
	RelayBundleID    string       `json:"relayBundleId,omitempty"`
	Slot             int64        `json:"slot,omitempty"`
	Error            string       `json:"error,omitempty"`
	CreatedAt        int64        `json:"createdAt"` // Unix timestamp in milliseconds
}

// FeePlan is the compute budget applied to each transaction of a bundle.
type FeePlan struct {
	ComputeUnits  uint32 // compute unit limit
	MicroLamports uint64 // priority fee per compute unit
}

// PreparedTx is a wire-encoded transaction ready for submission.
type PreparedTx struct {
	Raw       []byte // serialized signed transaction
	Signature string // base58 first signature
	Enhanced  bool   // compute budget instructions were added
}
