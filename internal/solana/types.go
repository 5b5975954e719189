package solana

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once rooted
	Err                interface{}
	ConfirmationStatus string // processed | confirmed | finalized
}

// Landed reports whether the status meets commitment.
func (s *SignatureStatus) Landed(commitment string) bool {
	if s == nil {
		return false
	}
	switch commitment {
	case CommitmentFinalized:
		return s.ConfirmationStatus == CommitmentFinalized
	case CommitmentProcessed:
		return s.ConfirmationStatus != ""
	default:
		return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
	}
}

// PrioritizationFee from getRecentPrioritizationFees.
type PrioritizationFee struct {
	Slot              int64  `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"` // micro-lamports per compute unit
}
