package solana

import "context"

// Commitment levels.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPCClient defines the Solana JSON-RPC methods used for submission.
type RPCClient interface {
	// SendTransaction broadcasts a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, raw []byte, maxRetries int) (string, error)

	// GetSignatureStatuses reports the status of each signature, nil when unknown.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetRecentPrioritizationFees returns recent per-slot priority fees.
	GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}
