package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-curve-guard/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Sent transactions get signatures "sig-<n>" and are reported confirmed at
// Slot unless listed in Failed.
type RPCClient struct {
	mu sync.Mutex

	Slot     int64
	Fees     []solana.PrioritizationFee
	FeesErr  error
	SendErr  error
	// Failed maps signature to on-chain error.
	Failed map[string]interface{}
	// Statuses overrides the reported status per signature.
	Statuses map[string]*solana.SignatureStatus

	Sent       [][]byte
	MaxRetries []int
	FeeCalls   int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Slot:     1,
		Failed:   make(map[string]interface{}),
		Statuses: make(map[string]*solana.SignatureStatus),
	}
}

// SendTransaction records the transaction and returns a fresh signature.
func (c *RPCClient) SendTransaction(_ context.Context, raw []byte, maxRetries int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, raw)
	c.MaxRetries = append(c.MaxRetries, maxRetries)
	return fmt.Sprintf("sig-%d", len(c.Sent)-1), nil
}

// GetSignatureStatuses reports sent signatures as confirmed or failed.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			out[i] = st
			continue
		}
		if txErr, ok := c.Failed[sig]; ok {
			out[i] = &solana.SignatureStatus{Slot: c.Slot, Err: txErr, ConfirmationStatus: solana.CommitmentConfirmed}
			continue
		}
		out[i] = &solana.SignatureStatus{Slot: c.Slot, ConfirmationStatus: solana.CommitmentConfirmed}
	}
	return out, nil
}

// GetRecentPrioritizationFees returns Fees.
func (c *RPCClient) GetRecentPrioritizationFees(context.Context, []string) ([]solana.PrioritizationFee, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.FeeCalls++
	if c.FeesErr != nil {
		return nil, c.FeesErr
	}
	return append([]solana.PrioritizationFee(nil), c.Fees...), nil
}

// GetSlot returns Slot.
func (c *RPCClient) GetSlot(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Slot, nil
}

var _ solana.RPCClient = (*RPCClient)(nil)
