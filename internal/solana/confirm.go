package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfirmed is returned when a signature does not land before the deadline.
var ErrNotConfirmed = errors.New("transaction not confirmed")

// TxError carries the on-chain error of a landed but failed transaction.
type TxError struct {
	Signature string
	Err       interface{}
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Confirmer polls getSignatureStatuses until a signature reaches the
// configured commitment.
type Confirmer struct {
	rpc        RPCClient
	commitment string
	interval   time.Duration
	timeout    time.Duration
}

// ConfirmerOption configures a Confirmer.
type ConfirmerOption func(*Confirmer)

// WithPollInterval sets the status polling interval.
func WithPollInterval(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		c.interval = d
	}
}

// WithConfirmTimeout bounds how long one signature is polled.
func WithConfirmTimeout(d time.Duration) ConfirmerOption {
	return func(c *Confirmer) {
		c.timeout = d
	}
}

// WithConfirmCommitment sets the commitment a signature must reach.
func WithConfirmCommitment(commitment string) ConfirmerOption {
	return func(c *Confirmer) {
		c.commitment = commitment
	}
}

// NewConfirmer creates a confirmer over rpc.
func NewConfirmer(rpc RPCClient, opts ...ConfirmerOption) *Confirmer {
	c := &Confirmer{
		rpc:        rpc,
		commitment: CommitmentConfirmed,
		interval:   500 * time.Millisecond,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Confirm waits for signature to land and returns its slot.
// Returns *TxError when the transaction landed with an error and
// ErrNotConfirmed when the timeout elapses first.
func (c *Confirmer) Confirm(ctx context.Context, signature string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var lastErr error
	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
		switch {
		case err != nil:
			lastErr = err
		case len(statuses) > 0 && statuses[0] != nil:
			st := statuses[0]
			if st.Err != nil {
				return st.Slot, &TxError{Signature: signature, Err: st.Err}
			}
			if st.Landed(c.commitment) {
				return st.Slot, nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return 0, fmt.Errorf("%w: %s: last poll error: %v", ErrNotConfirmed, signature, lastErr)
			}
			return 0, fmt.Errorf("%w: %s: %v", ErrNotConfirmed, signature, ctx.Err())
		case <-ticker.C:
		}
	}
}
