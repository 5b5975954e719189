package mev

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
)

// Sender broadcasts one signed transaction and returns its signature.
type Sender interface {
	SendTransaction(ctx context.Context, raw []byte, maxRetries int) (string, error)
}

// Confirmer waits for a signature to land. A non-nil error means the
// transaction failed or was not confirmed.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) (slot int64, err error)
}

// AtomicBackend submits transactions as one all-or-nothing bundle
// through an external block-builder relay.
type AtomicBackend interface {
	SendBundle(ctx context.Context, txs [][]byte) (bundleID string, err error)
	AwaitBundle(ctx context.Context, bundleID string) (slot int64, err error)
}

// Submission is the outcome of handing a bundle to a backend.
type Submission struct {
	Signatures    []string
	Slot          int64
	RelayBundleID string
	Included      bool // every transaction landed without error
	Err           error
}

// Backend submits prepared transactions under a tier's parameters.
type Backend interface {
	Name() string
	Submit(ctx context.Context, txs []*domain.PreparedTx, params domain.TierParams) *Submission
}

// SequentialBackend sends transactions one by one and confirms each.
// There is no all-or-nothing guarantee: partial landing is reported as not included.
type SequentialBackend struct {
	sender    Sender
	confirmer Confirmer
	waiter    Waiter
	logger    *zap.Logger
}

// NewSequentialBackend creates a sequential backend.
func NewSequentialBackend(sender Sender, confirmer Confirmer, waiter Waiter, logger *zap.Logger) *SequentialBackend {
	if waiter == nil {
		waiter = TimerWaiter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequentialBackend{sender: sender, confirmer: confirmer, waiter: waiter, logger: logger}
}

// Name implements Backend.
func (b *SequentialBackend) Name() string {
	return domain.BackendSequential
}

// Submit implements Backend.
func (b *SequentialBackend) Submit(ctx context.Context, txs []*domain.PreparedTx, params domain.TierParams) *Submission {
	sub := &Submission{}
	var errs []error

	for i, tx := range txs {
		if i > 0 && params.SubmitGap > 0 {
			if err := b.waiter.Wait(ctx, params.SubmitGap); err != nil {
				errs = append(errs, err)
				break
			}
		}

		sig, err := b.sender.SendTransaction(ctx, tx.Raw, params.MaxRetries)
		if err != nil {
			b.logger.Warn("transaction send failed", zap.Int("index", i), zap.Error(err))
			errs = append(errs, fmt.Errorf("tx %d: send: %w", i, err))
			continue
		}
		sub.Signatures = append(sub.Signatures, sig)
	}

	confirmed := 0
	for _, sig := range sub.Signatures {
		slot, err := b.confirmer.Confirm(ctx, sig)
		if err != nil {
			errs = append(errs, fmt.Errorf("confirm %s: %w", sig, err))
			continue
		}
		confirmed++
		if slot > sub.Slot {
			sub.Slot = slot
		}
	}

	sub.Included = len(errs) == 0 && confirmed == len(txs)
	sub.Err = errors.Join(errs...)
	return sub
}

// atomicAdapter runs an AtomicBackend as a Backend.
type atomicAdapter struct {
	relay AtomicBackend
}

func (a atomicAdapter) Name() string {
	return domain.BackendAtomic
}

func (a atomicAdapter) Submit(ctx context.Context, txs []*domain.PreparedTx, _ domain.TierParams) *Submission {
	raws := make([][]byte, len(txs))
	sigs := make([]string, 0, len(txs))
	for i, tx := range txs {
		raws[i] = tx.Raw
		if tx.Signature != "" {
			sigs = append(sigs, tx.Signature)
		}
	}

	sub := &Submission{}
	id, err := a.relay.SendBundle(ctx, raws)
	if err != nil {
		sub.Err = fmt.Errorf("send bundle: %w", err)
		return sub
	}
	sub.RelayBundleID = id

	slot, err := a.relay.AwaitBundle(ctx, id)
	if err != nil {
		sub.Err = fmt.Errorf("await bundle %s: %w", id, err)
		return sub
	}

	// The bundle landed as a whole, so every signature is final.
	sub.Signatures = sigs
	sub.Slot = slot
	sub.Included = len(sigs) == len(txs)
	if !sub.Included {
		sub.Err = errors.New("bundle landed but some transactions carried no signature")
	}
	return sub
}
