package mev

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/observability"
	"solana-curve-guard/internal/storage/memory"
)

type harness struct {
	waiter    *recordingWaiter
	sender    *fakeSender
	confirmer *fakeConfirmer
	enhancer  *fakeEnhancer
	relay     *fakeRelay
	bundles   *memory.BundleStore
	gate      *memory.BlockGate
	fees      fakeFees
}

func newHarness() *harness {
	return &harness{
		waiter:    &recordingWaiter{},
		sender:    &fakeSender{},
		confirmer: &fakeConfirmer{slot: 250_000_000},
		enhancer:  &fakeEnhancer{},
		bundles:   memory.NewBundleStore(),
		gate:      memory.NewBlockGate(),
		fees:      fakeFees{fee: 150_000},
	}
}

func (h *harness) submitter(signals RiskSignalSource) *Submitter {
	opts := SubmitterOptions{
		Scorer:     NewScorer(signals, nil, WithRand(testRand())),
		Waiter:     h.waiter,
		Enhancer:   h.enhancer,
		Fees:       h.fees,
		Sequential: NewSequentialBackend(h.sender, h.confirmer, h.waiter, nil),
		Bundles:    h.bundles,
		Gate:       h.gate,
		SavingsFn: func(tier domain.BundleTier, n int) string {
			return "savings"
		},
	}
	if h.relay != nil {
		opts.Atomic = h.relay
	}
	return NewSubmitter(opts)
}

func request(tier string, txs ...string) SubmitRequest {
	if len(txs) == 0 {
		txs = []string{"dHgx", "dHgy"}
	}
	return SubmitRequest{
		Transactions: txs,
		UserWallet:   "wallet1",
		BundleType:   tier,
		TokenAddress: "mintA",
		TradeSize:    1,
	}
}

func TestSubmit_LowRiskStandard(t *testing.T) {
	h := newHarness()
	s := h.submitter(lowSignals)

	res, err := s.Submit(context.Background(), request("standard"))
	require.NoError(t, err)

	assert.Equal(t, domain.BundleStatusIncluded, res.Status)
	assert.Equal(t, []string{"sig-0", "sig-1"}, res.Signatures)
	assert.Equal(t, domain.TierStandard, res.ProtectionLevel)
	assert.Equal(t, domain.BackendSequential, res.Backend)
	assert.Equal(t, domain.RiskLevelLow, res.RiskLevel)
	assert.Equal(t, int64(250_000_000), res.Slot)
	assert.Equal(t, "savings", res.EstimatedSavings)
	assert.False(t, res.Degraded)
	assert.Empty(t, h.waiter.recorded())

	// tier retries reach the RPC layer
	assert.Equal(t, []int{1, 1}, h.sender.retries)
	require.Len(t, h.enhancer.plans, 2)
	assert.Equal(t, domain.FeePlan{ComputeUnits: 400_000, MicroLamports: 150_000}, h.enhancer.plans[0])

	stored, err := h.bundles.GetByID(context.Background(), res.BundleID)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleStatusIncluded, stored.Status)
	assert.Equal(t, uint64(150_000), stored.PriorityFee)
	assert.Equal(t, 2, stored.TransactionCount)
}

func TestSubmit_EmptyBundleTypeDefaultsToStandard(t *testing.T) {
	h := newHarness()
	res, err := h.submitter(lowSignals).Submit(context.Background(), request(""))
	require.NoError(t, err)
	assert.Equal(t, domain.TierStandard, res.ProtectionLevel)
}

func TestSubmit_PriorityWaitsBetweenSends(t *testing.T) {
	h := newHarness()
	res, err := h.submitter(lowSignals).Submit(context.Background(), request("priority", "a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, domain.BundleStatusIncluded, res.Status)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, h.waiter.recorded())
	assert.Equal(t, []int{2, 2, 2}, h.sender.retries)
}

func TestSubmit_Blocked(t *testing.T) {
	h := newHarness()
	s := h.submitter(blockedSignals)
	ctx := context.Background()

	res, err := s.Submit(ctx, request("priority"))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))

	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.GreaterOrEqual(t, blocked.SuggestedDelay, 15)
	assert.LessOrEqual(t, blocked.SuggestedDelay, 45)
	assert.Greater(t, blocked.RiskScore, BlockedAbove)

	// nothing reached the network
	assert.Zero(t, h.sender.count())
	assert.Empty(t, h.waiter.recorded())

	stored, err := h.bundles.GetByID(ctx, blocked.BundleID)
	require.NoError(t, err)
	assert.Equal(t, domain.BundleStatusFailed, stored.Status)
	assert.Equal(t, blocked.Reason, stored.Error)
	assert.Equal(t, domain.RiskLevelBlocked, stored.RiskLevel)

	// the retry window rejects an immediate resubmission
	_, err = s.Submit(ctx, request("priority"))
	assert.True(t, errors.Is(err, domain.ErrBackoffActive))
	var backoff *BackoffError
	require.True(t, errors.As(err, &backoff))
	assert.Greater(t, backoff.Remaining, 10*time.Second)
	assert.Equal(t, 1, h.bundles.Len())

	// other tokens from the same wallet are not held back
	other := request("priority")
	other.TokenAddress = "mintB"
	_, err = s.Submit(ctx, other)
	assert.False(t, errors.Is(err, domain.ErrBackoffActive))
}

func TestSubmit_HighRiskWaits(t *testing.T) {
	h := newHarness()
	res, err := h.submitter(highSignals).Submit(context.Background(), request("standard"))
	require.NoError(t, err)

	assert.Equal(t, domain.RiskLevelHighProtection, res.RiskLevel)
	assert.Equal(t, domain.BundleStatusIncluded, res.Status)

	delays := h.waiter.recorded()
	require.Len(t, delays, 1)
	assert.GreaterOrEqual(t, delays[0], 5*time.Second)
	assert.LessOrEqual(t, delays[0], 15*time.Second)

	stored, err := h.bundles.GetByID(context.Background(), res.BundleID)
	require.NoError(t, err)
	assert.Equal(t, delays[0].Milliseconds(), stored.DelayMs)
}

func TestSubmit_FallbackIsDegraded(t *testing.T) {
	h := newHarness()
	res, err := h.submitter(&fakeSignals{err: errors.New("rpc down")}).Submit(context.Background(), request("standard"))
	require.NoError(t, err)

	assert.Equal(t, domain.RiskLevelErrorFallback, res.RiskLevel)
	assert.Equal(t, FallbackScore, res.RiskScore)
	assert.True(t, res.Degraded)
	assert.Equal(t, domain.BundleStatusIncluded, res.Status)

	delays := h.waiter.recorded()
	require.Len(t, delays, 1)
	assert.GreaterOrEqual(t, delays[0], 1*time.Second)
	assert.LessOrEqual(t, delays[0], 4*time.Second)
}

func TestSubmit_CancelledDuringDelay(t *testing.T) {
	h := newHarness()
	h.waiter.err = context.Canceled

	res, err := h.submitter(highSignals).Submit(context.Background(), request("standard"))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.sender.count())
	assert.Empty(t, h.enhancer.plans)

	bundles, err := h.bundles.GetByWallet(context.Background(), "wallet1", 0)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, domain.BundleStatusFailed, bundles[0].Status)
	assert.Contains(t, bundles[0].Error, "cancelled")
}

func TestSubmit_FlashWithoutRelayFallsBack(t *testing.T) {
	before := testutil.ToFloat64(observability.DefaultMetrics.FallbackSubmission)

	h := newHarness()
	res, err := h.submitter(lowSignals).Submit(context.Background(), request("flash"))
	require.NoError(t, err)

	assert.Equal(t, domain.BundleStatusIncluded, res.Status)
	assert.True(t, res.Degraded)
	assert.Equal(t, domain.BackendSequentialFallback, res.Backend)
	assert.Equal(t, []int{3, 3}, h.sender.retries)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.DefaultMetrics.FallbackSubmission))
}

func TestSubmit_FlashWithRelay(t *testing.T) {
	h := newHarness()
	h.relay = &fakeRelay{id: "relay-1", slot: 300}

	res, err := h.submitter(lowSignals).Submit(context.Background(), request("flash"))
	require.NoError(t, err)

	assert.Equal(t, domain.BundleStatusIncluded, res.Status)
	assert.False(t, res.Degraded)
	assert.Equal(t, domain.BackendAtomic, res.Backend)
	assert.Equal(t, int64(300), res.Slot)
	assert.Equal(t, []string{"presigned-dHgx", "presigned-dHgy"}, res.Signatures)
	assert.Len(t, h.relay.sent, 2)
	assert.Zero(t, h.sender.count())

	stored, err := h.bundles.GetByID(context.Background(), res.BundleID)
	require.NoError(t, err)
	assert.Equal(t, "relay-1", stored.RelayBundleID)
}

func TestSubmit_RelayRejection(t *testing.T) {
	h := newHarness()
	h.relay = &fakeRelay{sendErr: errors.New("bundle simulation failed")}

	res, err := h.submitter(lowSignals).Submit(context.Background(), request("flash"))
	require.NoError(t, err)
	assert.Equal(t, domain.BundleStatusFailed, res.Status)
	assert.Contains(t, res.Error, "bundle simulation failed")
	assert.Empty(t, res.Signatures)
}

func TestSubmit_PartialFailure(t *testing.T) {
	h := newHarness()
	h.sender.failAt = map[int]bool{1: true}

	res, err := h.submitter(lowSignals).Submit(context.Background(), request("standard", "a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, domain.BundleStatusFailed, res.Status)
	assert.Equal(t, []string{"sig-0", "sig-2"}, res.Signatures)
	assert.Contains(t, res.Error, "tx 1")
}

func TestSubmit_ConfirmationFailure(t *testing.T) {
	h := newHarness()
	h.confirmer.fail = map[string]bool{"sig-0": true}

	res, err := h.submitter(lowSignals).Submit(context.Background(), request("standard"))
	require.NoError(t, err)
	assert.Equal(t, domain.BundleStatusFailed, res.Status)
	assert.Contains(t, res.Error, "transaction expired")
}

func TestSubmit_FeeOracleErrorUsesFallbackFee(t *testing.T) {
	h := newHarness()
	h.fees = fakeFees{fee: 100_000, err: errors.New("no samples")}

	res, err := h.submitter(lowSignals).Submit(context.Background(), request("standard"))
	require.NoError(t, err)
	assert.Equal(t, domain.BundleStatusIncluded, res.Status)
	assert.Equal(t, uint64(100_000), h.enhancer.plans[0].MicroLamports)
}

func TestSubmit_EnhanceErrors(t *testing.T) {
	t.Run("malformed transaction", func(t *testing.T) {
		h := newHarness()
		h.enhancer.err = domain.NewValidationError("transactions", "not base64")

		res, err := h.submitter(lowSignals).Submit(context.Background(), request("standard"))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 1, h.bundles.Len())
	})

	t.Run("signer failure", func(t *testing.T) {
		h := newHarness()
		h.enhancer.err = errors.New("keypair unavailable")

		res, err := h.submitter(lowSignals).Submit(context.Background(), request("standard"))
		require.NoError(t, err)
		assert.Equal(t, domain.BundleStatusFailed, res.Status)
		assert.Contains(t, res.Error, "keypair unavailable")
		assert.Zero(t, h.sender.count())
	})
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"no transactions", SubmitRequest{UserWallet: "w"}},
		{"too many transactions", SubmitRequest{UserWallet: "w", Transactions: []string{"a", "b", "c", "d", "e", "f"}}},
		{"blank transaction", SubmitRequest{UserWallet: "w", Transactions: []string{"a", " "}}},
		{"missing wallet", SubmitRequest{Transactions: []string{"a"}}},
		{"unknown bundle type", SubmitRequest{UserWallet: "w", Transactions: []string{"a"}, BundleType: "turbo"}},
		{"negative size", SubmitRequest{UserWallet: "w", Transactions: []string{"a"}, TradeSize: -1}},
		{"slippage out of range", SubmitRequest{UserWallet: "w", Transactions: []string{"a"}, MaxSlippage: 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			res, err := h.submitter(lowSignals).Submit(context.Background(), tt.req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, h.bundles.Len())
		})
	}
}

func TestSubmit_UnknownTierWrapsSentinel(t *testing.T) {
	h := newHarness()
	_, err := h.submitter(lowSignals).Submit(context.Background(), request("turbo"))
	assert.ErrorIs(t, err, domain.ErrUnknownTier)
}
