package mev

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"solana-curve-guard/internal/domain"
)

type fakeSignals struct {
	market    domain.MarketAnalysis
	conflicts int
	err       error
}

func (f *fakeSignals) MarketAnalysis(context.Context, string) (domain.MarketAnalysis, error) {
	return f.market, f.err
}

func (f *fakeSignals) MempoolConflicts(context.Context, string, float64) (int, error) {
	return f.conflicts, nil
}

// Signal sets for each band, scored for a 1 SOL trade:
// low 0, medium 28 (plus size), high 65, blocked 90.
var (
	lowSignals    = &fakeSignals{}
	mediumSignals = &fakeSignals{market: domain.MarketAnalysis{RecentVolume: 150, PriceVolatility: 15}}
	highSignals   = &fakeSignals{market: domain.MarketAnalysis{RecentVolume: 150, PriceVolatility: 25, SuspiciousActivity: 3}}

	blockedSignals = &fakeSignals{
		market:    domain.MarketAnalysis{RecentVolume: 150, PriceVolatility: 25, SuspiciousActivity: 3, MEVBotsActive: true},
		conflicts: 1,
	}
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

// recordingWaiter returns immediately and records requested delays.
type recordingWaiter struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (w *recordingWaiter) Wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays = append(w.delays, d)
	if w.err != nil {
		return w.err
	}
	return ctx.Err()
}

func (w *recordingWaiter) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

type fakeSender struct {
	mu      sync.Mutex
	sent    [][]byte
	retries []int
	failAt  map[int]bool
}

func (s *fakeSender) SendTransaction(_ context.Context, raw []byte, maxRetries int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.sent)
	s.sent = append(s.sent, raw)
	s.retries = append(s.retries, maxRetries)
	if s.failAt[i] {
		return "", errors.New("node is behind")
	}
	return fmt.Sprintf("sig-%d", i), nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeConfirmer struct {
	slot int64
	fail map[string]bool
}

func (c *fakeConfirmer) Confirm(_ context.Context, sig string) (int64, error) {
	if c.fail[sig] {
		return 0, errors.New("transaction expired")
	}
	return c.slot, nil
}

type fakeEnhancer struct {
	mu    sync.Mutex
	plans []domain.FeePlan
	err   error
}

func (e *fakeEnhancer) Enhance(_ context.Context, txBase64 string, plan domain.FeePlan) (*domain.PreparedTx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plans = append(e.plans, plan)
	if e.err != nil {
		return nil, e.err
	}
	return &domain.PreparedTx{Raw: []byte(txBase64), Signature: "presigned-" + txBase64}, nil
}

type fakeFees struct {
	fee uint64
	err error
}

func (f fakeFees) RecommendedFee(context.Context, domain.BundleTier) (uint64, error) {
	return f.fee, f.err
}

type fakeRelay struct {
	id      string
	slot    int64
	sendErr error
	sent    [][]byte
}

func (r *fakeRelay) SendBundle(_ context.Context, txs [][]byte) (string, error) {
	r.sent = txs
	if r.sendErr != nil {
		return "", r.sendErr
	}
	return r.id, nil
}

func (r *fakeRelay) AwaitBundle(context.Context, string) (int64, error) {
	return r.slot, nil
}
