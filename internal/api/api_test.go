package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/ledger"
	"solana-curve-guard/internal/mev"
	"solana-curve-guard/internal/protection"
	"solana-curve-guard/internal/storage"
	"solana-curve-guard/internal/storage/memory"
)

const testMint = "So11111111111111111111111111111111111111112"

type fakeSubmitter struct {
	mu     sync.Mutex
	calls  []mev.SubmitRequest
	result *mev.SubmitResult
	err    error
}

func (f *fakeSubmitter) Submit(_ context.Context, req mev.SubmitRequest) (*mev.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result, f.err
}

type fixture struct {
	server    *Server
	submitter *fakeSubmitter
	bundles   *memory.BundleStore
}

type fixtureOption func(*Deps)

func newFixture(t *testing.T, cfg domain.CurveConfig, opts ...fixtureOption) fixture {
	t.Helper()
	calc, err := curve.NewCalculator(cfg)
	require.NoError(t, err)

	assessor := protection.NewAssessor(calc, protection.DefaultSlippageConfig())
	sub := &fakeSubmitter{}
	bundles := memory.NewBundleStore()

	deps := Deps{
		Calculator:   calc,
		Orchestrator: protection.NewOrchestrator(assessor, protection.DefaultRiskConfig()),
		Ledger:       ledger.New(calc, memory.NewTokenStore(), memory.NewTradeStore(), nil),
		Submitter:    sub,
		Bundles:      bundles,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return fixture{server: NewServer(Config{Addr: ":0"}, deps), submitter: sub, bundles: bundles}
}

func (f fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func newWallet(t *testing.T) string {
	t.Helper()
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey().String()
}

func TestCurveState(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())

	rec := f.do(t, http.MethodGet, "/api/curve/"+testMint+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state domain.CurveState
	decode(t, rec, &state)
	assert.InDelta(t, 2.7963e-8, state.CurrentPrice, 1e-11)
	assert.InDelta(t, 27.96, state.MarketCap, 0.01)
	assert.False(t, state.IsGraduated)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestCurveState_InvalidMint(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())

	rec := f.do(t, http.MethodGet, "/api/curve/not-a-key/state", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulate(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	path := "/api/curve/" + testMint + "/simulate"

	rec := f.do(t, http.MethodPost, path, map[string]any{"direction": "buy", "amount": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.TradeResult
	decode(t, rec, &result)
	assert.Greater(t, result.TokensOut, 0.0)
	assert.InDelta(t, 1.0, result.SolIn, 1e-9)
	assert.Greater(t, result.PriceAfter, result.PriceBefore)

	tests := []struct {
		name string
		body any
	}{
		{"zero amount", map[string]any{"direction": "buy", "amount": 0}},
		{"negative amount", map[string]any{"direction": "sell", "amount": -3}},
		{"unknown direction", map[string]any{"direction": "hold", "amount": 1}},
		{"unknown field", map[string]any{"direction": "buy", "amount": 1, "extra": true}},
		{"sell beyond sold", map[string]any{"direction": "sell", "amount": 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAssess(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())

	rec := f.do(t, http.MethodPost, "/api/curve/"+testMint+"/assess", map[string]any{"direction": "buy", "amount": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var tp domain.TradeProtection
	decode(t, rec, &tp)
	assert.Equal(t, domain.MEVRiskLow, tp.MEVRisk)
	assert.True(t, tp.ShouldProceed)
}

func TestGraduatedTokenRefused(t *testing.T) {
	cfg := domain.DefaultCurveConfig()
	cfg.GraduationThreshold = 100
	f := newFixture(t, cfg)

	// price (30+60)/(1.073e9-6e8) puts market cap near 190
	rec := f.do(t, http.MethodPost, "/api/trades", map[string]any{
		"tradeId":      "t-1",
		"tokenAddress": testMint,
		"wallet":       newWallet(t),
		"direction":    "buy",
		"solAmount":    "60",
		"tokenAmount":  "600000000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state domain.CurveState
	decode(t, rec, &state)
	require.True(t, state.IsGraduated)

	for _, op := range []string{"simulate", "assess"} {
		rec = f.do(t, http.MethodPost, "/api/curve/"+testMint+"/"+op, map[string]any{"direction": "buy", "amount": 1})
		assert.Equal(t, http.StatusConflict, rec.Code, op)
	}

	// state reads still work
	rec = f.do(t, http.MethodGet, "/api/curve/"+testMint+"/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrades(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	body := map[string]any{
		"tradeId":      "t-1",
		"tokenAddress": testMint,
		"wallet":       newWallet(t),
		"direction":    "buy",
		"solAmount":    1.5,
		"tokenAmount":  "51000000",
		"timestamp":    1_700_000_000_000,
	}

	rec := f.do(t, http.MethodPost, "/api/trades", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state domain.CurveState
	decode(t, rec, &state)
	assert.Equal(t, 1.5, state.SolRaised)
	assert.Equal(t, 51_000_000.0, state.TokensSold)

	rec = f.do(t, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body["tradeId"] = "t-2"
	body["solAmount"] = 0
	rec = f.do(t, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	f.submitter.result = &mev.SubmitResult{
		BundleID:        "b-1",
		Status:          domain.BundleStatusIncluded,
		Signatures:      []string{"sig-1"},
		ProtectionLevel: domain.TierPriority,
	}
	wallet := newWallet(t)

	rec := f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   wallet,
		"bundleType":   "priority",
		"tokenAddress": testMint,
		"tradeSize":    2.5,
	}, requestIDHeader, "req-42")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	var result mev.SubmitResult
	decode(t, rec, &result)
	assert.Equal(t, "b-1", result.BundleID)
	assert.Equal(t, domain.BundleStatusIncluded, result.Status)

	require.Len(t, f.submitter.calls, 1)
	got := f.submitter.calls[0]
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, wallet, got.UserWallet)
	assert.Equal(t, 2.5, got.TradeSize)
}

func TestSubmit_Blocked(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	f.submitter.err = &mev.BlockedError{BundleID: "b-2", Reason: "High MEV risk detected", SuggestedDelay: 30, RiskScore: 90}

	rec := f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   newWallet(t),
		"bundleType":   "flash",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "High MEV risk detected", body["reason"])
	assert.Equal(t, 30.0, body["suggestedDelay"])
	assert.Equal(t, 90.0, body["riskScore"])
}

func TestSubmit_Backoff(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	f.submitter.err = &mev.BackoffError{Remaining: 12500 * time.Millisecond}

	rec := f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   newWallet(t),
		"bundleType":   "standard",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "13", rec.Header().Get("Retry-After"))
}

func TestSubmit_Errors(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())

	// malformed wallet never reaches the submitter
	rec := f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   "not-a-wallet",
		"bundleType":   "standard",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.submitter.calls)

	f.submitter.err = domain.NewValidationError("bundleType", "unknown bundle type")
	rec = f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   newWallet(t),
		"bundleType":   "turbo",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.submitter.err = errors.New("rpc exploded")
	rec = f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   newWallet(t),
		"bundleType":   "standard",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestSubmit_RequestIDNotAcceptedFromBody(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())

	rec := f.do(t, http.MethodPost, "/api/mev/submit", map[string]any{
		"transactions": []string{"AQID"},
		"userWallet":   newWallet(t),
		"bundleType":   "standard",
		"RequestID":    "client-chosen",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.submitter.calls)
}

func TestBundles(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	wallet := newWallet(t)
	ctx := context.Background()

	for i, id := range []string{"b-1", "b-2"} {
		require.NoError(t, f.bundles.Insert(ctx, &domain.Bundle{
			BundleID:   id,
			Tier:       domain.TierStandard,
			Status:     domain.BundleStatusIncluded,
			Signatures: []string{"sig-" + id},
			Wallet:     wallet,
			CreatedAt:  int64(1000 + i),
		}))
	}

	rec := f.do(t, http.MethodGet, "/api/bundles/b-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var b domain.Bundle
	decode(t, rec, &b)
	assert.Equal(t, "b-1", b.BundleID)
	assert.Equal(t, []string{"sig-b-1"}, b.Signatures)

	rec = f.do(t, http.MethodGet, "/api/bundles/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/bundles?wallet="+wallet, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Bundles []domain.Bundle `json:"bundles"`
		Count   int             `json:"count"`
	}
	decode(t, rec, &list)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "b-2", list.Bundles[0].BundleID, "newest first")

	rec = f.do(t, http.MethodGet, "/api/bundles?wallet="+newWallet(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Zero(t, list.Count)

	rec = f.do(t, http.MethodGet, "/api/bundles", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig(), func(d *Deps) {
		d.Limiter = memory.NewRateLimiter(2, time.Minute)
	})
	path := "/api/curve/" + testMint + "/state"

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, path, nil).Code)

	// distinct client
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, "X-Forwarded-For", "10.0.0.9").Code)

	// health is not limited
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil).Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

var _ storage.RateLimiter = failingLimiter{}

func TestRateLimit_FailsOpen(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig(), func(d *Deps) { d.Limiter = failingLimiter{} })

	rec := f.do(t, http.MethodGet, "/api/curve/"+testMint+"/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig(), func(d *Deps) {
		d.Health = map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}
	})

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["redis"])
}

func TestMetricsAndTable(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/curve/table?steps=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var points []domain.CurvePoint
	decode(t, rec, &points)
	assert.NotEmpty(t, points)
	assert.Less(t, points[0].Price, points[len(points)-1].Price)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("x", "bad"), http.StatusBadRequest},
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrDuplicateKey, http.StatusConflict},
		{domain.ErrGraduated, http.StatusConflict},
		{&mev.BlockedError{}, http.StatusForbidden},
		{&mev.BackoffError{}, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestTrades_DerivedID(t *testing.T) {
	f := newFixture(t, domain.DefaultCurveConfig())
	body := map[string]any{
		"tokenAddress": testMint,
		"wallet":       newWallet(t),
		"direction":    "buy",
		"solAmount":    "2",
		"tokenAmount":  "60000000",
		"timestamp":    1_700_000_000_000,
	}

	rec := f.do(t, http.MethodPost, "/api/trades", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// the same report again hashes to the same id
	rec = f.do(t, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	delete(body, "timestamp")
	rec = f.do(t, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no id, signature or timestamp")
}
