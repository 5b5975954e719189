package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/idhash"
	"solana-curve-guard/internal/ledger"
	"solana-curve-guard/internal/solana"
)

// confirmedTradeRequest carries amounts as JSON numbers or strings; both
// decode exactly into decimals.
type confirmedTradeRequest struct {
	TradeID      string          `json:"tradeId"`
	TokenAddress string          `json:"tokenAddress"`
	Wallet       string          `json:"wallet"`
	Direction    string          `json:"direction"`
	SolAmount    decimal.Decimal `json:"solAmount"`
	TokenAmount  decimal.Decimal `json:"tokenAmount"`
	ProfitPct    float64         `json:"profitPct"`
	Signature    string          `json:"signature"`
	Timestamp    int64           `json:"timestamp"` // Unix milliseconds
}

// POST /api/trades
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req confirmedTradeRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := solana.ValidateAddress(req.TokenAddress); err != nil {
		s.fail(w, r, domain.WrapValidation("tokenAddress", err))
		return
	}
	dir, err := domain.ParseDirection(req.Direction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tradeID := req.TradeID
	if tradeID == "" {
		tradeID = req.Signature
	}
	if tradeID == "" && req.Timestamp > 0 {
		tradeID = idhash.TradeID(req.TokenAddress, req.Wallet, string(dir), req.SolAmount.String(), req.TokenAmount.String(), req.Timestamp)
	}

	state, err := s.deps.Ledger.ApplyConfirmedTrade(r.Context(), ledger.ConfirmedTrade{
		TradeID:     tradeID,
		Mint:        req.TokenAddress,
		Wallet:      req.Wallet,
		Direction:   dir,
		SolAmount:   req.SolAmount,
		TokenAmount: req.TokenAmount,
		ProfitPct:   req.ProfitPct,
		Signature:   req.Signature,
		TimestampMs: req.Timestamp,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
