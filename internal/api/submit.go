package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/mev"
	"solana-curve-guard/internal/solana"
)

// POST /api/mev/submit
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req mev.SubmitRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := solana.ValidateWallet(req.UserWallet); err != nil {
		s.fail(w, r, domain.WrapValidation("userWallet", err))
		return
	}
	if req.TokenAddress != "" {
		if err := solana.ValidateAddress(req.TokenAddress); err != nil {
			s.fail(w, r, domain.WrapValidation("tokenAddress", err))
			return
		}
	}
	req.RequestID = RequestIDFrom(r.Context())

	result, err := s.deps.Submitter.Submit(r.Context(), req)
	if err != nil {
		var blocked *mev.BlockedError
		if errors.As(err, &blocked) {
			s.logger.Warn("submission blocked",
				zap.String("request_id", req.RequestID),
				zap.String("bundle_id", blocked.BundleID),
				zap.Float64("risk_score", blocked.RiskScore),
			)
			writeJSON(w, http.StatusForbidden, blocked)
			return
		}
		var backoff *mev.BackoffError
		if errors.As(err, &backoff) {
			secs := int(math.Ceil(backoff.Remaining.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":          err.Error(),
				"suggestedDelay": secs,
			})
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
