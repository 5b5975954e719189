package api

import (
	"context"
	"net/http"
	"time"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/solana"
)

// GET /api/bundles/{id}
func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Bundles.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GET /api/bundles?wallet=&limit=
func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if err := solana.ValidateAddress(wallet); err != nil {
		s.fail(w, r, domain.WrapValidation("wallet", err))
		return
	}
	bundles, err := s.deps.Bundles.GetByWallet(r.Context(), wallet, queryInt(r, "limit", 50, 500))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if bundles == nil {
		bundles = []*domain.Bundle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bundles": bundles, "count": len(bundles)})
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Health))
	for name, check := range s.deps.Health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
