package api

import (
	"fmt"
	"net/http"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/observability"
	"solana-curve-guard/internal/solana"
)

type tradeIntent struct {
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
}

// loadState resolves the mint path parameter to its current curve state.
func (s *Server) loadState(r *http.Request) (string, domain.CurveState, error) {
	mint := r.PathValue("mint")
	if err := solana.ValidateAddress(mint); err != nil {
		return "", domain.CurveState{}, domain.WrapValidation("mint", err)
	}
	state, err := s.deps.Ledger.State(r.Context(), mint)
	if err != nil {
		return "", domain.CurveState{}, err
	}
	return mint, state, nil
}

// loadIntent decodes the body and refuses trades on graduated tokens.
func (s *Server) loadIntent(r *http.Request) (domain.CurveState, domain.Direction, float64, error) {
	mint, state, err := s.loadState(r)
	if err != nil {
		return state, "", 0, err
	}
	var in tradeIntent
	if err := decodeBody(r, &in); err != nil {
		return state, "", 0, err
	}
	dir, err := domain.ParseDirection(in.Direction)
	if err != nil {
		return state, "", 0, err
	}
	if state.IsGraduated {
		return state, "", 0, fmt.Errorf("%s: %w", mint, domain.ErrGraduated)
	}
	return state, dir, in.Amount, nil
}

// GET /api/curve/{mint}/state
func (s *Server) handleCurveState(w http.ResponseWriter, r *http.Request) {
	_, state, err := s.loadState(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// POST /api/curve/{mint}/simulate
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	state, dir, amount, err := s.loadIntent(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.deps.Calculator.Simulate(state, dir, amount)
	observability.RecordSimulation(string(dir), err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /api/curve/{mint}/assess
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	state, dir, amount, err := s.loadIntent(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tp, err := s.deps.Orchestrator.AssessTrade(state, amount, dir)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	observability.RecordAssessment(string(tp.MEVRisk), tp.ShouldProceed)
	writeJSON(w, http.StatusOK, tp)
}

// GET /api/curve/table?steps=
func (s *Server) handleCurveTable(w http.ResponseWriter, r *http.Request) {
	steps := queryInt(r, "steps", 20, 1000)
	writeJSON(w, http.StatusOK, s.deps.Calculator.CurveData(steps))
}
