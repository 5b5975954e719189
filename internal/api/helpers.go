package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/storage"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a size-limited JSON body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, domain.ErrGraduated):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBackoffActive):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and masked.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func queryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
