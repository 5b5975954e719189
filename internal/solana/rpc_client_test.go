package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcServer answers every request with result(req).
func rpcServer(t *testing.T, result func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result(req),
		})
	}))
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	var got rpcRequest

	server := rpcServer(t, func(req rpcRequest) interface{} {
		got = req
		return "5sig"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, WithSkipPreflight(true))
	sig, err := client.SendTransaction(context.Background(), raw, 2)
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "5sig" {
		t.Errorf("expected signature 5sig, got %s", sig)
	}

	if got.Method != "sendTransaction" {
		t.Errorf("expected method sendTransaction, got %s", got.Method)
	}
	if len(got.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(got.Params))
	}
	if got.Params[0] != base64.StdEncoding.EncodeToString(raw) {
		t.Errorf("unexpected payload %v", got.Params[0])
	}
	config, ok := got.Params[1].(map[string]interface{})
	if !ok {
		t.Fatalf("expected config object, got %T", got.Params[1])
	}
	if config["encoding"] != "base64" {
		t.Errorf("expected base64 encoding, got %v", config["encoding"])
	}
	if config["skipPreflight"] != true {
		t.Errorf("expected skipPreflight true, got %v", config["skipPreflight"])
	}
	if config["maxRetries"] != float64(2) {
		t.Errorf("expected maxRetries 2, got %v", config["maxRetries"])
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getSignatureStatuses" {
			t.Errorf("expected getSignatureStatuses, got %s", req.Method)
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 82},
			"value": []interface{}{
				map[string]interface{}{
					"slot":               72,
					"confirmations":      10,
					"err":                nil,
					"confirmationStatus": "confirmed",
				},
				nil,
				map[string]interface{}{
					"slot":               48,
					"confirmations":      nil,
					"err":                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
					"confirmationStatus": "finalized",
				},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}

	if statuses[0] == nil || statuses[0].Slot != 72 || !statuses[0].Landed(CommitmentConfirmed) {
		t.Errorf("unexpected first status %+v", statuses[0])
	}
	if statuses[0].Landed(CommitmentFinalized) {
		t.Error("confirmed status should not satisfy finalized")
	}
	if statuses[1] != nil {
		t.Errorf("expected nil for unknown signature, got %+v", statuses[1])
	}
	if statuses[2] == nil || statuses[2].Err == nil {
		t.Errorf("expected failed status, got %+v", statuses[2])
	}
	if statuses[2].Confirmations != nil {
		t.Errorf("expected nil confirmations for rooted tx")
	}
}

func TestHTTPClient_GetRecentPrioritizationFees(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if len(req.Params) != 1 {
			t.Errorf("expected accounts param, got %v", req.Params)
		}
		return []map[string]interface{}{
			{"slot": 10, "prioritizationFee": 0},
			{"slot": 11, "prioritizationFee": 5000},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	fees, err := client.GetRecentPrioritizationFees(context.Background(), []string{"mint"})
	if err != nil {
		t.Fatalf("GetRecentPrioritizationFees: %v", err)
	}
	if len(fees) != 2 || fees[1].PrioritizationFee != 5000 || fees[1].Slot != 11 {
		t.Errorf("unexpected fees %+v", fees)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)

	if _, err := client.GetSlot(context.Background()); err == nil {
		t.Fatal("expected error after retries")
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32002,
				"message": "Transaction simulation failed: Blockhash not found",
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.SendTransaction(context.Background(), []byte{1}, 0)
	if err == nil {
		t.Fatal("expected RPC error")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Code != -32002 {
		t.Errorf("expected code -32002, got %d", rpcErr.Code)
	}
	// RPC errors are not retried
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSlot(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
