package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"solana-curve-guard/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint      string
	client        *http.Client
	maxRetries    int
	retryDelay    time.Duration
	maxDelay      time.Duration
	backoffMult   float64
	skipPreflight bool
	commitment    string
	requestID     atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum transport retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithSkipPreflight disables node-side simulation before broadcast.
func WithSkipPreflight(skip bool) ClientOption {
	return func(c *HTTPClient) {
		c.skipPreflight = skip
	}
}

// WithCommitment sets the commitment used for preflight and status reads.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		commitment:  CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// Only transport failures, 429 and non-200 responses are retried.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		respBody, status, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case status != http.StatusOK:
			lastErr = fmt.Errorf("unexpected status %d: %s", status, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// SendTransaction broadcasts a signed wire transaction and returns its
// signature. maxRetries is passed to the node as its rebroadcast budget.
func (c *HTTPClient) SendTransaction(ctx context.Context, raw []byte, maxRetries int) (string, error) {
	config := map[string]interface{}{
		"encoding":            "base64",
		"skipPreflight":       c.skipPreflight,
		"preflightCommitment": c.commitment,
	}
	if maxRetries >= 0 {
		config["maxRetries"] = maxRetries
	}
	params := []interface{}{
		base64.StdEncoding.EncodeToString(raw),
		config,
	}

	var sig string
	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetSignatureStatuses returns one entry per signature; unknown signatures
// yield nil entries.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []interface{}{
		signatures,
		map[string]interface{}{"searchTransactionHistory": false},
	}

	var result struct {
		Value []*signatureStatusResult `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(signatures))
	for i, v := range result.Value {
		if i >= len(statuses) || v == nil {
			continue
		}
		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			Err:                v.Err,
			ConfirmationStatus: v.ConfirmationStatus,
		}
	}
	return statuses, nil
}

// signatureStatusResult is the raw RPC item for getSignatureStatuses.
type signatureStatusResult struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int64      `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// GetRecentPrioritizationFees returns per-slot minimum priority fees paid by
// transactions that locked all of accounts (all transactions when empty).
func (c *HTTPClient) GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error) {
	var params []interface{}
	if len(accounts) > 0 {
		params = []interface{}{accounts}
	}

	var fees []PrioritizationFee
	if err := c.call(ctx, "getRecentPrioritizationFees", params, &fees); err != nil {
		return nil, err
	}
	return fees, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	params := []interface{}{map[string]string{"commitment": c.commitment}}
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

var _ RPCClient = (*HTTPClient)(nil)
