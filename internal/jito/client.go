// Package jito submits atomic transaction bundles to a Jito block engine.
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"solana-curve-guard/internal/observability"
)

// MaxBundleSize is the block engine's per-bundle transaction limit.
const MaxBundleSize = 5

const bundlesPath = "/api/v1/bundles"

// Inflight bundle statuses.
const (
	StatusInvalid = "Invalid"
	StatusPending = "Pending"
	StatusFailed  = "Failed"
	StatusLanded  = "Landed"
)

// Errors.
var (
	ErrBundleFailed  = errors.New("bundle failed")
	ErrBundleTimeout = errors.New("bundle not landed before deadline")
	ErrBundleTooBig  = fmt.Errorf("bundle exceeds %d transactions", MaxBundleSize)
)

// Config configures the block engine client.
type Config struct {
	BaseURL      string
	AuthUUID     string // optional x-jito-auth header
	Timeout      time.Duration
	RetryCount   int
	PollInterval time.Duration
	AwaitTimeout time.Duration
}

// DefaultConfig returns defaults for the mainnet block engine.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://mainnet.block-engine.jito.wtf",
		Timeout:      10 * time.Second,
		RetryCount:   2,
		PollInterval: 500 * time.Millisecond,
		AwaitTimeout: 30 * time.Second,
	}
}

// Client is a block engine JSON-RPC client.
type Client struct {
	http      *resty.Client
	cfg       Config
	logger    *zap.Logger
	requestID atomic.Uint64
}

// NewClient creates a block engine client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = def.AwaitTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if cfg.AuthUUID != "" {
		httpClient.SetHeader("x-jito-auth", cfg.AuthUUID)
	}

	return &Client{http: httpClient, cfg: cfg, logger: logger}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error returned by the block engine.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("block engine error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency("jito_"+method, time.Since(start).Seconds())
	}()

	var resp rpcResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: c.requestID.Add(1), Method: method, Params: params}).
		SetResult(&resp).
		SetError(&resp).
		Post(bundlesPath)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if r.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d: %s", method, r.StatusCode(), r.String())
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// SendBundle submits signed wire transactions as one atomic bundle and
// returns the bundle id.
func (c *Client) SendBundle(ctx context.Context, txs [][]byte) (string, error) {
	if len(txs) == 0 {
		return "", errors.New("empty bundle")
	}
	if len(txs) > MaxBundleSize {
		return "", ErrBundleTooBig
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		encoded[i] = base64.StdEncoding.EncodeToString(tx)
	}

	var id string
	params := []interface{}{encoded, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "sendBundle", params, &id); err != nil {
		return "", err
	}
	c.logger.Info("bundle sent", zap.String("bundle_id", id), zap.Int("tx_count", len(txs)))
	return id, nil
}

// InflightStatus is one entry of getInflightBundleStatuses.
type InflightStatus struct {
	BundleID   string `json:"bundle_id"`
	Status     string `json:"status"`
	LandedSlot *int64 `json:"landed_slot"`
}

// InflightStatuses reports the status of recently sent bundles.
func (c *Client) InflightStatuses(ctx context.Context, ids []string) ([]InflightStatus, error) {
	var result struct {
		Value []InflightStatus `json:"value"`
	}
	if err := c.call(ctx, "getInflightBundleStatuses", []interface{}{ids}, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// AwaitBundle polls until the bundle lands and returns its slot.
func (c *Client) AwaitBundle(ctx context.Context, bundleID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AwaitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.InflightStatuses(ctx, []string{bundleID})
		if err != nil {
			c.logger.Debug("bundle status poll failed", zap.String("bundle_id", bundleID), zap.Error(err))
		}
		for _, st := range statuses {
			if st.BundleID != bundleID {
				continue
			}
			switch st.Status {
			case StatusLanded:
				var slot int64
				if st.LandedSlot != nil {
					slot = *st.LandedSlot
				}
				return slot, nil
			case StatusFailed, StatusInvalid:
				return 0, fmt.Errorf("%w: %s is %s", ErrBundleFailed, bundleID, st.Status)
			}
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %s", ErrBundleTimeout, bundleID)
		case <-ticker.C:
		}
	}
}
