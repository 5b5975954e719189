package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana-curve-guard/internal/observability"
)

// ErrClientClosed is returned by a closed WebSocket client.
var ErrClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
	// BufferSize is the per-subscription notification buffer.
	BufferSize int
	// Commitment of delivered notifications.
	Commitment string
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		BufferSize:        1024,
		Commitment:        CommitmentProcessed,
	}
}

// subscription is one live logsSubscribe feed.
type subscription struct {
	filter LogsFilter
	ch     chan LogNotification
	stop   chan struct{} // closed by Unsubscribe
}

// WSClientImpl implements WSClient using gorilla/websocket.
// Subscriptions survive reconnects: they are re-sent on the new connection
// and keep delivering to the same channel.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	subsMu  sync.RWMutex
	subs    map[int64]*subscription // by server subscription id
	pending map[uint64]chan int64   // by request id, awaiting a subscription id

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger *zap.Logger) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultWSConfig().BufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		subs:     make(map[int64]*subscription),
		pending:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (c *WSClientImpl) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// SubscribeLogs subscribes to transaction logs matching the filter.
// The returned channel is closed by Close.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	subID, err := c.subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		filter: filter,
		ch:     make(chan LogNotification, c.config.BufferSize),
		stop:   make(chan struct{}),
	}
	c.subsMu.Lock()
	c.subs[subID] = sub
	c.subsMu.Unlock()

	return sub.ch, nil
}

// Unsubscribe removes the feed behind ch and sends logsUnsubscribe.
func (c *WSClientImpl) Unsubscribe(ctx context.Context, ch <-chan LogNotification) error {
	c.subsMu.Lock()
	var (
		subID int64
		sub   *subscription
	)
	for id, s := range c.subs {
		if s.ch == ch {
			subID, sub = id, s
			break
		}
	}
	if sub != nil {
		delete(c.subs, subID)
		close(sub.stop)
	}
	c.subsMu.Unlock()

	if sub == nil || c.closed.Load() {
		return nil
	}
	return c.unsubscribe(ctx, subID)
}

// unsubscribe sends logsUnsubscribe without waiting for the reply.
func (c *WSClientImpl) unsubscribe(ctx context.Context, subID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "logsUnsubscribe",
		Params:  []interface{}{subID},
	}
	if err := c.write(req); err != nil {
		return fmt.Errorf("write unsubscribe: %w", err)
	}
	return nil
}

// subscribe sends logsSubscribe and waits for the subscription id.
func (c *WSClientImpl) subscribe(ctx context.Context, filter LogsFilter) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	var mentions interface{} = "all"
	if len(filter.Mentions) > 0 {
		mentions = map[string]interface{}{"mentions": filter.Mentions}
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": c.config.Commitment},
		},
	}

	confirmCh := make(chan int64, 1)
	c.subsMu.Lock()
	c.pending[reqID] = confirmCh
	c.subsMu.Unlock()
	defer func() {
		c.subsMu.Lock()
		delete(c.pending, reqID)
		c.subsMu.Unlock()
	}()

	if err := c.write(req); err != nil {
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return 0, ErrClientClosed
		}
		return subID, nil
	case <-timer.C:
		return 0, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, ErrClientClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *WSClientImpl) write(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// Close closes the WebSocket connection and every subscription channel.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
	return nil
}

// readLoop reads messages and dispatches them until Close.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay
	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if !c.reconnecting.Swap(true) {
				c.logger.Warn("websocket read failed, reconnecting",
					zap.Duration("delay", reconnectDelay), zap.Error(err))
				go c.reconnect(conn, reconnectDelay)
			}
			reconnectDelay = min(reconnectDelay*2, c.config.MaxReconnectDelay)
			if !c.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// sleep waits d and reports false when the client closed meanwhile.
func (c *WSClientImpl) sleep(d time.Duration) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(d):
		return true
	}
}

// reconnect replaces the broken connection and re-sends every subscription.
func (c *WSClientImpl) reconnect(broken *websocket.Conn, delay time.Duration) {
	defer c.reconnecting.Store(false)

	if !c.sleep(delay) {
		return
	}

	c.connMu.Lock()
	if c.conn == broken {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.connect(ctx); err != nil {
		c.logger.Warn("websocket reconnect failed", zap.Error(err))
		return
	}
	c.resubscribeAll()
}

func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.RLock()
	old := make(map[int64]*subscription, len(c.subs))
	for id, sub := range c.subs {
		old[id] = sub
	}
	c.subsMu.RUnlock()

	for oldID, sub := range old {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.subscribe(ctx, sub.filter)
		cancel()
		if err != nil {
			c.logger.Warn("resubscribe failed", zap.Int64("subscription", oldID), zap.Error(err))
			continue
		}

		c.subsMu.Lock()
		_, live := c.subs[oldID]
		delete(c.subs, oldID)
		if live {
			c.subs[newID] = sub
		}
		c.subsMu.Unlock()

		// unsubscribed while the new feed was being opened
		if !live {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := c.unsubscribe(ctx, newID); err != nil {
				c.logger.Debug("drop stale subscription failed", zap.Int64("subscription", newID), zap.Error(err))
			}
			cancel()
		}
	}
}

// handleMessage routes a subscription confirmation or a notification.
func (c *WSClientImpl) handleMessage(message []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.logger.Debug("unparseable websocket message", zap.Error(err))
		return
	}

	switch {
	case env.Method == "logsNotification" && env.Params != nil:
		c.handleLogsNotification(env.Params)
	case env.Error != nil:
		c.logger.Warn("websocket error response",
			zap.Uint64("id", env.ID), zap.Int("code", env.Error.Code), zap.String("message", env.Error.Message))
	case env.ID != 0 && len(env.Result) > 0:
		var subID int64
		if err := json.Unmarshal(env.Result, &subID); err != nil {
			return
		}
		c.subsMu.RLock()
		ch, ok := c.pending[env.ID]
		c.subsMu.RUnlock()
		if ok {
			select {
			case ch <- subID:
			default:
			}
		}
	}
}

// handleLogsNotification delivers to the subscriber, blocking on a full
// buffer until Unsubscribe or Close.
func (c *WSClientImpl) handleLogsNotification(p *wsNotificationParams) {
	notif := LogNotification{
		Signature: p.Result.Value.Signature,
		Logs:      p.Result.Value.Logs,
		Err:       p.Result.Value.Err,
	}
	if p.Result.Context != nil {
		notif.Slot = p.Result.Context.Slot
	}

	c.subsMu.RLock()
	sub, ok := c.subs[p.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		return
	}

	observability.RecordWSNotification()
	select {
	case sub.ch <- notif:
	case <-sub.stop:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a dead connection surfaces in readLoop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsEnvelope struct {
	ID     uint64                `json:"id"`
	Method string                `json:"method"`
	Result json.RawMessage       `json:"result"`
	Error  *RPCError             `json:"error"`
	Params *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

var _ WSClient = (*WSClientImpl)(nil)
