package solana

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// activityRingSize bounds the timestamps kept per account.
	activityRingSize = 256
	// DefaultMaxWatched bounds the accounts a scanner subscribes to.
	DefaultMaxWatched = 256
)

// ErrWatchLimit is returned when every watch slot is still subscribing.
var ErrWatchLimit = errors.New("activity watch limit reached")

// ActivityScanner counts recent transactions that touch an account, fed by
// a logs subscription per watched account. It backs the heuristic
// mempool-conflict signal. At most maxWatched accounts are subscribed; the
// least recently queried one is unsubscribed to make room.
type ActivityScanner struct {
	ws         WSClient
	logger     *zap.Logger
	now        func() time.Time
	program    string
	maxWatched int

	mu       sync.Mutex
	accounts map[string]*watchedAccount
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type watchedAccount struct {
	ring      activityRing
	ch        <-chan LogNotification // nil until subscribed
	stop      chan struct{}
	lastQuery time.Time
}

type activityRing struct {
	times [activityRingSize]time.Time
	next  int
	size  int
}

func (r *activityRing) add(t time.Time) {
	r.times[r.next] = t
	r.next = (r.next + 1) % activityRingSize
	if r.size < activityRingSize {
		r.size++
	}
}

func (r *activityRing) since(cutoff time.Time) int {
	n := 0
	for i := 0; i < r.size; i++ {
		if !r.times[i].Before(cutoff) {
			n++
		}
	}
	return n
}

// ActivityOption configures an ActivityScanner.
type ActivityOption func(*ActivityScanner)

// WithCurveProgram makes the scanner subscribe to each token's bonding-curve
// account under programID instead of the mint.
func WithCurveProgram(programID string) ActivityOption {
	return func(s *ActivityScanner) {
		s.program = programID
	}
}

// WithMaxWatched sets how many accounts are subscribed at once.
func WithMaxWatched(n int) ActivityOption {
	return func(s *ActivityScanner) {
		if n > 0 {
			s.maxWatched = n
		}
	}
}

// NewActivityScanner creates a scanner over ws.
func NewActivityScanner(ws WSClient, logger *zap.Logger, opts ...ActivityOption) *ActivityScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &ActivityScanner{
		ws:         ws,
		logger:     logger,
		now:        time.Now,
		maxWatched: DefaultMaxWatched,
		accounts:   make(map[string]*watchedAccount),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// subscription returns the account whose logs stand in for token activity.
func (s *ActivityScanner) subscription(token string) string {
	if s.program == "" {
		return token
	}
	pda, err := BondingCurveAddress(token, s.program)
	if err != nil {
		s.logger.Debug("bonding curve address unavailable, watching mint",
			zap.String("token", token), zap.Error(err))
		return token
	}
	return pda
}

// Watch subscribes to account's logs. Watching an account twice is a no-op.
// When the scanner is full the least recently queried account is dropped.
func (s *ActivityScanner) Watch(ctx context.Context, account string) error {
	s.mu.Lock()
	if w, ok := s.accounts[account]; ok {
		w.lastQuery = s.now()
		s.mu.Unlock()
		return nil
	}

	var (
		victimName string
		victim     *watchedAccount
	)
	if len(s.accounts) >= s.maxWatched {
		victimName, victim = s.oldestLocked()
		if victim == nil {
			s.mu.Unlock()
			return ErrWatchLimit
		}
		delete(s.accounts, victimName)
		close(victim.stop)
	}

	w := &watchedAccount{stop: make(chan struct{}), lastQuery: s.now()}
	s.accounts[account] = w
	s.mu.Unlock()

	if victim != nil {
		s.logger.Debug("activity watch evicted", zap.String("account", victimName))
		s.release(ctx, victimName, victim)
	}

	ch, err := s.ws.SubscribeLogs(ctx, LogsFilter{Mentions: []string{s.subscription(account)}})
	if err != nil {
		s.mu.Lock()
		if s.accounts[account] == w {
			delete(s.accounts, account)
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	w.ch = ch
	s.mu.Unlock()

	s.wg.Add(1)
	go s.drain(w)
	return nil
}

// oldestLocked returns the subscribed account queried longest ago.
// Accounts still subscribing are skipped.
func (s *ActivityScanner) oldestLocked() (string, *watchedAccount) {
	var (
		name   string
		oldest *watchedAccount
	)
	for account, w := range s.accounts {
		if w.ch == nil {
			continue
		}
		if oldest == nil || w.lastQuery.Before(oldest.lastQuery) {
			name, oldest = account, w
		}
	}
	return name, oldest
}

func (s *ActivityScanner) release(ctx context.Context, account string, w *watchedAccount) {
	if err := s.ws.Unsubscribe(ctx, w.ch); err != nil {
		s.logger.Warn("unsubscribe account activity failed", zap.String("account", account), zap.Error(err))
	}
}

func (s *ActivityScanner) drain(w *watchedAccount) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-w.stop:
			return
		case _, ok := <-w.ch:
			if !ok {
				return
			}
			s.mu.Lock()
			w.ring.add(s.now())
			s.mu.Unlock()
		}
	}
}

// Watched returns the number of accounts currently watched.
func (s *ActivityScanner) Watched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// RecentActivity returns the number of transactions touching token within
// the last window. Unwatched tokens start being watched in the background
// and report zero until notifications arrive.
func (s *ActivityScanner) RecentActivity(token string, within time.Duration) int {
	s.mu.Lock()
	w, ok := s.accounts[token]
	var n int
	if ok {
		now := s.now()
		n = w.ring.since(now.Add(-within))
		w.lastQuery = now
	}
	s.mu.Unlock()

	if !ok && s.ctx.Err() == nil {
		go func() {
			ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
			defer cancel()
			if err := s.Watch(ctx, token); err != nil {
				s.logger.Warn("watch token activity failed", zap.String("token", token), zap.Error(err))
			}
		}()
	}
	return n
}

// Close stops every drain goroutine. The WSClient is closed by its owner.
func (s *ActivityScanner) Close() {
	s.cancel()
	s.wg.Wait()
}
