// Package ledger applies confirmed trades to the persisted token counters.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-curve-guard/internal/curve"
	"solana-curve-guard/internal/domain"
	"solana-curve-guard/internal/observability"
	"solana-curve-guard/internal/storage"
)

// ConfirmedTrade is a trade that landed on chain.
type ConfirmedTrade struct {
	TradeID     string
	Mint        string
	Wallet      string
	Direction   domain.Direction
	SolAmount   decimal.Decimal // positive
	TokenAmount decimal.Decimal // positive
	ProfitPct   float64
	Signature   string
	TimestampMs int64 // 0 means now
}

// Ledger keeps token counters in step with confirmed trades.
type Ledger struct {
	calc   *curve.Calculator
	tokens storage.TokenStore
	trades storage.TradeStore
	logger *zap.Logger
	now    func() time.Time
}

// New creates a ledger.
func New(calc *curve.Calculator, tokens storage.TokenStore, trades storage.TradeStore, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{calc: calc, tokens: tokens, trades: trades, logger: logger, now: time.Now}
}

// State returns the curve state of a mint. Unknown mints are at launch.
func (l *Ledger) State(ctx context.Context, mint string) (domain.CurveState, error) {
	c, err := l.tokens.Get(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		return l.calc.State(0, 0)
	}
	if err != nil {
		return domain.CurveState{}, fmt.Errorf("get counters %s: %w", mint, err)
	}
	return l.calc.State(c.Floats())
}

// ApplyConfirmedTrade adds a buy to or removes a sell from the counters and
// appends the trade record. Sells floor at zero and buys clamp tokens sold
// to the curve supply. A duplicate trade id leaves the counters unchanged
// and returns storage.ErrDuplicateKey.
func (l *Ledger) ApplyConfirmedTrade(ctx context.Context, t ConfirmedTrade) (domain.CurveState, error) {
	if err := validate(t); err != nil {
		return domain.CurveState{}, err
	}
	if t.TimestampMs == 0 {
		t.TimestampMs = l.now().UnixMilli()
	}

	supply := decimal.NewFromFloat(l.calc.Config().CurveSupply)
	var solDelta, tokenDelta decimal.Decimal

	counters, err := l.tokens.Update(ctx, t.Mint, func(c *domain.TokenCounters) error {
		sol, tokens := c.SolRaised, c.TokensSold
		if t.Direction == domain.DirectionBuy {
			c.SolRaised = sol.Add(t.SolAmount)
			c.TokensSold = decimal.Min(tokens.Add(t.TokenAmount), supply)
		} else {
			c.SolRaised = decimal.Max(sol.Sub(t.SolAmount), decimal.Zero)
			c.TokensSold = decimal.Max(tokens.Sub(t.TokenAmount), decimal.Zero)
		}
		solDelta = c.SolRaised.Sub(sol)
		tokenDelta = c.TokensSold.Sub(tokens)
		return nil
	})
	if err != nil {
		return domain.CurveState{}, fmt.Errorf("update counters %s: %w", t.Mint, err)
	}

	state, err := l.calc.State(counters.Floats())
	if err != nil {
		return domain.CurveState{}, fmt.Errorf("state after trade %s: %w", t.TradeID, err)
	}

	record := &domain.TradeRecord{
		TradeID:     t.TradeID,
		Mint:        t.Mint,
		Wallet:      t.Wallet,
		Direction:   t.Direction,
		SolAmount:   t.SolAmount.InexactFloat64(),
		TokenAmount: t.TokenAmount.InexactFloat64(),
		Price:       state.CurrentPrice,
		MarketCap:   state.MarketCap,
		ProfitPct:   t.ProfitPct,
		Signature:   t.Signature,
		TimestampMs: t.TimestampMs,
	}
	if err := l.trades.Insert(ctx, record); err != nil {
		l.revert(ctx, t.Mint, solDelta, tokenDelta)
		return domain.CurveState{}, fmt.Errorf("record trade %s: %w", t.TradeID, err)
	}

	observability.RecordTradeApplied(string(t.Direction))
	l.logger.Info("trade applied",
		zap.String("trade_id", t.TradeID),
		zap.String("mint", t.Mint),
		zap.String("direction", string(t.Direction)),
		zap.String("sol_raised", counters.SolRaised.String()),
		zap.String("tokens_sold", counters.TokensSold.String()),
		zap.Bool("graduated", state.IsGraduated),
	)
	return state, nil
}

// revert undoes the applied deltas after the trade record was rejected.
func (l *Ledger) revert(ctx context.Context, mint string, solDelta, tokenDelta decimal.Decimal) {
	_, err := l.tokens.Update(ctx, mint, func(c *domain.TokenCounters) error {
		c.SolRaised = decimal.Max(c.SolRaised.Sub(solDelta), decimal.Zero)
		c.TokensSold = decimal.Max(c.TokensSold.Sub(tokenDelta), decimal.Zero)
		return nil
	})
	if err != nil {
		l.logger.Error("revert counters failed", zap.String("mint", mint), zap.Error(err))
	}
}

func validate(t ConfirmedTrade) error {
	switch {
	case t.Mint == "":
		return domain.NewValidationError("tokenAddress", "required")
	case t.TradeID == "":
		return domain.NewValidationError("tradeId", "required")
	case !t.Direction.IsValid():
		return domain.NewValidationError("direction", fmt.Sprintf("unknown direction %q", t.Direction))
	case !t.SolAmount.IsPositive():
		return domain.WrapValidation("solAmount", domain.ErrInvalidAmount)
	case !t.TokenAmount.IsPositive():
		return domain.WrapValidation("tokenAmount", domain.ErrInvalidAmount)
	}
	return nil
}
