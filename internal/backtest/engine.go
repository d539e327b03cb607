// Package backtest replays a chronological sequence of bars through a
// strategy callback, routing the orders it returns through the real
// RiskManager and MatchingEngine so backtest results exercise the same
// accounting and matching code a live run would.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hftengine/internal/matching"
	"hftengine/internal/risk"
	"hftengine/pkg/types"
)

// View is the read-only market context handed to a strategy callback for
// each bar: the bar history up to and including the current one.
type View struct {
	Symbol  string
	Index   int
	History []types.OHLCV
}

// Current returns the bar the strategy is currently reacting to.
func (v View) Current() types.OHLCV {
	return v.History[v.Index]
}

// StrategyFunc is a pure callback: given the current bar and a read-only
// view of history, it returns zero or more orders to submit this bar.
type StrategyFunc func(bar types.OHLCV, view View) []*types.Order

// syntheticSpreadBps is the half-spread, in basis points of bar.Close, used
// to seed a thin synthetic quote on both sides of each bar's close price.
// Without it a strategy's Market/marketable-Limit order would have nothing
// to cross against, since the core matching engine only knows about orders
// actually submitted to it, not the bar's OHLC prices directly.
const syntheticSpreadBps = 1

const syntheticClientID = "__synthetic_bar_liquidity__"

// Engine drives a single-symbol backtest run.
type Engine struct {
	logger *slog.Logger
}

// New constructs a backtest driver.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger.With("component", "backtest")}
}

// Run replays bars in chronological order through strategy, submitting its
// orders through matchingEngine (a fresh, single-purpose instance per run)
// and, when screenOrders is true and riskMgr is non-nil, pre-screening every
// order with CheckOrder.
// A riskMgr is always used for position/realized-P&L bookkeeping: if the
// caller passes nil, Run constructs an internal one with effectively
// unlimited thresholds so it never rejects, purely for accounting.
func (e *Engine) Run(ctx context.Context, symbol string, bars []types.OHLCV, strategy StrategyFunc, initialCapital decimal.Decimal, matchingEngine *matching.Engine, riskMgr *risk.Manager, screenOrders bool) (types.BacktestResult, error) {
	if len(bars) == 0 {
		return types.BacktestResult{InitialCapital: initialCapital, FinalCapital: initialCapital}, nil
	}

	if riskMgr == nil {
		unlimited := types.RiskLimits{
			MaxOrderSize:    decimal.NewFromInt(1 << 40),
			MaxPositionSize: decimal.NewFromInt(1 << 40),
			MaxDailyLoss:    decimal.NewFromInt(1 << 40),
			MaxLeverage:     decimal.NewFromInt(1 << 40),
		}
		riskMgr = risk.NewManager(unlimited, decimal.NewFromInt(1<<40), e.logger)
		screenOrders = false
	}

	equityCurve := make([]decimal.Decimal, 0, len(bars))
	totalTrades, winningTrades, losingTrades := 0, 0, 0
	timestamps := make([]time.Time, 0, len(bars))

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return types.BacktestResult{}, fmt.Errorf("backtest canceled at bar %d: %w", i, ctx.Err())
		default:
		}
		timestamps = append(timestamps, bar.Timestamp)

		bidID, askID, err := e.seedSyntheticLiquidity(ctx, matchingEngine, symbol, bar)
		if err != nil {
			return types.BacktestResult{}, err
		}

		view := View{Symbol: symbol, Index: i, History: bars[:i+1]}
		for _, o := range strategy(bar, view) {
			o.Symbol = symbol

			if screenOrders {
				if decision := riskMgr.CheckOrder(o); !decision.Approved {
					e.logger.Warn("order rejected by risk manager", "reason", decision.Reason, "bar", i)
					continue
				}
			}

			res, err := matchingEngine.SubmitOrder(ctx, o)
			if err != nil {
				return types.BacktestResult{}, fmt.Errorf("submit order at bar %d: %w", i, err)
			}

			for _, fill := range res.Fills {
				totalTrades++
				// fill.TakerSide, not o.Side: a fill in this slice can belong
				// to a pending stop that fired as a side effect of o's
				// submission, in which case it carries the stop's own side.
				realized := riskMgr.OnTrade(symbol, fill.TakerSide, fill.Price, fill.Quantity)
				switch {
				case realized.IsPositive():
					winningTrades++
				case realized.IsNegative():
					losingTrades++
				}
			}
		}

		matchingEngine.CancelOrder(ctx, symbol, bidID)
		matchingEngine.CancelOrder(ctx, symbol, askID)

		pos := riskMgr.Position(symbol)
		metrics := riskMgr.Metrics()
		equity := initialCapital.Add(pos.Quantity.Mul(bar.Close)).Add(metrics.DailyPnL)
		equityCurve = append(equityCurve, equity)
	}

	finalCapital := equityCurve[len(equityCurve)-1]
	totalReturn := decimal.Zero
	if initialCapital.IsPositive() {
		totalReturn = finalCapital.Sub(initialCapital).Div(initialCapital)
	}

	returns := barReturns(equityCurve)
	annualization := periodsPerYear(timestamps)

	return types.BacktestResult{
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
		TotalReturn:    totalReturn,
		SharpeRatio:    sharpeRatio(returns, annualization),
		MaxDrawdown:    maxDrawdown(equityCurve),
		TotalTrades:    totalTrades,
		WinningTrades:  winningTrades,
		LosingTrades:   losingTrades,
		EquityCurve:    equityCurve,
	}, nil
}

func (e *Engine) seedSyntheticLiquidity(ctx context.Context, matchingEngine *matching.Engine, symbol string, bar types.OHLCV) (bidID, askID uuid.UUID, err error) {
	halfSpread := bar.Close.Mul(decimal.NewFromFloat(syntheticSpreadBps / 10000.0))
	bidPrice := bar.Close.Sub(halfSpread)
	askPrice := bar.Close.Add(halfSpread)
	qty := decimal.NewFromInt(1 << 30)

	bid := types.NewOrder(symbol, types.Buy, types.Limit, bidPrice, qty, syntheticClientID)
	ask := types.NewOrder(symbol, types.Sell, types.Limit, askPrice, qty, syntheticClientID)

	if _, err := matchingEngine.SubmitOrder(ctx, bid); err != nil {
		return bid.ID, ask.ID, fmt.Errorf("seed synthetic bid: %w", err)
	}
	if _, err := matchingEngine.SubmitOrder(ctx, ask); err != nil {
		return bid.ID, ask.ID, fmt.Errorf("seed synthetic ask: %w", err)
	}
	return bid.ID, ask.ID, nil
}
