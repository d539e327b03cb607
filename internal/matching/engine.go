// Package matching implements price-time priority order matching on top of
// internal/book. One goroutine per symbol owns that symbol's book and
// processes orders from a mailbox channel, mirroring the reference engine's
// one-goroutine-per-market-slot design.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"hftengine/internal/book"
	"hftengine/internal/metrics"
	"hftengine/pkg/types"
)

// tradeBufferSize is the outbound trade channel's capacity. It is "unbounded
// by contract" per §5; in practice a large buffer plus the drop-oldest
// fallback in symbolActor.emit keeps matching non-blocking even if a
// consumer falls behind.
const tradeBufferSize = 4096

// Engine owns a symbol → actor mapping, lazily creating an actor (and its
// OrderBook) the first time a symbol is touched.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Registry

	actorsMu sync.RWMutex
	actors   map[string]*symbolActor

	trades   chan types.Trade
	sequence atomic.Uint64
}

// New constructs a matching engine with no symbols yet registered.
func New(logger *slog.Logger) *Engine {
	return &Engine{
		logger: logger.With("component", "matching"),
		actors: make(map[string]*symbolActor),
		trades: make(chan types.Trade, tradeBufferSize),
	}
}

// SetMetrics attaches a Registry that SubmitOrder publishes accepted/rejected
// counts and emitted-trade counts to. Metrics are a no-op until this is
// called, so existing callers and tests that never wire one keep working.
func (e *Engine) SetMetrics(reg *metrics.Registry) {
	e.metrics = reg
}

// Trades returns the outbound stream of fills, order-preserving per symbol.
func (e *Engine) Trades() <-chan types.Trade {
	return e.trades
}

func (e *Engine) actorFor(symbol string) *symbolActor {
	e.actorsMu.RLock()
	a, ok := e.actors[symbol]
	e.actorsMu.RUnlock()
	if ok {
		return a
	}

	e.actorsMu.Lock()
	defer e.actorsMu.Unlock()
	if a, ok = e.actors[symbol]; ok {
		return a
	}
	a = newSymbolActor(symbol, e.trades)
	e.actors[symbol] = a
	go a.run()
	e.logger.Info("symbol actor started", "symbol", symbol)
	return a
}

// SubmitOrder attempts to match and possibly rest an order, returning the
// resulting status, fills, and residual quantity. It never returns a
// transient error; validation and risk-style rejections are reported
// through the returned ExecutionResult's Rejected status.
func (e *Engine) SubmitOrder(ctx context.Context, o *types.Order) (types.ExecutionResult, error) {
	if reason, ok := validateOrder(o); !ok {
		e.recordRejected(o.Symbol, reason)
		return types.ExecutionResult{Status: types.Rejected, RemainingQuantity: o.Quantity, Reason: reason}, nil
	}

	o.Sequence = e.sequence.Add(1)
	a := e.actorFor(o.Symbol)

	resultCh := make(chan actorResult, 1)
	select {
	case a.inbox <- command{kind: cmdSubmit, submit: o, result: resultCh}:
	case <-ctx.Done():
		return types.ExecutionResult{}, fmt.Errorf("submit order %s: %w", o.ID, ctx.Err())
	}

	select {
	case res := <-resultCh:
		e.recordSubmission(o.Symbol, res.exec)
		return res.exec, nil
	case <-ctx.Done():
		return types.ExecutionResult{}, fmt.Errorf("await order %s: %w", o.ID, ctx.Err())
	}
}

// recordSubmission publishes the outcome of a submission that reached an
// actor (as opposed to being rejected by validateOrder before dispatch).
func (e *Engine) recordSubmission(symbol string, res types.ExecutionResult) {
	if e.metrics == nil {
		return
	}
	if res.Status == types.Rejected {
		e.metrics.OrdersRejected.WithLabelValues(symbol, res.Reason).Inc()
		return
	}
	e.metrics.OrdersAccepted.WithLabelValues(symbol).Inc()
	if len(res.Fills) > 0 {
		e.metrics.TradesEmitted.WithLabelValues(symbol).Add(float64(len(res.Fills)))
	}
}

func (e *Engine) recordRejected(symbol, reason string) {
	if e.metrics == nil {
		return
	}
	e.metrics.OrdersRejected.WithLabelValues(symbol, reason).Inc()
}

// CancelOrder removes a resting order from a symbol's book. Idempotent:
// canceling an unknown or already-resolved ID returns false.
func (e *Engine) CancelOrder(ctx context.Context, symbol string, id uuid.UUID) bool {
	a := e.actorFor(symbol)

	resultCh := make(chan actorResult, 1)
	select {
	case a.inbox <- command{kind: cmdCancel, cancelID: id, result: resultCh}:
	case <-ctx.Done():
		return false
	}

	select {
	case res := <-resultCh:
		return res.canceled
	case <-ctx.Done():
		return false
	}
}

// BookSnapshot is a read-only view of a symbol's ladder, safe to hand to
// callers outside the actor goroutine since it is a value copy.
type BookSnapshot struct {
	Symbol string
	Bids   []book.DepthLevel
	Asks   []book.DepthLevel
}

// GetBook returns a snapshot of a symbol's current book. Unknown symbols
// yield an empty snapshot rather than an error, since "no orders yet" is not
// a failure.
func (e *Engine) GetBook(symbol string) BookSnapshot {
	e.actorsMu.RLock()
	a, ok := e.actors[symbol]
	e.actorsMu.RUnlock()
	if !ok {
		return BookSnapshot{Symbol: symbol}
	}

	resultCh := make(chan actorResult, 1)
	a.inbox <- command{kind: cmdSnapshot, result: resultCh}
	res := <-resultCh
	return BookSnapshot{Symbol: symbol, Bids: res.bids, Asks: res.asks}
}
