// Package risk enforces pre-trade and post-trade limits across all traded
// symbols: per-order size, per-symbol position size, leverage, and a
// daily-loss circuit breaker. It mirrors the reference engine's risk
// manager almost directly, retargeted from USD exposure in a prediction
// market to position size and leverage in a general matching engine.
package risk

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"hftengine/internal/metrics"
	"hftengine/pkg/types"
)

// Decision is the result of a pre-trade screen.
type Decision struct {
	Approved bool
	Reason   string
}

// BreachEvent is emitted whenever the circuit breaker latches, mirroring the
// reference engine's KillSignal so an operator can subscribe without
// polling Metrics().
type BreachEvent struct {
	Symbol string
	Reason string
}

// Manager aggregates per-symbol positions and a process-global daily P&L,
// rejecting orders that would breach configured limits. All state is
// guarded by a single mutex, matching the granularity the reference
// engine's own risk manager uses for its totals and kill-switch flag.
type Manager struct {
	limits  types.RiskLimits
	capital decimal.Decimal
	logger  *slog.Logger
	metrics *metrics.Registry

	mu                   sync.Mutex
	positions            map[string]*Position
	totalExposure        decimal.Decimal
	dailyPnL             decimal.Decimal
	circuitBreakerActive bool

	breachCh chan BreachEvent
}

// NewManager constructs a risk manager. capital is the leverage denominator:
// leverage = total notional exposure / capital.
func NewManager(limits types.RiskLimits, capital decimal.Decimal, logger *slog.Logger) *Manager {
	return &Manager{
		limits:    limits,
		capital:   capital,
		logger:    logger.With("component", "risk"),
		positions: make(map[string]*Position),
		breachCh:  make(chan BreachEvent, 16),
	}
}

// Breaches returns the channel BreachEvents are published on when the
// circuit breaker latches.
func (m *Manager) Breaches() <-chan BreachEvent {
	return m.breachCh
}

// SetMetrics attaches a Registry that OnTrade and the circuit breaker
// publish position and breach counts to. Metrics are a no-op until this is
// called.
func (m *Manager) SetMetrics(reg *metrics.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = reg
}

// CheckOrder pre-screens an order against order-size, position-size,
// leverage, and circuit-breaker limits. It does not mutate any position;
// OnTrade does that once a fill actually occurs.
func (m *Manager) CheckOrder(o *types.Order) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.circuitBreakerActive {
		return Decision{Approved: false, Reason: "circuit breaker active"}
	}
	if o.Quantity.GreaterThan(m.limits.MaxOrderSize) {
		return Decision{Approved: false, Reason: "order size exceeds max_order_size"}
	}

	pos := m.positions[o.Symbol]
	projectedQty := o.Quantity
	if pos != nil {
		delta := o.Quantity
		if o.Side == types.Sell {
			delta = delta.Neg()
		}
		projectedQty = pos.Quantity.Add(delta).Abs()
	}
	if projectedQty.GreaterThan(m.limits.MaxPositionSize) {
		return Decision{Approved: false, Reason: "projected position exceeds max_position_size"}
	}

	if m.capital.IsPositive() {
		projectedNotional := m.totalExposure.Add(o.Quantity.Mul(orderReferencePrice(o)))
		leverage := projectedNotional.Div(m.capital)
		if leverage.GreaterThan(m.limits.MaxLeverage) {
			return Decision{Approved: false, Reason: "projected leverage exceeds max_leverage"}
		}
	}

	return Decision{Approved: true}
}

// orderReferencePrice is the price used for leverage screening: the limit
// price for Limit/Stop orders, or zero for Market orders (whose notional is
// unknown pre-trade and is instead captured once OnTrade fires).
func orderReferencePrice(o *types.Order) decimal.Decimal {
	if o.Kind == types.Market {
		return decimal.Zero
	}
	return o.Price
}

// OnTrade folds a fill into the position ledger from perspectiveSide's point
// of view (the side of the book the caller holds — typically the caller's
// own order's side), updates daily P&L, and latches the circuit breaker if
// the daily loss threshold is crossed.
// OnTrade returns the realized P&L delta contributed by this single fill
// (zero when the fill only extended a position), so callers that track
// win/loss counts don't need to duplicate position accounting.
func (m *Manager) OnTrade(symbol string, perspectiveSide types.Side, price, qty decimal.Decimal) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		m.positions[symbol] = pos
	}

	realized := pos.applyFill(perspectiveSide, price, qty)
	m.dailyPnL = m.dailyPnL.Add(realized)

	m.recomputeExposure()

	if m.metrics != nil {
		qtyFloat, _ := pos.Quantity.Float64()
		m.metrics.OpenPositions.WithLabelValues(symbol).Set(qtyFloat)
	}

	if m.dailyPnL.LessThanOrEqual(m.limits.MaxDailyLoss.Neg()) {
		m.latch(symbol, fmt.Sprintf("daily loss %s breached max_daily_loss %s", m.dailyPnL, m.limits.MaxDailyLoss))
	}

	return realized
}

func (m *Manager) recomputeExposure() {
	total := decimal.Zero
	for _, pos := range m.positions {
		total = total.Add(pos.Quantity.Abs().Mul(pos.AvgEntryPrice))
	}
	m.totalExposure = total
}

func (m *Manager) latch(symbol, reason string) {
	if m.circuitBreakerActive {
		return
	}
	m.circuitBreakerActive = true
	m.logger.Error("circuit breaker latched", "symbol", symbol, "reason", reason)
	if m.metrics != nil {
		m.metrics.CircuitBreakers.WithLabelValues(symbol).Inc()
	}

	evt := BreachEvent{Symbol: symbol, Reason: reason}
	select {
	case m.breachCh <- evt:
	default:
		select {
		case <-m.breachCh:
		default:
		}
		m.breachCh <- evt
	}
}

// ResetDaily zeroes the daily accumulators and clears the circuit breaker.
// Positions themselves are untouched — only the daily loss window resets.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL = decimal.Zero
	m.circuitBreakerActive = false
}

// Metrics returns a point-in-time snapshot of aggregate risk state.
func (m *Manager) Metrics() types.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return types.RiskMetrics{
		DailyPnL:             m.dailyPnL,
		TotalExposure:        m.totalExposure,
		CircuitBreakerActive: m.circuitBreakerActive,
	}
}

// Position returns a copy of a symbol's current position, or the zero value
// if the symbol has never been traded.
func (m *Manager) Position(symbol string) Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return Position{Symbol: symbol}
	}
	return *pos
}
