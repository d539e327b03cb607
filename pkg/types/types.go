// Package types defines the shared data vocabulary for the matching engine:
// money scalars, order/trade records, OHLCV bars, and the ticker/book-update
// shapes a venue connector must produce. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: Buy or Sell.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind enumerates the supported order types. Limit and Market are fully
// specified; StopLoss and TakeProfit are represented and stored but only
// activate when the best opposing price touches their stop price (see
// internal/matching's stop-trigger list).
type OrderKind string

const (
	Limit      OrderKind = "LIMIT"
	Market     OrderKind = "MARKET"
	StopLoss   OrderKind = "STOP_LOSS"
	TakeProfit OrderKind = "TAKE_PROFIT"
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	New             OrderStatus = "NEW"
	PartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	Filled          OrderStatus = "FILLED"
	Canceled        OrderStatus = "CANCELED"
	Rejected        OrderStatus = "REJECTED"
)

// ————————————————————————————————————————————————————————————————————————
// Orders & trades
// ————————————————————————————————————————————————————————————————————————

// Order is a single limit, market, or stop order. Orders are created by
// callers, mutated exclusively by the matching engine (Filled/Status), and
// either rest on the book, are fully consumed, or are canceled.
type Order struct {
	ID        uuid.UUID
	Symbol    string
	Side      Side
	Kind      OrderKind
	Price     decimal.Decimal // limit price; zero/ignored for Market
	StopPrice decimal.Decimal // trigger price; zero/ignored unless Kind is a stop kind
	Quantity  decimal.Decimal // original requested quantity
	Filled    decimal.Decimal // cumulative filled quantity
	Status    OrderStatus
	Timestamp time.Time // creation time, recorded for audit
	Sequence  uint64    // monotonic insertion counter, the authoritative FIFO tie-breaker
	ClientID  string    // optional owner label for risk attribution
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// IsResting reports whether the order can legally sit on a book.
func (o *Order) IsResting() bool {
	return (o.Status == New || o.Status == PartiallyFilled) && o.Remaining().IsPositive()
}

// IsStop reports whether this order kind requires trigger activation rather
// than immediate crossing.
func (o *Order) IsStop() bool {
	return o.Kind == StopLoss || o.Kind == TakeProfit
}

// NewOrder constructs an order with a fresh ID, zero fill state, and status New.
// Sequence is assigned by the caller — the matching engine owns the monotonic
// counter so FIFO order is authoritative across the whole engine.
func NewOrder(symbol string, side Side, kind OrderKind, price, quantity decimal.Decimal, clientID string) *Order {
	return &Order{
		ID:        uuid.New(),
		Symbol:    symbol,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Quantity:  quantity,
		Status:    New,
		Timestamp: time.Now(),
		ClientID:  clientID,
	}
}

// Trade records a single fill. Trades are immutable once emitted; Price is
// always the resting (maker) order's price.
type Trade struct {
	ID          uuid.UUID
	Symbol      string
	BuyOrderID  uuid.UUID
	SellOrderID uuid.UUID
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Timestamp   time.Time
	TakerSide   Side
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// OHLCV is a single historical bar.
type OHLCV struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// PriceQty is a single price/quantity pair in a book update.
type PriceQty struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Ticker is the minimal top-of-book shape a venue connector must produce.
type Ticker struct {
	Symbol    string
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	LastPrice decimal.Decimal
	Timestamp time.Time
}

// BookUpdate is a full or incremental depth snapshot from a venue connector.
type BookUpdate struct {
	Symbol    string
	Bids      []PriceQty // descending by price, best bid first
	Asks      []PriceQty // ascending by price, best ask first
	Timestamp time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Execution & risk results
// ————————————————————————————————————————————————————————————————————————

// ExecutionResult is returned by MatchingEngine.SubmitOrder.
type ExecutionResult struct {
	Status            OrderStatus
	Fills             []Trade
	RemainingQuantity decimal.Decimal
	Reason            string // populated when Status == Rejected
}

// RiskLimits is immutable per-engine risk configuration.
type RiskLimits struct {
	MaxOrderSize    decimal.Decimal
	MaxPositionSize decimal.Decimal
	MaxDailyLoss    decimal.Decimal
	MaxLeverage     decimal.Decimal
}

// RiskMetrics is a point-in-time snapshot of aggregate risk state.
type RiskMetrics struct {
	DailyPnL             decimal.Decimal
	TotalExposure        decimal.Decimal
	CircuitBreakerActive bool
}

// ————————————————————————————————————————————————————————————————————————
// Backtest results
// ————————————————————————————————————————————————————————————————————————

// BacktestResult summarizes a completed backtest run.
type BacktestResult struct {
	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	TotalReturn    decimal.Decimal
	SharpeRatio    decimal.Decimal
	MaxDrawdown    decimal.Decimal
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	EquityCurve    []decimal.Decimal
}
