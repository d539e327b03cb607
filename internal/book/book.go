// Package book implements a single-symbol, double-sided limit order book.
// It is a pure data structure: it knows how to rest, peek, drain, and cancel
// orders at price levels, but it never decides whether two orders cross —
// that decision belongs to internal/matching.
package book

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"hftengine/pkg/types"
)

// priceLevels is an ordered tree of price levels for one side of the book.
type priceLevels = btree.BTreeG[*priceLevel]

// location records where a resting order lives, so Cancel doesn't need a
// linear scan across every price level.
type location struct {
	side  types.Side
	price decimal.Decimal
}

// OrderBook holds the bid and ask ladders for a single symbol.
type OrderBook struct {
	Symbol string

	bids *priceLevels // sorted highest price first
	asks *priceLevels // sorted lowest price first

	index map[uuid.UUID]location
}

// New constructs an empty order book for a symbol.
func New(symbol string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.GreaterThan(b.price)
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.LessThan(b.price)
	})
	return &OrderBook{
		Symbol: symbol,
		bids:   bids,
		asks:   asks,
		index:  make(map[uuid.UUID]location),
	}
}

func (b *OrderBook) levels(side types.Side) *priceLevels {
	if side == types.Buy {
		return b.bids
	}
	return b.asks
}

// Add rests an order on its side's ladder at its limit price, appending it
// to the tail of that price level's FIFO queue. The caller is responsible
// for having already run any crossing logic; Add never matches.
func (b *OrderBook) Add(o *types.Order) {
	levels := b.levels(o.Side)
	level, ok := levels.Get(newPriceLevel(o.Price))
	if !ok {
		level = newPriceLevel(o.Price)
		levels.Set(level)
	}
	level.append(o)
	b.index[o.ID] = location{side: o.Side, price: o.Price}
}

// Cancel removes a resting order by ID. Idempotent: canceling an ID that
// isn't resting (never existed, already filled, already canceled) returns
// (nil, false) and leaves the book unchanged.
func (b *OrderBook) Cancel(id uuid.UUID) (*types.Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	levels := b.levels(loc.side)
	level, ok := levels.Get(newPriceLevel(loc.price))
	if !ok {
		delete(b.index, id)
		return nil, false
	}
	order, found := level.remove(func(o *types.Order) bool { return o.ID == id })
	if !found {
		delete(b.index, id)
		return nil, false
	}
	if level.isEmpty() {
		levels.Delete(level)
	}
	delete(b.index, id)
	return order, true
}

// BestBid returns the highest resting bid price and whether one exists.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	lvl, ok := b.bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// BestAsk returns the lowest resting ask price and whether one exists.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := b.asks.Min()
	if !ok {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// PeekHead returns the best-price, head-of-queue order on a side without
// removing it, for the matcher to inspect before deciding to cross.
func (b *OrderBook) PeekHead(side types.Side) *types.Order {
	levels := b.levels(side)
	lvl, ok := levels.Min()
	if !ok {
		return nil
	}
	return lvl.head()
}

// FillHead decrements the head order's filled quantity in place. The caller
// (matching engine) is responsible for keeping Filled/Status consistent;
// FillHead only mutates the shared Order value reachable through the book.
func (b *OrderBook) FillHead(side types.Side, qty decimal.Decimal) {
	head := b.PeekHead(side)
	if head == nil {
		return
	}
	head.Filled = head.Filled.Add(qty)
}

// PopHead removes the exhausted head order of a side, deleting the price
// level if it becomes empty. Callers must only call this once the head's
// remaining quantity has reached zero.
func (b *OrderBook) PopHead(side types.Side) {
	levels := b.levels(side)
	lvl, ok := levels.Min()
	if !ok {
		return
	}
	head := lvl.head()
	if head == nil {
		return
	}
	delete(b.index, head.ID)
	lvl.popHead()
	if lvl.isEmpty() {
		levels.Delete(lvl)
	}
}

// DepthLevel is one aggregated price/quantity row returned by Depth/Snapshot.
type DepthLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Depth returns up to n price-aggregated levels per side, best price first.
func (b *OrderBook) Depth(n int) (bids, asks []DepthLevel) {
	bids = collectDepth(b.bids, n)
	asks = collectDepth(b.asks, n)
	return bids, asks
}

func collectDepth(levels *priceLevels, n int) []DepthLevel {
	out := make([]DepthLevel, 0, n)
	levels.Scan(func(lvl *priceLevel) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, DepthLevel{Price: lvl.price, Qty: lvl.totalQty()})
		return true
	})
	return out
}

// Snapshot materializes the full ladder, best price first on each side.
func (b *OrderBook) Snapshot() (bids, asks []DepthLevel) {
	return collectDepth(b.bids, b.bids.Len()), collectDepth(b.asks, b.asks.Len())
}

// IsEmpty reports whether a side has no resting orders.
func (b *OrderBook) IsEmpty(side types.Side) bool {
	return b.levels(side).Len() == 0
}
