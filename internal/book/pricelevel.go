package book

import (
	"github.com/shopspring/decimal"

	"hftengine/pkg/types"
)

// priceLevel is a FIFO queue of resting orders at a single price. Orders are
// appended at the tail on Add and consumed from the head during matching, so
// index 0 is always the oldest (highest-priority) order at this price.
type priceLevel struct {
	price  decimal.Decimal
	orders []*types.Order
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{price: price}
}

func (pl *priceLevel) append(o *types.Order) {
	pl.orders = append(pl.orders, o)
}

func (pl *priceLevel) head() *types.Order {
	if len(pl.orders) == 0 {
		return nil
	}
	return pl.orders[0]
}

// popHead removes the head order. Callers must only call this once the head
// is fully exhausted (remaining quantity zero) or explicitly canceled.
func (pl *priceLevel) popHead() {
	if len(pl.orders) == 0 {
		return
	}
	pl.orders = pl.orders[1:]
}

func (pl *priceLevel) isEmpty() bool {
	return len(pl.orders) == 0
}

// remove deletes the order with the given ID from anywhere in the queue
// (not just the head), used by Cancel. Reports whether it found one.
func (pl *priceLevel) remove(id func(*types.Order) bool) (*types.Order, bool) {
	for i, o := range pl.orders {
		if id(o) {
			pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
			return o, true
		}
	}
	return nil, false
}

// totalQty sums the remaining quantity of every order resting at this level.
func (pl *priceLevel) totalQty() decimal.Decimal {
	total := decimal.Zero
	for _, o := range pl.orders {
		total = total.Add(o.Remaining())
	}
	return total
}
