package matching

import (
	"github.com/shopspring/decimal"
	"github.com/google/uuid"

	"hftengine/internal/book"
	"hftengine/pkg/types"
)

// crosses reports whether the incoming order crosses the best resting order
// on the opposing side, per the price-time priority rule in §4.2: Market
// orders always cross while liquidity exists; Limit orders cross only while
// the opposing touch price is at least as good as their own limit.
func crosses(o *types.Order, opposingPrice decimal.Decimal) bool {
	if o.Kind == types.Market {
		return true
	}
	if o.Side == types.Buy {
		return opposingPrice.LessThanOrEqual(o.Price)
	}
	return opposingPrice.GreaterThanOrEqual(o.Price)
}

// match runs the price-time priority loop for an incoming order against b,
// mutating both the incoming order and any resting orders it consumes, and
// appends each resulting Trade to trades. It never rests the residual —
// that is the caller's job once the loop exits.
func match(b *book.OrderBook, taker *types.Order, trades *[]types.Trade) {
	opposite := taker.Side.Opposite()

	for taker.Remaining().IsPositive() {
		maker := b.PeekHead(opposite)
		if maker == nil {
			break
		}
		if !crosses(taker, maker.Price) {
			break
		}

		qty := decimal.Min(taker.Remaining(), maker.Remaining())

		taker.Filled = taker.Filled.Add(qty)
		b.FillHead(opposite, qty)

		updateStatus(taker)
		updateStatus(maker)

		trade := types.Trade{
			ID:        uuid.New(),
			Symbol:    b.Symbol,
			Price:     maker.Price,
			Quantity:  qty,
			Timestamp: taker.Timestamp,
			TakerSide: taker.Side,
		}
		if taker.Side == types.Buy {
			trade.BuyOrderID = taker.ID
			trade.SellOrderID = maker.ID
		} else {
			trade.BuyOrderID = maker.ID
			trade.SellOrderID = taker.ID
		}
		*trades = append(*trades, trade)

		if maker.Remaining().IsZero() {
			b.PopHead(opposite)
		}
	}
}

// updateStatus recomputes an order's status from its fill state, preserving
// the invariant status == Filled ⇔ filled == quantity.
func updateStatus(o *types.Order) {
	switch {
	case o.Filled.Equal(o.Quantity):
		o.Status = types.Filled
	case o.Filled.IsPositive():
		o.Status = types.PartiallyFilled
	}
}
