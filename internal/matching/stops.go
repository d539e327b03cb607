package matching

import (
	"github.com/shopspring/decimal"

	"hftengine/internal/book"
	"hftengine/pkg/types"
)

// stopList holds StopLoss/TakeProfit orders for one symbol that are not yet
// resting on the crossable book. They activate once the best opposing price
// touches their trigger price, at which point they convert to a Market
// order of the same side and quantity and re-enter the normal matching path.
type stopList struct {
	orders []*types.Order
}

func (s *stopList) add(o *types.Order) {
	s.orders = append(s.orders, o)
}

// triggered scans pending stops against the book's current touch prices and
// removes+returns the ones that activate, converted to Market orders. A BUY
// stop crosses the ask side, so it triggers once the best ask has fallen to
// or through its stop price; a SELL stop crosses the bid side and triggers
// once the best bid has risen to or through its stop price.
func (s *stopList) triggered(b *book.OrderBook) []*types.Order {
	if len(s.orders) == 0 {
		return nil
	}

	bestBid, haveBid := b.BestBid()
	bestAsk, haveAsk := b.BestAsk()

	var fired []*types.Order
	remaining := s.orders[:0]
	for _, o := range s.orders {
		if activates(o, bestBid, haveBid, bestAsk, haveAsk) {
			o.Kind = types.Market
			fired = append(fired, o)
			continue
		}
		remaining = append(remaining, o)
	}
	s.orders = remaining
	return fired
}

func activates(o *types.Order, bestBid decimal.Decimal, haveBid bool, bestAsk decimal.Decimal, haveAsk bool) bool {
	if o.Side == types.Buy {
		return haveAsk && bestAsk.LessThanOrEqual(o.StopPrice)
	}
	return haveBid && bestBid.GreaterThanOrEqual(o.StopPrice)
}
