package feed

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hftengine/pkg/types"
)

// BookCache maintains a local mirror of one symbol's order book, fed by
// BookUpdate values off a WSConnector or RESTClient. It exists for callers
// (a live strategy, a CLI stream viewer) that need a current best-bid/ask
// view without re-deriving it from raw updates themselves.
type BookCache struct {
	mu      sync.RWMutex
	symbol  string
	bids    []types.PriceQty
	asks    []types.PriceQty
	updated time.Time
}

// NewBookCache creates an empty cache for symbol.
func NewBookCache(symbol string) *BookCache {
	return &BookCache{symbol: symbol}
}

// Apply replaces the cached book with update. Updates for other symbols are
// ignored.
func (c *BookCache) Apply(update types.BookUpdate) {
	if update.Symbol != c.symbol {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bids = update.Bids
	c.asks = update.Asks
	c.updated = update.Timestamp
}

// BestBidAsk returns the best bid and ask prices, or ok=false if either
// side is empty.
func (c *BookCache) BestBidAsk() (bid, ask decimal.Decimal, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.bids) == 0 || len(c.asks) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	return c.bids[0].Price, c.asks[0].Price, true
}

// MidPrice returns (bestBid + bestAsk) / 2, or ok=false if the book is
// one-sided or empty.
func (c *BookCache) MidPrice() (decimal.Decimal, bool) {
	bid, ask, ok := c.BestBidAsk()
	if !ok {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// IsStale reports whether the cache hasn't been updated within maxAge.
func (c *BookCache) IsStale(maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updated.IsZero() {
		return true
	}
	return time.Since(c.updated) > maxAge
}
