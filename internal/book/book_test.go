package book

import (
	"testing"

	"github.com/shopspring/decimal"

	"hftengine/pkg/types"
)

func mustOrder(side types.Side, price, qty string) *types.Order {
	return types.NewOrder("BTCUSD", side, types.Limit, decimal.RequireFromString(price), decimal.RequireFromString(qty), "")
}

func TestBestBidAsk(t *testing.T) {
	t.Parallel()

	b := New("BTCUSD")
	if _, ok := b.BestBid(); ok {
		t.Fatal("expected no best bid on empty book")
	}

	b.Add(mustOrder(types.Buy, "100", "1"))
	b.Add(mustOrder(types.Buy, "101", "1"))
	b.Add(mustOrder(types.Sell, "105", "1"))
	b.Add(mustOrder(types.Sell, "104", "1"))

	bid, ok := b.BestBid()
	if !ok || !bid.Equal(decimal.RequireFromString("101")) {
		t.Errorf("BestBid() = %v, %v; want 101, true", bid, ok)
	}
	ask, ok := b.BestAsk()
	if !ok || !ask.Equal(decimal.RequireFromString("104")) {
		t.Errorf("BestAsk() = %v, %v; want 104, true", ask, ok)
	}
}

func TestFIFOWithinPriceLevel(t *testing.T) {
	t.Parallel()

	b := New("BTCUSD")
	first := mustOrder(types.Sell, "100", "1")
	second := mustOrder(types.Sell, "100", "1")
	b.Add(first)
	b.Add(second)

	head := b.PeekHead(types.Sell)
	if head.ID != first.ID {
		t.Fatalf("PeekHead returned %v, want the first order inserted", head.ID)
	}

	b.FillHead(types.Sell, decimal.RequireFromString("1"))
	b.PopHead(types.Sell)

	head = b.PeekHead(types.Sell)
	if head == nil || head.ID != second.ID {
		t.Fatalf("after popping the first order, PeekHead should return the second")
	}
}

func TestCancelIdempotent(t *testing.T) {
	t.Parallel()

	b := New("BTCUSD")
	o := mustOrder(types.Buy, "100", "1")
	b.Add(o)

	got, ok := b.Cancel(o.ID)
	if !ok || got.ID != o.ID {
		t.Fatalf("first Cancel = %v, %v; want the order, true", got, ok)
	}
	if _, ok := b.BestBid(); ok {
		t.Error("book should be empty after canceling its only bid")
	}

	got, ok = b.Cancel(o.ID)
	if ok || got != nil {
		t.Errorf("second Cancel = %v, %v; want nil, false", got, ok)
	}
}

func TestDepthAggregatesQuantityPerLevel(t *testing.T) {
	t.Parallel()

	b := New("BTCUSD")
	b.Add(mustOrder(types.Buy, "100", "1"))
	b.Add(mustOrder(types.Buy, "100", "2"))
	b.Add(mustOrder(types.Buy, "99", "5"))

	bids, _ := b.Depth(10)
	if len(bids) != 2 {
		t.Fatalf("Depth returned %d bid levels, want 2", len(bids))
	}
	if !bids[0].Price.Equal(decimal.RequireFromString("100")) {
		t.Errorf("best level price = %v, want 100", bids[0].Price)
	}
	if !bids[0].Qty.Equal(decimal.RequireFromString("3")) {
		t.Errorf("best level qty = %v, want 3", bids[0].Qty)
	}
}
