package feed

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeTicker(t *testing.T) {
	t.Parallel()
	wt := wireTicker{
		Type:      "ticker",
		Symbol:    "BTCUSD",
		BestBid:   "49999.5",
		BestAsk:   "50000.5",
		LastPrice: "50000",
		Timestamp: 1700000000,
	}

	ticker, err := decodeTicker(wt)
	if err != nil {
		t.Fatalf("decodeTicker() error = %v", err)
	}
	if ticker.Symbol != "BTCUSD" {
		t.Errorf("Symbol = %q, want BTCUSD", ticker.Symbol)
	}
	if !ticker.BestBid.Equal(decimal.RequireFromString("49999.5")) {
		t.Errorf("BestBid = %v, want 49999.5", ticker.BestBid)
	}
	if !ticker.BestAsk.Equal(decimal.RequireFromString("50000.5")) {
		t.Errorf("BestAsk = %v, want 50000.5", ticker.BestAsk)
	}
	if ticker.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp.Unix() = %d, want 1700000000", ticker.Timestamp.Unix())
	}
}

func TestDecodeTickerRejectsMalformedPrice(t *testing.T) {
	t.Parallel()
	_, err := decodeTicker(wireTicker{BestBid: "not-a-price", BestAsk: "1", LastPrice: "1"})
	if err == nil {
		t.Error("expected error for malformed best_bid")
	}
}

func TestDecodeBookUpdate(t *testing.T) {
	t.Parallel()
	wb := wireBookUpdate{
		Symbol: "ETHUSD",
		Bids:   []wireLevel{{Price: "3000", Qty: "2"}, {Price: "2999", Qty: "1"}},
		Asks:   []wireLevel{{Price: "3001", Qty: "1.5"}},
	}

	update, err := decodeBookUpdate(wb)
	if err != nil {
		t.Fatalf("decodeBookUpdate() error = %v", err)
	}
	if len(update.Bids) != 2 || len(update.Asks) != 1 {
		t.Fatalf("got %d bids / %d asks, want 2/1", len(update.Bids), len(update.Asks))
	}
	if !update.Bids[0].Price.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("Bids[0].Price = %v, want 3000", update.Bids[0].Price)
	}
	if !update.Asks[0].Qty.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Asks[0].Qty = %v, want 1.5", update.Asks[0].Qty)
	}
}

func TestDecodeBookUpdateRejectsMalformedLevel(t *testing.T) {
	t.Parallel()
	_, err := decodeBookUpdate(wireBookUpdate{
		Bids: []wireLevel{{Price: "100", Qty: "garbage"}},
	})
	if err == nil {
		t.Error("expected error for malformed level quantity")
	}
}

func TestDecodeLevelsEmpty(t *testing.T) {
	t.Parallel()
	levels, err := decodeLevels(nil)
	if err != nil {
		t.Fatalf("decodeLevels(nil) error = %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("len(levels) = %d, want 0", len(levels))
	}
}
