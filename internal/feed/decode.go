package feed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hftengine/pkg/types"
)

func decodeTicker(wt wireTicker) (types.Ticker, error) {
	bid, err := decimal.NewFromString(wt.BestBid)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("best_bid: %w", err)
	}
	ask, err := decimal.NewFromString(wt.BestAsk)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("best_ask: %w", err)
	}
	last, err := decimal.NewFromString(wt.LastPrice)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("last_price: %w", err)
	}
	return types.Ticker{
		Symbol:    wt.Symbol,
		BestBid:   bid,
		BestAsk:   ask,
		LastPrice: last,
		Timestamp: time.Unix(wt.Timestamp, 0).UTC(),
	}, nil
}

func decodeBookUpdate(wb wireBookUpdate) (types.BookUpdate, error) {
	bids, err := decodeLevels(wb.Bids)
	if err != nil {
		return types.BookUpdate{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := decodeLevels(wb.Asks)
	if err != nil {
		return types.BookUpdate{}, fmt.Errorf("asks: %w", err)
	}
	return types.BookUpdate{
		Symbol:    wb.Symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Unix(wb.Timestamp, 0).UTC(),
	}, nil
}

func decodeLevels(raw []wireLevel) ([]types.PriceQty, error) {
	out := make([]types.PriceQty, len(raw))
	for i, lvl := range raw {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, fmt.Errorf("level %d price: %w", i, err)
		}
		qty, err := decimal.NewFromString(lvl.Qty)
		if err != nil {
			return nil, fmt.Errorf("level %d qty: %w", i, err)
		}
		out[i] = types.PriceQty{Price: price, Qty: qty}
	}
	return out, nil
}
