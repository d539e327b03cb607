package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"hftengine/pkg/types"
)

// RESTClient fetches one-shot book snapshots for reconciliation polling,
// independent of whatever WSConnector is streaming. It wraps a resty client
// with retry on server errors and per-category rate limiting, mirroring the
// reference engine's REST client.
type RESTClient struct {
	http *resty.Client
	rl   *restRateLimiter
}

// NewRESTClient constructs a client against baseURL with the given request
// timeout.
func NewRESTClient(baseURL string, requestTimeout time.Duration) *RESTClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &RESTClient{http: http, rl: newRESTRateLimiter()}
}

// BookSnapshot fetches a single full depth snapshot for symbol.
func (c *RESTClient) BookSnapshot(ctx context.Context, symbol string) (types.BookUpdate, error) {
	if err := c.rl.bookSnapshot.Wait(ctx); err != nil {
		return types.BookUpdate{}, err
	}

	var wb wireBookUpdate
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&wb).
		Get("/book")
	if err != nil {
		return types.BookUpdate{}, fmt.Errorf("get book: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.BookUpdate{}, fmt.Errorf("get book: status %d: %s", resp.StatusCode(), resp.String())
	}

	update, err := decodeBookUpdate(wb)
	if err != nil {
		return types.BookUpdate{}, fmt.Errorf("decode book: %w", err)
	}
	return update, nil
}

// Ticker fetches a single top-of-book snapshot for symbol.
func (c *RESTClient) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	if err := c.rl.ticker.Wait(ctx); err != nil {
		return types.Ticker{}, err
	}

	var wt wireTicker
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&wt).
		Get("/ticker")
	if err != nil {
		return types.Ticker{}, fmt.Errorf("get ticker: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Ticker{}, fmt.Errorf("get ticker: status %d: %s", resp.StatusCode(), resp.String())
	}

	t, err := decodeTicker(wt)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}
	return t, nil
}
