// Package feed hosts the concrete, swappable market-data producers: a
// WebSocket connector and REST client for live venues, and a CSV reader for
// historical bars. None of these sit on the matching hot path — they only
// ever hand Ticker, BookUpdate, or OHLCV values to the core.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hftengine/pkg/types"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	tickerBufferSize = 256
	bookBufferSize   = 256
)

// WSConnector maintains a single WebSocket connection to a venue, dispatching
// decoded messages onto typed channels and auto-reconnecting with
// exponential backoff on disconnect.
type WSConnector struct {
	url string

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	tickerCh chan types.Ticker
	bookCh   chan types.BookUpdate

	logger *slog.Logger
}

// NewWSConnector constructs a connector for wsURL. Symbols are subscribed
// via Subscribe before or after Run starts; a reconnect re-sends the full
// subscription set.
func NewWSConnector(wsURL string, logger *slog.Logger) *WSConnector {
	return &WSConnector{
		url:        wsURL,
		subscribed: make(map[string]bool),
		tickerCh:   make(chan types.Ticker, tickerBufferSize),
		bookCh:     make(chan types.BookUpdate, bookBufferSize),
		logger:     logger.With("component", "feed_ws"),
	}
}

// Tickers returns a read-only channel of top-of-book ticker updates.
func (c *WSConnector) Tickers() <-chan types.Ticker { return c.tickerCh }

// BookUpdates returns a read-only channel of depth snapshots/deltas.
func (c *WSConnector) BookUpdates() <-chan types.BookUpdate { return c.bookCh }

// Subscribe adds symbols to the tracked set and, if connected, sends an
// incremental subscribe message immediately.
func (c *WSConnector) Subscribe(symbols []string) error {
	c.subscribedMu.Lock()
	for _, s := range symbols {
		c.subscribed[s] = true
	}
	c.subscribedMu.Unlock()

	return c.writeJSON(subscribeMsg{Operation: "subscribe", Symbols: symbols})
}

// Run connects and maintains the connection with auto-reconnect. Blocks
// until ctx is canceled.
func (c *WSConnector) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("feed websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close closes the underlying connection, if any.
func (c *WSConnector) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *WSConnector) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	defer func() {
		c.connMu.Lock()
		conn.Close()
		c.conn = nil
		c.connMu.Unlock()
	}()

	if err := c.resubscribeAll(); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}
	c.logger.Info("feed websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go c.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(msg)
	}
}

func (c *WSConnector) resubscribeAll() error {
	c.subscribedMu.RLock()
	symbols := make([]string, 0, len(c.subscribed))
	for s := range c.subscribed {
		symbols = append(symbols, s)
	}
	c.subscribedMu.RUnlock()

	if len(symbols) == 0 {
		return nil
	}
	return c.writeJSON(subscribeMsg{Operation: "subscribe", Symbols: symbols})
}

type subscribeMsg struct {
	Operation string   `json:"operation"`
	Symbols   []string `json:"symbols"`
}

// wireTicker and wireBookUpdate mirror whatever venue-specific envelope the
// feed actually sends; dispatch adapts them to the core's Ticker/BookUpdate
// shapes so nothing downstream depends on the wire format.
type wireTicker struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	LastPrice string `json:"last_price"`
	Timestamp int64  `json:"timestamp"`
}

type wireLevel struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

type wireBookUpdate struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

func (c *WSConnector) dispatch(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Debug("ignoring non-json feed message", "data", string(data))
		return
	}

	switch envelope.Type {
	case "ticker":
		var wt wireTicker
		if err := json.Unmarshal(data, &wt); err != nil {
			c.logger.Error("unmarshal ticker", "error", err)
			return
		}
		t, err := decodeTicker(wt)
		if err != nil {
			c.logger.Error("decode ticker", "error", err)
			return
		}
		select {
		case c.tickerCh <- t:
		default:
			c.logger.Warn("ticker channel full, dropping update", "symbol", t.Symbol)
		}

	case "book":
		var wb wireBookUpdate
		if err := json.Unmarshal(data, &wb); err != nil {
			c.logger.Error("unmarshal book update", "error", err)
			return
		}
		b, err := decodeBookUpdate(wb)
		if err != nil {
			c.logger.Error("decode book update", "error", err)
			return
		}
		select {
		case c.bookCh <- b:
		default:
			c.logger.Warn("book channel full, dropping update", "symbol", b.Symbol)
		}

	default:
		c.logger.Debug("unknown feed event type", "type", envelope.Type)
	}
}

func (c *WSConnector) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("feed ping failed", "error", err)
				return
			}
		}
	}
}

func (c *WSConnector) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil // buffered until a connection exists; resubscribeAll replays it
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *WSConnector) writeMessage(msgType int, data []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(msgType, data)
}
