// Command hftengine runs the matching engine's core subcommands: a scripted
// demo, one-shot order matching against a file of orders, live market-data
// streaming, and historical backtesting.
//
//	main.go            — entry point: dispatches to subcommands, loads config, wires logging
//	internal/book      — price-ordered order book (pure data structure)
//	internal/matching  — price-time priority matching, one actor goroutine per symbol
//	internal/risk      — pre-trade screening and post-trade position/P&L accounting
//	internal/backtest  — replays historical bars through a strategy callback
//	internal/feed      — WebSocket/REST/CSV market-data connectors
//	internal/metrics   — Prometheus /metrics endpoint
//	internal/config    — viper-loaded YAML config with HFT_* env overrides
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"hftengine/internal/backtest"
	"hftengine/internal/config"
	"hftengine/internal/feed"
	"hftengine/internal/matching"
	"hftengine/internal/metrics"
	"hftengine/internal/risk"
	"hftengine/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hftengine {demo|match|stream|backtest} [flags]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "demo":
		err = runDemo(os.Args[2:])
	case "match":
		err = runMatch(os.Args[2:])
	case "stream":
		err = runStream(os.Args[2:])
	case "backtest":
		err = runBacktest(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(2)
	}

	if err != nil {
		slog.Error("hftengine failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// maybeStartMetrics starts a Prometheus /metrics server when metricsAddr is
// non-empty. It returns the Registry to wire into the matching engine and
// risk manager (nil when metrics weren't enabled) and a stop function that
// is a no-op in that case.
func maybeStartMetrics(metricsAddr string, logger *slog.Logger) (*metrics.Registry, func(context.Context)) {
	if metricsAddr == "" {
		return nil, func(context.Context) {}
	}

	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg)
	server := metrics.NewServer(metricsAddr, promReg, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return reg, func(ctx context.Context) {
		if err := server.Stop(ctx); err != nil {
			logger.Error("failed to stop metrics server", "error", err)
		}
	}
}

func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	cfgPath := fs.String("config", "configs/config.yaml", "path to config file")
	symbol := fs.String("symbol", "BTCUSD", "symbol to trade in the demo")
	metricsAddr := fs.String("metrics-addr", "", "address to serve /metrics on, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	reg, stopMetrics := maybeStartMetrics(*metricsAddr, logger)
	defer stopMetrics(context.Background())

	ctx := context.Background()
	eng := matching.New(logger)
	eng.SetMetrics(reg)

	orders := []*types.Order{
		types.NewOrder(*symbol, types.Sell, types.Limit, decimal.RequireFromString("100"), decimal.RequireFromString("5"), "demo-ask"),
		types.NewOrder(*symbol, types.Buy, types.Limit, decimal.RequireFromString("99"), decimal.RequireFromString("3"), "demo-bid"),
		types.NewOrder(*symbol, types.Buy, types.Limit, decimal.RequireFromString("100"), decimal.RequireFromString("2"), "demo-cross"),
	}

	for _, o := range orders {
		res, err := eng.SubmitOrder(ctx, o)
		if err != nil {
			return fmt.Errorf("submit demo order: %w", err)
		}
		logger.Info("order submitted", "id", o.ID, "side", o.Side, "status", res.Status, "fills", len(res.Fills))
	}

	snap := eng.GetBook(*symbol)
	fmt.Printf("book for %s: %d bid level(s), %d ask level(s)\n", snap.Symbol, len(snap.Bids), len(snap.Asks))
	for _, lvl := range snap.Bids {
		fmt.Printf("  bid %s @ %s\n", lvl.Qty, lvl.Price)
	}
	for _, lvl := range snap.Asks {
		fmt.Printf("  ask %s @ %s\n", lvl.Qty, lvl.Price)
	}
	return nil
}

// matchInput mirrors the JSON shape one line of --file carries for the
// match subcommand.
type matchInput struct {
	Symbol   string `json:"symbol"`
	Side      string `json:"side"`
	Kind      string `json:"kind"`
	Price     string `json:"price"`
	StopPrice string `json:"stop_price"`
	Quantity  string `json:"quantity"`
	ClientID  string `json:"client_id"`
}

func runMatch(args []string) error {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	cfgPath := fs.String("config", "configs/config.yaml", "path to config file")
	file := fs.String("file", "", "path to a JSON-lines file of orders (defaults to stdin)")
	metricsAddr := fs.String("metrics-addr", "", "address to serve /metrics on, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	reg, stopMetrics := maybeStartMetrics(*metricsAddr, logger)
	defer stopMetrics(context.Background())

	in := os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("open %s: %w", *file, err)
		}
		defer f.Close()
		in = f
	}

	ctx := context.Background()
	eng := matching.New(logger)
	eng.SetMetrics(reg)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var mi matchInput
		if err := json.Unmarshal([]byte(line), &mi); err != nil {
			return fmt.Errorf("parse order line: %w", err)
		}

		o, err := toOrder(mi)
		if err != nil {
			return fmt.Errorf("invalid order: %w", err)
		}

		res, err := eng.SubmitOrder(ctx, o)
		if err != nil {
			return fmt.Errorf("submit order: %w", err)
		}
		out, _ := json.Marshal(res)
		fmt.Println(string(out))
	}
	return scanner.Err()
}

func toOrder(mi matchInput) (*types.Order, error) {
	var side types.Side
	switch mi.Side {
	case "buy", "BUY":
		side = types.Buy
	case "sell", "SELL":
		side = types.Sell
	default:
		return nil, fmt.Errorf("unknown side %q", mi.Side)
	}

	var kind types.OrderKind
	switch mi.Kind {
	case "limit", "LIMIT", "":
		kind = types.Limit
	case "market", "MARKET":
		kind = types.Market
	case "stop_loss", "STOP_LOSS":
		kind = types.StopLoss
	case "take_profit", "TAKE_PROFIT":
		kind = types.TakeProfit
	default:
		return nil, fmt.Errorf("unknown kind %q", mi.Kind)
	}

	price := decimal.Zero
	if mi.Price != "" {
		p, err := decimal.NewFromString(mi.Price)
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		price = p
	}
	qty, err := decimal.NewFromString(mi.Quantity)
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}

	o := types.NewOrder(mi.Symbol, side, kind, price, qty, mi.ClientID)
	if mi.StopPrice != "" {
		sp, err := decimal.NewFromString(mi.StopPrice)
		if err != nil {
			return nil, fmt.Errorf("stop_price: %w", err)
		}
		o.StopPrice = sp
	}
	return o, nil
}

func runStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	cfgPath := fs.String("config", "configs/config.yaml", "path to config file")
	symbol := fs.String("symbol", "", "symbol to subscribe to")
	streamType := fs.String("stream-type", "ticker", "ticker or orderbook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *symbol == "" {
		return fmt.Errorf("--symbol is required")
	}
	if *streamType != "ticker" && *streamType != "orderbook" {
		return fmt.Errorf("--stream-type must be ticker or orderbook, got %q", *streamType)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	conn := feed.NewWSConnector(cfg.Feed.WSURL, logger)
	if err := conn.Subscribe([]string{*symbol}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed connector stopped", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return conn.Close()
		case t := <-conn.Tickers():
			if *streamType == "ticker" {
				fmt.Printf("ticker %s bid=%s ask=%s last=%s\n", t.Symbol, t.BestBid, t.BestAsk, t.LastPrice)
			}
		case b := <-conn.BookUpdates():
			if *streamType == "orderbook" {
				fmt.Printf("book %s bids=%d asks=%d\n", b.Symbol, len(b.Bids), len(b.Asks))
			}
		}
	}
}

func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	cfgPath := fs.String("config", "configs/config.yaml", "path to config file")
	symbol := fs.String("symbol", "BTCUSD", "symbol being backtested")
	file := fs.String("file", "", "path to a historical-bars CSV file")
	metricsAddr := fs.String("metrics-addr", "", "address to serve /metrics on, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	reg, stopMetrics := maybeStartMetrics(*metricsAddr, logger)
	defer stopMetrics(context.Background())

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open %s: %w", *file, err)
	}
	defer f.Close()

	bars, err := feed.NewCSVReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read bars: %w", err)
	}

	initialCapital, err := decimal.NewFromString(cfg.Backtest.InitialCapital)
	if err != nil {
		return fmt.Errorf("backtest.initial_capital: %w", err)
	}

	var riskMgr *risk.Manager
	if cfg.Backtest.RiskEnabled {
		limits, capital, err := cfg.Risk.Parsed()
		if err != nil {
			return err
		}
		riskMgr = risk.NewManager(limits, capital, logger)
		riskMgr.SetMetrics(reg)
	}

	me := matching.New(logger)
	me.SetMetrics(reg)
	bt := backtest.New(logger)

	result, err := bt.Run(context.Background(), *symbol, bars, buyAndHoldStrategy(*symbol), initialCapital, me, riskMgr, cfg.Backtest.RiskEnabled)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// buyAndHoldStrategy is the built-in reference strategy for the CLI's
// backtest subcommand: it buys a fixed quantity on the first bar and holds.
func buyAndHoldStrategy(symbol string) backtest.StrategyFunc {
	bought := false
	return func(_ types.OHLCV, view backtest.View) []*types.Order {
		if bought || view.Index != 0 {
			return nil
		}
		bought = true
		return []*types.Order{
			types.NewOrder(symbol, types.Buy, types.Market, decimal.Zero, decimal.NewFromInt(1), "cli-backtest"),
		}
	}
}
