package risk

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"hftengine/internal/metrics"
	"hftengine/pkg/types"
)

func testLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxOrderSize:    decimal.RequireFromString("10"),
		MaxPositionSize: decimal.RequireFromString("50"),
		MaxDailyLoss:    decimal.RequireFromString("100"),
		MaxLeverage:     decimal.RequireFromString("5"),
	}
}

func newTestManager() *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(testLimits(), decimal.RequireFromString("1000"), logger)
}

func TestCheckOrderUnderLimits(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	decision := rm.CheckOrder(types.NewOrder("BTCUSD", types.Buy, types.Limit, decimal.RequireFromString("100"), decimal.RequireFromString("1"), ""))
	if !decision.Approved {
		t.Errorf("expected approval, got rejection: %s", decision.Reason)
	}
}

func TestCheckOrderExceedsMaxOrderSize(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	decision := rm.CheckOrder(types.NewOrder("BTCUSD", types.Buy, types.Limit, decimal.RequireFromString("100"), decimal.RequireFromString("11"), ""))
	if decision.Approved {
		t.Fatal("expected rejection for order exceeding max_order_size")
	}
}

func TestCheckOrderExceedsMaxPositionSize(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("8"))
	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("30"))

	decision := rm.CheckOrder(types.NewOrder("BTCUSD", types.Buy, types.Limit, decimal.RequireFromString("100"), decimal.RequireFromString("10"), ""))
	if !decision.Approved {
		t.Errorf("projected position 48 should still be within max_position_size 50, got rejection: %s", decision.Reason)
	}

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("5"))

	decision = rm.CheckOrder(types.NewOrder("BTCUSD", types.Buy, types.Limit, decimal.RequireFromString("100"), decimal.RequireFromString("10"), ""))
	if decision.Approved || decision.Reason != "projected position exceeds max_position_size" {
		t.Errorf("projected position 53 should exceed max_position_size 50, got %+v", decision)
	}
}

func TestOnTradeExtendsPositionAndRecomputesAverage(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("2"))
	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("110"), decimal.RequireFromString("2"))

	pos := rm.Position("BTCUSD")
	if !pos.Quantity.Equal(decimal.RequireFromString("4")) {
		t.Errorf("quantity = %v, want 4", pos.Quantity)
	}
	if !pos.AvgEntryPrice.Equal(decimal.RequireFromString("105")) {
		t.Errorf("avg entry = %v, want 105", pos.AvgEntryPrice)
	}
}

func TestOnTradeReducingRealizesPnL(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("2"))
	rm.OnTrade("BTCUSD", types.Sell, decimal.RequireFromString("110"), decimal.RequireFromString("1"))

	pos := rm.Position("BTCUSD")
	if !pos.Quantity.Equal(decimal.RequireFromString("1")) {
		t.Errorf("quantity = %v, want 1", pos.Quantity)
	}
	if !pos.RealizedPnL.Equal(decimal.RequireFromString("10")) {
		t.Errorf("realized pnl = %v, want 10", pos.RealizedPnL)
	}
	if !pos.AvgEntryPrice.Equal(decimal.RequireFromString("100")) {
		t.Errorf("avg entry should be unchanged by a reduce, got %v", pos.AvgEntryPrice)
	}
}

func TestOnTradeFlipOpensOppositePosition(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("1"))
	rm.OnTrade("BTCUSD", types.Sell, decimal.RequireFromString("90"), decimal.RequireFromString("3"))

	pos := rm.Position("BTCUSD")
	if !pos.Quantity.Equal(decimal.RequireFromString("-2")) {
		t.Errorf("quantity = %v, want -2 after flipping short", pos.Quantity)
	}
	if !pos.AvgEntryPrice.Equal(decimal.RequireFromString("90")) {
		t.Errorf("new short leg avg entry = %v, want 90", pos.AvgEntryPrice)
	}
	if !pos.RealizedPnL.Equal(decimal.RequireFromString("-10")) {
		t.Errorf("realized pnl on the closed long leg = %v, want -10", pos.RealizedPnL)
	}
}

func TestCircuitBreakerLatchesOnDailyLoss(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("1"))
	rm.OnTrade("BTCUSD", types.Sell, decimal.RequireFromString("0"), decimal.RequireFromString("1"))

	metrics := rm.Metrics()
	if !metrics.CircuitBreakerActive {
		t.Fatal("expected circuit breaker to latch after a 100-unit loss against a 100 max_daily_loss")
	}

	decision := rm.CheckOrder(types.NewOrder("BTCUSD", types.Buy, types.Limit, decimal.RequireFromString("1"), decimal.RequireFromString("1"), ""))
	if decision.Approved {
		t.Error("expected every order to be rejected once the circuit breaker is active")
	}

	rm.ResetDaily()
	if rm.Metrics().CircuitBreakerActive {
		t.Error("ResetDaily should clear the circuit breaker")
	}
}

func TestOnTradeAndLatchRecordMetrics(t *testing.T) {
	t.Parallel()
	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg)

	rm := newTestManager()
	rm.SetMetrics(reg)

	rm.OnTrade("BTCUSD", types.Buy, decimal.RequireFromString("100"), decimal.RequireFromString("2"))
	if got := testutil.ToFloat64(reg.OpenPositions.WithLabelValues("BTCUSD")); got != 2 {
		t.Errorf("OpenPositions = %v, want 2", got)
	}

	rm.OnTrade("BTCUSD", types.Sell, decimal.RequireFromString("0"), decimal.RequireFromString("2"))
	if got := testutil.ToFloat64(reg.CircuitBreakers.WithLabelValues("BTCUSD")); got != 1 {
		t.Errorf("CircuitBreakers = %v, want 1 after the daily-loss breach", got)
	}
	if got := testutil.ToFloat64(reg.OpenPositions.WithLabelValues("BTCUSD")); got != 0 {
		t.Errorf("OpenPositions = %v, want 0 after the closing trade", got)
	}
}
