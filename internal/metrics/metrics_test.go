package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestRegistryRecordsOrderFlow(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.OrdersAccepted.WithLabelValues("BTCUSD").Inc()
	m.OrdersRejected.WithLabelValues("BTCUSD", "max_order_size").Inc()
	m.TradesEmitted.WithLabelValues("BTCUSD").Add(3)
	m.OpenPositions.WithLabelValues("BTCUSD").Set(12.5)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"hftengine_orders_accepted_total",
		"hftengine_orders_rejected_total",
		"hftengine_trades_emitted_total",
		"hftengine_open_position_quantity",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected /metrics output to contain %q", want)
		}
	}
}
