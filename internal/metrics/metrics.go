// Package metrics exposes a Prometheus /metrics endpoint with counters for
// order flow and circuit-breaker trips, and a gauge for open positions.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the engine publishes. Components take a
// *Registry and update its exported vectors, so the non-test code of
// internal/matching and internal/risk never imports prometheus itself.
type Registry struct {
	OrdersAccepted  *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	TradesEmitted   *prometheus.CounterVec
	CircuitBreakers *prometheus.CounterVec
	OpenPositions   *prometheus.GaugeVec
}

// NewRegistry registers every metric against reg (pass prometheus.NewRegistry()
// for isolated tests, or prometheus.DefaultRegisterer in production).
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		OrdersAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hftengine",
			Name:      "orders_accepted_total",
			Help:      "Orders accepted by the matching engine, by symbol.",
		}, []string{"symbol"}),
		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hftengine",
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before or during matching, by symbol and reason.",
		}, []string{"symbol", "reason"}),
		TradesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hftengine",
			Name:      "trades_emitted_total",
			Help:      "Trades emitted by the matching engine, by symbol.",
		}, []string{"symbol"}),
		CircuitBreakers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hftengine",
			Name:      "circuit_breaker_trips_total",
			Help:      "Times the risk manager's circuit breaker has latched, by symbol.",
		}, []string{"symbol"}),
		OpenPositions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hftengine",
			Name:      "open_position_quantity",
			Help:      "Current signed position quantity per symbol.",
		}, []string{"symbol"}),
	}
}

// Server serves the /metrics endpoint on addr.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// NewServer constructs a metrics HTTP server bound to addr.
func NewServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With("component", "metrics"),
	}
}

// Start blocks serving /metrics until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info("metrics server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping metrics server")
	return s.http.Shutdown(ctx)
}
