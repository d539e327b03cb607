package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleYAML = `
engine:
  trade_buffer_size: 4096
risk:
  max_order_size: "10"
  max_position_size: "100"
  max_daily_loss: "1000"
  max_leverage: "5"
  capital: "50000"
backtest:
  initial_capital: "50000"
  periods_per_year: 252
  risk_enabled: true
feed:
  ws_url: "wss://example.test/ws"
  rest_base_url: "https://example.test"
  reconnect_min: 1s
  reconnect_max: 30s
  ping_interval: 50s
  read_timeout: 90s
  request_timeout: 5s
  max_retries: 3
logging:
  level: info
  format: json
metrics:
  enabled: true
  addr: ":9090"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.TradeBufferSize != 4096 {
		t.Errorf("Engine.TradeBufferSize = %d, want 4096", cfg.Engine.TradeBufferSize)
	}
	if cfg.Risk.MaxOrderSize != "10" {
		t.Errorf("Risk.MaxOrderSize = %q, want 10", cfg.Risk.MaxOrderSize)
	}
	if !cfg.Backtest.RiskEnabled {
		t.Error("Backtest.RiskEnabled = false, want true")
	}
	if cfg.Feed.WSURL != "wss://example.test/ws" {
		t.Errorf("Feed.WSURL = %q", cfg.Feed.WSURL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("HFT_METRICS_ADDR", ":7777")
	t.Setenv("HFT_FEED_WS_URL", "wss://override.test/ws")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Metrics.Addr != ":7777" {
		t.Errorf("Metrics.Addr = %q, want :7777 (env override)", cfg.Metrics.Addr)
	}
	if cfg.Feed.WSURL != "wss://override.test/ws" {
		t.Errorf("Feed.WSURL = %q, want override", cfg.Feed.WSURL)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestRiskConfigParsed(t *testing.T) {
	t.Parallel()
	r := RiskConfig{
		MaxOrderSize:    "10",
		MaxPositionSize: "100",
		MaxDailyLoss:    "1000",
		MaxLeverage:     "5",
		Capital:         "50000",
	}
	limits, capital, err := r.Parsed()
	if err != nil {
		t.Fatalf("Parsed() error = %v", err)
	}
	if !limits.MaxOrderSize.Equal(decimal.RequireFromString("10")) {
		t.Errorf("MaxOrderSize = %v, want 10", limits.MaxOrderSize)
	}
	if !capital.Equal(decimal.RequireFromString("50000")) {
		t.Errorf("capital = %v, want 50000", capital)
	}
}

func TestRiskConfigParsedRejectsGarbage(t *testing.T) {
	t.Parallel()
	r := RiskConfig{MaxOrderSize: "not-a-number", MaxPositionSize: "1", MaxDailyLoss: "1", MaxLeverage: "1", Capital: "1"}
	if _, _, err := r.Parsed(); err == nil {
		t.Error("expected error for malformed max_order_size")
	}
}

func TestValidateCatchesInvalidFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "bad risk limits",
			cfg:  Config{Risk: RiskConfig{MaxOrderSize: "x"}},
		},
		{
			name: "negative trade buffer",
			cfg: Config{
				Risk:   validRisk(),
				Engine: EngineConfig{TradeBufferSize: -1},
			},
		},
		{
			name: "metrics enabled without addr",
			cfg: Config{
				Risk:    validRisk(),
				Metrics: MetricsConfig{Enabled: true},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected Validate() to return an error")
			}
		})
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()
	cfg := Config{Risk: validRisk()}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func validRisk() RiskConfig {
	return RiskConfig{MaxOrderSize: "10", MaxPositionSize: "100", MaxDailyLoss: "1000", MaxLeverage: "5", Capital: "50000"}
}
