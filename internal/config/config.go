// Package config defines all configuration for the matching engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// operational fields overridable via HFT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"hftengine/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// EngineConfig holds matching-engine settings. Validate range-checks
// TradeBufferSize, but matching.New sizes its trade channel from its own
// constant and does not read this value.
type EngineConfig struct {
	TradeBufferSize int `mapstructure:"trade_buffer_size"`
}

// RiskConfig sets the hard limits enforced by risk.Manager before and after
// every trade. Limit fields are strings, not floats: they flow straight into
// decimal.Decimal via Parsed() so risk comparisons never touch float64.
type RiskConfig struct {
	MaxOrderSize    string `mapstructure:"max_order_size"`
	MaxPositionSize string `mapstructure:"max_position_size"`
	MaxDailyLoss    string `mapstructure:"max_daily_loss"`
	MaxLeverage     string `mapstructure:"max_leverage"`
	Capital         string `mapstructure:"capital"`
}

// Parsed converts the string-encoded limits to exact decimal values and the
// capital figure used as the leverage denominator.
func (r RiskConfig) Parsed() (types.RiskLimits, decimal.Decimal, error) {
	maxOrder, err := decimal.NewFromString(r.MaxOrderSize)
	if err != nil {
		return types.RiskLimits{}, decimal.Zero, fmt.Errorf("risk.max_order_size: %w", err)
	}
	maxPos, err := decimal.NewFromString(r.MaxPositionSize)
	if err != nil {
		return types.RiskLimits{}, decimal.Zero, fmt.Errorf("risk.max_position_size: %w", err)
	}
	maxLoss, err := decimal.NewFromString(r.MaxDailyLoss)
	if err != nil {
		return types.RiskLimits{}, decimal.Zero, fmt.Errorf("risk.max_daily_loss: %w", err)
	}
	maxLev, err := decimal.NewFromString(r.MaxLeverage)
	if err != nil {
		return types.RiskLimits{}, decimal.Zero, fmt.Errorf("risk.max_leverage: %w", err)
	}
	capital, err := decimal.NewFromString(r.Capital)
	if err != nil {
		return types.RiskLimits{}, decimal.Zero, fmt.Errorf("risk.capital: %w", err)
	}
	return types.RiskLimits{
		MaxOrderSize:    maxOrder,
		MaxPositionSize: maxPos,
		MaxDailyLoss:    maxLoss,
		MaxLeverage:     maxLev,
	}, capital, nil
}

// BacktestConfig tunes the BacktestEngine driver.
type BacktestConfig struct {
	InitialCapital string  `mapstructure:"initial_capital"`
	PeriodsPerYear float64 `mapstructure:"periods_per_year"` // not read: backtest.Run always infers the factor from bar spacing
	RiskEnabled    bool    `mapstructure:"risk_enabled"`
}

// FeedConfig points at the market-data connectors in internal/feed.
type FeedConfig struct {
	WSURL          string        `mapstructure:"ws_url"`
	RESTBaseURL    string        `mapstructure:"rest_base_url"`
	ReconnectMin   time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax   time.Duration `mapstructure:"reconnect_max"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig describes the optional Prometheus /metrics endpoint. Validate
// checks it, but the CLI starts the endpoint only from its --metrics-addr flag
// and does not read these fields.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads config from a YAML file with env var overrides.
// Operational fields use env vars: HFT_RISK_MAX_ORDER_SIZE, HFT_RISK_CAPITAL,
// HFT_FEED_WS_URL, HFT_METRICS_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if addr := os.Getenv("HFT_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if url := os.Getenv("HFT_FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if _, _, err := c.Risk.Parsed(); err != nil {
		return fmt.Errorf("invalid risk config: %w", err)
	}
	if c.Backtest.InitialCapital != "" {
		if _, err := decimal.NewFromString(c.Backtest.InitialCapital); err != nil {
			return fmt.Errorf("backtest.initial_capital: %w", err)
		}
	}
	if c.Engine.TradeBufferSize < 0 {
		return fmt.Errorf("engine.trade_buffer_size must be >= 0")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics.enabled is true")
	}
	return nil
}
