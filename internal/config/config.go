package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config is populated from the environment with the SHOPFLOW_ prefix.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"fulfillment"`
	Env         string `envconfig:"ENV" default:"dev"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Payment gateway simulation.
	GatewayFailureRate float64 `envconfig:"GATEWAY_FAILURE_RATE" default:"0.1"`

	// Trace recording.
	TraceSampleRate float64       `envconfig:"TRACE_SAMPLE_RATE" default:"1.0"`
	TraceRetention  time.Duration `envconfig:"TRACE_RETENTION" default:"10m"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	// Business thresholds.
	PreserveTotal     decimal.Decimal `envconfig:"PRESERVE_TOTAL" default:"1000"`
	SMSThreshold      decimal.Decimal `envconfig:"SMS_THRESHOLD" default:"500"`
	LowStockThreshold int             `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`

	// Notification dispatch.
	NotifyDelay time.Duration `envconfig:"NOTIFY_DELAY" default:"0s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("shopflow", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.GatewayFailureRate < 0 || cfg.GatewayFailureRate > 1 {
		return nil, fmt.Errorf("config: gateway failure rate %v out of [0,1]", cfg.GatewayFailureRate)
	}
	if cfg.TraceSampleRate < 0 || cfg.TraceSampleRate > 1 {
		return nil, fmt.Errorf("config: trace sample rate %v out of [0,1]", cfg.TraceSampleRate)
	}
	return &cfg, nil
}
