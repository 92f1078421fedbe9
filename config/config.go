package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultResyncInterval = 60 * time.Second
	defaultTradeWindow    = 500
	defaultAlertWindow    = 100
	defaultMinBackoff     = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Config holds the monitor settings.
type Config struct {
	EngineURL         string
	StreamURL         string
	ListenAddr        string
	ResyncInterval    time.Duration
	TradeWindow       int
	AlertWindow       int
	PriceAlertPercent decimal.Decimal
	VolumeAlertRatio  decimal.Decimal
	MinBackoff        time.Duration
	MaxBackoff        time.Duration
}

type configTmp struct {
	EngineURL            string        `yaml:"engine_url"`
	StreamURL            string        `yaml:"stream_url"`
	ListenAddr           string        `yaml:"listen_addr"`
	ResyncInterval       time.Duration `yaml:"resync_interval"`
	TradeWindow          int           `yaml:"trade_window,omitempty"`
	AlertWindow          int           `yaml:"alert_window,omitempty"`
	PriceAlertPercentStr string        `yaml:"price_alert_percent,omitempty"`
	VolumeAlertRatioStr  string        `yaml:"volume_alert_ratio,omitempty"`
	MinBackoff           time.Duration `yaml:"reconnect_min_backoff,omitempty"`
	MaxBackoff           time.Duration `yaml:"reconnect_max_backoff,omitempty"`
}

// Get reads configuration from the yaml file given by --config, or from CLI
// flags when no file is provided.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	engineURL := flag.String("engine-url", "http://127.0.0.1:5000", "trading engine base URL")
	streamURL := flag.String("stream-url", "ws://127.0.0.1:5000/stream", "trading engine push channel URL")
	listenAddr := flag.String("listen", ":8080", "monitor HTTP listen address")
	resyncInterval := flag.Duration("resync-interval", defaultResyncInterval, "fallback snapshot interval")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		EngineURL:      *engineURL,
		StreamURL:      *streamURL,
		ListenAddr:     *listenAddr,
		ResyncInterval: *resyncInterval,
	}
	return cfg.withDefaults().validate()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	cfg := Config{
		EngineURL:      tmp.EngineURL,
		StreamURL:      tmp.StreamURL,
		ListenAddr:     tmp.ListenAddr,
		ResyncInterval: tmp.ResyncInterval,
		TradeWindow:    tmp.TradeWindow,
		AlertWindow:    tmp.AlertWindow,
		MinBackoff:     tmp.MinBackoff,
		MaxBackoff:     tmp.MaxBackoff,
	}

	if tmp.PriceAlertPercentStr != "" {
		cfg.PriceAlertPercent, err = decimal.NewFromString(tmp.PriceAlertPercentStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'price_alert_percent' param in yaml config (must be a decimal), error: %w", err)
		}
	}
	if tmp.VolumeAlertRatioStr != "" {
		cfg.VolumeAlertRatio, err = decimal.NewFromString(tmp.VolumeAlertRatioStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'volume_alert_ratio' param in yaml config (must be a decimal), error: %w", err)
		}
	}

	return cfg.withDefaults().validate()
}

func (c Config) withDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.ResyncInterval <= 0 {
		c.ResyncInterval = defaultResyncInterval
	}
	if c.TradeWindow <= 0 {
		c.TradeWindow = defaultTradeWindow
	}
	if c.AlertWindow <= 0 {
		c.AlertWindow = defaultAlertWindow
	}
	if c.PriceAlertPercent.IsZero() {
		c.PriceAlertPercent = decimal.NewFromInt(2)
	}
	if c.VolumeAlertRatio.IsZero() {
		c.VolumeAlertRatio = decimal.NewFromFloat(1.5)
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = defaultMinBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

func (c Config) validate() (Config, error) {
	if c.EngineURL == "" {
		return Config{}, fmt.Errorf("'engine_url' param is required")
	}
	if c.StreamURL == "" {
		return Config{}, fmt.Errorf("'stream_url' param is required")
	}
	if c.MaxBackoff < c.MinBackoff {
		return Config{}, fmt.Errorf("'reconnect_max_backoff' must not be less than 'reconnect_min_backoff'")
	}
	return c, nil
}
