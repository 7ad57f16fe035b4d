package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "COMPANY_ANALYSIS_CONFIG"

// DefaultPath is used when neither a flag nor the environment names a file.
const DefaultPath = "configs/config.yaml"

// ResolvePath picks the config file: explicit path, then environment, then
// the default.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "Asia/Tokyo"
	}
	if c.App.RunAt == "" {
		c.App.RunAt = "18:30"
	}
	if c.App.SkippedPath == "" {
		c.App.SkippedPath = "skipped_symbols.log"
	}
	if c.Database.Path == "" {
		c.Database.Path = "finance.db"
	}
	if c.Fetch.LookbackDays <= 0 {
		c.Fetch.LookbackDays = 5
	}
	if c.Fetch.HTTPTimeout <= 0 {
		c.Fetch.HTTPTimeout = 20 * time.Second
	}
	if c.Fetch.MaxAttempts <= 0 {
		c.Fetch.MaxAttempts = 3
	}
	if c.Fetch.RetryDelay <= 0 {
		c.Fetch.RetryDelay = 5 * time.Second
	}
	if c.Actions.RenderTimeout <= 0 {
		c.Actions.RenderTimeout = 30 * time.Second
	}
	if c.Edinet.LookbackDays <= 0 {
		c.Edinet.LookbackDays = 10
	}
	if c.Dashboard.Listen == "" {
		c.Dashboard.Listen = ":8080"
	}
	if c.Dashboard.ShutdownTimeout <= 0 {
		c.Dashboard.ShutdownTimeout = 10 * time.Second
	}
	if c.Backtest.InitialCash <= 0 {
		c.Backtest.InitialCash = 1_000_000
	}
	if c.Backtest.ShortWindow <= 0 {
		c.Backtest.ShortWindow = 5
	}
	if c.Backtest.LongWindow <= 0 {
		c.Backtest.LongWindow = 25
	}
	if c.Backtest.RSIPeriod <= 0 {
		c.Backtest.RSIPeriod = 14
	}
	if c.Backtest.RSIOversold <= 0 {
		c.Backtest.RSIOversold = 30
	}
	if c.Backtest.RSIOverbought <= 0 {
		c.Backtest.RSIOverbought = 70
	}
}

func (c *Config) validate() error {
	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", c.App.LogLevel)
	}
	if _, err := time.Parse("15:04", c.App.RunAt); err != nil {
		return fmt.Errorf("app.run_at must be HH:MM wall clock, got %q", c.App.RunAt)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Universe.ListingPath == "" {
		return fmt.Errorf("universe.listing_path is required")
	}
	if c.Backtest.ShortWindow >= c.Backtest.LongWindow {
		return fmt.Errorf("backtest.short_window (%d) must be below long_window (%d)",
			c.Backtest.ShortWindow, c.Backtest.LongWindow)
	}
	return nil
}

// Location resolves the configured timezone. Validation guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, _ := time.LoadLocation(c.App.Timezone)
	return loc
}
