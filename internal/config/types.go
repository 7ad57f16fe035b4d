// Package config loads the YAML configuration for the ingest batch and the
// dashboard.
package config

import "time"

// Config is the root of the configuration file.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Actions   ActionsConfig   `mapstructure:"actions"`
	Edinet    EdinetConfig    `mapstructure:"edinet"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	LogPath     string `mapstructure:"log_path"`     // empty = stdout only
	SkippedPath string `mapstructure:"skipped_path"` // side log of skipped symbols
	Timezone    string `mapstructure:"timezone"`
	RunAt       string `mapstructure:"run_at"` // daily trigger, "15:04" wall clock
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// UniverseConfig points at the exchange listing CSV.
type UniverseConfig struct {
	ListingPath string `mapstructure:"listing_path"`
}

// FetchConfig tunes the price/fundamentals provider.
type FetchConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	LookbackDays int           `mapstructure:"lookback_days"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

// ActionsConfig tunes the corporate-action scraper.
type ActionsConfig struct {
	SplitURL         string        `mapstructure:"split_url"`
	ConsolidationURL string        `mapstructure:"consolidation_url"`
	RenderTimeout    time.Duration `mapstructure:"render_timeout"`
}

// EdinetConfig tunes the disclosure listing client.
type EdinetConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// DashboardConfig tunes the HTTP server.
type DashboardConfig struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BacktestConfig holds the default strategy parameters offered by the
// dashboard.
type BacktestConfig struct {
	InitialCash   float64 `mapstructure:"initial_cash"`
	ShortWindow   int     `mapstructure:"short_window"`
	LongWindow    int     `mapstructure:"long_window"`
	RSIPeriod     int     `mapstructure:"rsi_period"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
}
