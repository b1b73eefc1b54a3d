// Package config provides configuration management for the Shelfline CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string `koanf:"data_dir"`
	ExportDir    string `koanf:"export_dir"`
	DatabasePath string `koanf:"database"`
	StatePath    string `koanf:"state_path"`
	Environment  string `koanf:"environment"`
	Verbose      bool   `koanf:"verbose"`

	// Horizon is the forecast horizon in days.
	Horizon int `koanf:"horizon"`
	// MinHistoryDays is the modeling threshold for the forecaster.
	MinHistoryDays int `koanf:"min_history_days"`
	// ForecastWorkers bounds concurrent per-product model fits.
	ForecastWorkers int `koanf:"forecast_workers"`
	// Anchor selects the pricing anchor date mode (wallclock | latest-data).
	Anchor string `koanf:"anchor"`

	// AdapterType selects the warehouse adapter.
	AdapterType string `koanf:"adapter"`
}

// Default configuration values.
const (
	DefaultDataDir      = "data/raw"
	DefaultExportDir    = "data/processed"
	DefaultDatabasePath = "data/retail.duckdb"
	DefaultStateFile    = ".shelfline/state.db"
	DefaultEnv          = "dev"
	DefaultAnchor       = "wallclock"
	DefaultAdapterType  = "duckdb"
)
