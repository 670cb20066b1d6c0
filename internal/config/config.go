package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the ganymede platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Backtest BacktestConfig `yaml:"backtest"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	ResultsDir string `yaml:"results_dir"`
}

// BacktestConfig holds the strategy parameters and broker model for a
// backtest run.
type BacktestConfig struct {
	Symbol              string  `yaml:"symbol"`
	Rule                string  `yaml:"rule"`
	FastPeriod          int     `yaml:"fast_period"`
	SlowPeriod          int     `yaml:"slow_period"`
	InitialCash         float64 `yaml:"initial_cash"`
	CommissionRate      float64 `yaml:"commission_rate"`
	AnnualizationFactor float64 `yaml:"annualization_factor"`
}

// FetchConfig holds parameters for historical bar acquisition.
type FetchConfig struct {
	Symbol          string `yaml:"symbol"`
	Timeframe       string `yaml:"timeframe"` // "1Min", "1Hour", "1Day"
	StartDate       string `yaml:"start_date"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied: the SMA
// 20/50 daily-bar setup with 10k starting cash and 0.1% commission.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/ganymede.db",
			ResultsDir: "results",
		},
		Backtest: BacktestConfig{
			Symbol:              "BTC/USD",
			Rule:                "sma-cross",
			FastPeriod:          20,
			SlowPeriod:          50,
			InitialCash:         10000,
			CommissionRate:      0.001,
			AnnualizationFactor: 252,
		},
		Fetch: FetchConfig{
			Symbol:          "BTC/USD",
			Timeframe:       "1Day",
			StartDate:       "2020-01-01",
			RateLimitPerMin: 200,
			MaxAttempts:     3,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault reads the configuration file at path when it exists and
// falls back to the built-in defaults when it does not. Environment
// overrides apply on both paths, so credentials supplied only through the
// environment work without a config file.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	cfg = Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.Storage.ResultsDir = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("INITIAL_CASH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialCash = f
		}
	}
	if v := os.Getenv("COMMISSION_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.CommissionRate = f
		}
	}

	// Standard Alpaca env vars take highest priority, matching the SDK.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
