package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stock dashboard.
type Config struct {
	Storage Storage `yaml:"storage"`
	Cache   Cache   `yaml:"cache"`
	Fetch   Fetch   `yaml:"fetch"`
	Market  Market  `yaml:"market"`
	UI      UI      `yaml:"ui"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Logging Logging `yaml:"logging"`
	Demo    bool    `yaml:"demo"`
}

// Storage holds the location of the portfolio files.
type Storage struct {
	PortfoliosDir string `yaml:"portfolios_dir"`
}

// Cache configures the two-tier price and history caches.
type Cache struct {
	Dir        string        `yaml:"dir"`
	QuoteTTL   time.Duration `yaml:"quote_ttl"`
	HistoryTTL time.Duration `yaml:"history_ttl"`
}

// Fetch configures the remote quote endpoints.
type Fetch struct {
	Endpoints       []string      `yaml:"endpoints"`
	UserAgent       string        `yaml:"user_agent"`
	QuoteTimeout    time.Duration `yaml:"quote_timeout"`
	HistoryTimeout  time.Duration `yaml:"history_timeout"`
	HistoryInterval string        `yaml:"history_interval"`
	HistoryRange    string        `yaml:"history_range"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
}

// Market holds the cross-market conversion settings.
type Market struct {
	ExchangeRateSymbol  string  `yaml:"exchange_rate_symbol"`
	DefaultExchangeRate float64 `yaml:"default_exchange_rate"`
}

// UI holds interactive loop timings.
type UI struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	LiveInterval time.Duration `yaml:"live_interval"`
}

// Alpaca holds optional credentials for the fallback quote source.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Storage: Storage{
			PortfoliosDir: filepath.Join(home, ".config", "stock-tui", "portfolios"),
		},
		Cache: Cache{
			Dir:        filepath.Join(os.TempDir(), "stock-tui"),
			QuoteTTL:   60 * time.Second,
			HistoryTTL: 6 * time.Hour,
		},
		Fetch: Fetch{
			Endpoints: []string{
				"https://query2.finance.yahoo.com/v8/finance/chart/",
				"https://query1.finance.yahoo.com/v8/finance/chart/",
			},
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			QuoteTimeout:    5 * time.Second,
			HistoryTimeout:  10 * time.Second,
			HistoryInterval: "1d",
			HistoryRange:    "1mo",
		},
		Market: Market{
			ExchangeRateSymbol:  "USDTWD=X",
			DefaultExchangeRate: 32.0,
		},
		UI: UI{
			PollInterval: 100 * time.Millisecond,
			LiveInterval: 5 * time.Second,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stock-tui", "config.yaml")
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of
// Default(), and then applies environment variable overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	cfg.Storage.PortfoliosDir = expandHome(cfg.Storage.PortfoliosDir)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STOCK_TUI_PORTFOLIOS"); v != "" {
		cfg.Storage.PortfoliosDir = v
	}

	if v := os.Getenv("STOCK_TUI_CACHE"); v != "" {
		cfg.Cache.Dir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("DEMO"); v != "" {
		cfg.Demo = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars (canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
