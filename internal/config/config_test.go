package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STOCK_TUI_PORTFOLIOS", "STOCK_TUI_CACHE", "LOG_LEVEL", "DEMO",
		"ALPACA_DATA_URL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	yamlContent := []byte(`
storage:
  portfolios_dir: "/tmp/stock-tui-test/portfolios"
cache:
  dir: "/tmp/stock-tui-test/cache"
  quote_ttl: 30s
  history_ttl: 2h
fetch:
  endpoints:
    - "http://localhost:9999/chart/"
  user_agent: "test-agent"
  quote_timeout: 2s
  rate_limit_per_min: 120
market:
  exchange_rate_symbol: "USDTWD=X"
  default_exchange_rate: 31.5
ui:
  live_interval: 10s
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
logging:
  level: "debug"
  file: "/tmp/stock-tui-test.log"
`)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage / Cache --
	if cfg.Storage.PortfoliosDir != "/tmp/stock-tui-test/portfolios" {
		t.Errorf("Storage.PortfoliosDir = %q", cfg.Storage.PortfoliosDir)
	}
	if cfg.Cache.Dir != "/tmp/stock-tui-test/cache" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if cfg.Cache.QuoteTTL != 30*time.Second {
		t.Errorf("Cache.QuoteTTL = %v, want 30s", cfg.Cache.QuoteTTL)
	}
	if cfg.Cache.HistoryTTL != 2*time.Hour {
		t.Errorf("Cache.HistoryTTL = %v, want 2h", cfg.Cache.HistoryTTL)
	}

	// -- Fetch --
	if len(cfg.Fetch.Endpoints) != 1 || cfg.Fetch.Endpoints[0] != "http://localhost:9999/chart/" {
		t.Errorf("Fetch.Endpoints = %v", cfg.Fetch.Endpoints)
	}
	if cfg.Fetch.QuoteTimeout != 2*time.Second {
		t.Errorf("Fetch.QuoteTimeout = %v", cfg.Fetch.QuoteTimeout)
	}
	if cfg.Fetch.HistoryTimeout != 10*time.Second {
		t.Errorf("Fetch.HistoryTimeout = %v, want default 10s", cfg.Fetch.HistoryTimeout)
	}
	if cfg.Fetch.RateLimitPerMin != 120 {
		t.Errorf("Fetch.RateLimitPerMin = %d", cfg.Fetch.RateLimitPerMin)
	}

	// -- Market / UI --
	if cfg.Market.DefaultExchangeRate != 31.5 {
		t.Errorf("Market.DefaultExchangeRate = %v", cfg.Market.DefaultExchangeRate)
	}
	if cfg.UI.LiveInterval != 10*time.Second {
		t.Errorf("UI.LiveInterval = %v", cfg.UI.LiveInterval)
	}
	if cfg.UI.PollInterval != 100*time.Millisecond {
		t.Errorf("UI.PollInterval = %v, want default", cfg.UI.PollInterval)
	}

	// -- Alpaca / Logging --
	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Cache.QuoteTTL != 60*time.Second {
		t.Errorf("QuoteTTL = %v, want 60s", cfg.Cache.QuoteTTL)
	}
	if cfg.Cache.HistoryTTL != 6*time.Hour {
		t.Errorf("HistoryTTL = %v, want 6h", cfg.Cache.HistoryTTL)
	}
	if cfg.Market.ExchangeRateSymbol != "USDTWD=X" || cfg.Market.DefaultExchangeRate != 32 {
		t.Errorf("Market = %+v", cfg.Market)
	}
	if len(cfg.Fetch.Endpoints) != 2 {
		t.Errorf("Fetch.Endpoints = %v, want query2 and query1", cfg.Fetch.Endpoints)
	}
	if cfg.Demo {
		t.Error("Demo should default to false")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cache: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCK_TUI_PORTFOLIOS", "/env/portfolios")
	t.Setenv("STOCK_TUI_CACHE", "/env/cache")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEMO", "true")
	t.Setenv("APCA_API_KEY_ID", "canonical-key")
	t.Setenv("APCA_API_SECRET_KEY", "canonical-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Storage.PortfoliosDir != "/env/portfolios" {
		t.Errorf("PortfoliosDir = %q", cfg.Storage.PortfoliosDir)
	}
	if cfg.Cache.Dir != "/env/cache" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if !cfg.Demo {
		t.Error("DEMO=true should enable demo mode")
	}
	if cfg.Alpaca.APIKey != "canonical-key" || cfg.Alpaca.APISecret != "canonical-secret" {
		t.Errorf("Alpaca = %+v", cfg.Alpaca)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("expandHome(~/x/y) = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome(/abs) = %q", got)
	}
}
