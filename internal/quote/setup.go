package quote

import (
	"log/slog"

	"stocktui/internal/cache"
	"stocktui/internal/config"
	"stocktui/internal/domain"
)

// Disk tier file suffixes.
const (
	QuoteSuffix   = ".cache"
	HistorySuffix = "_history.parquet"
)

// Setup builds the fetcher, both caches and the service described by cfg.
// The quote disk tier is returned as well so a background refresher can
// share it.
func Setup(cfg *config.Config, log *slog.Logger) (*Service, *cache.Disk[domain.Quote]) {
	sources := []Source{NewYahoo(YahooConfig{
		Endpoints:       cfg.Fetch.Endpoints,
		UserAgent:       cfg.Fetch.UserAgent,
		QuoteTimeout:    cfg.Fetch.QuoteTimeout,
		HistoryTimeout:  cfg.Fetch.HistoryTimeout,
		HistoryInterval: cfg.Fetch.HistoryInterval,
		HistoryRange:    cfg.Fetch.HistoryRange,
	})}
	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
		sources = append(sources, NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL))
		log.Info("alpaca fallback source enabled")
	}

	quoteDisk := cache.NewDisk[domain.Quote](cfg.Cache.Dir, QuoteSuffix, cache.JSONCodec[domain.Quote]{})
	historyDisk := cache.NewDisk[domain.HistoricalSeries](cfg.Cache.Dir, HistorySuffix, cache.HistoryCodec{})

	svc := NewService(
		NewFetcher(log, sources...),
		cache.New(cfg.Cache.QuoteTTL, quoteDisk, cache.WithLogger(log)),
		cache.New(cfg.Cache.HistoryTTL, historyDisk, cache.WithLogger(log)),
		WithRate(cfg.Market.ExchangeRateSymbol, cfg.Market.DefaultExchangeRate),
		WithServiceLogger(log),
	)
	return svc, quoteDisk
}
