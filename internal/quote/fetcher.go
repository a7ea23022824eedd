package quote

import (
	"context"
	"errors"
	"log/slog"

	"stocktui/internal/domain"
)

// Fetcher tries its sources in order and reports absence when none succeed.
// It performs no caching and is safe for concurrent use.
type Fetcher struct {
	sources []Source
	log     *slog.Logger
}

// NewFetcher creates a Fetcher over the given sources.
func NewFetcher(log *slog.Logger, sources ...Source) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{sources: sources, log: log}
}

// Fetch returns the first successful quote for symbol.
func (f *Fetcher) Fetch(ctx context.Context, symbol string) (domain.Quote, bool) {
	for _, src := range f.sources {
		q, err := src.Quote(ctx, symbol)
		if err == nil {
			return q, true
		}
		if !errors.Is(err, ErrUnsupported) {
			f.log.Debug("quote fetch failed", "source", src.Name(), "symbol", symbol, "error", err)
		}
	}
	return domain.Quote{}, false
}

// FetchHistory returns the first successful series for symbol.
func (f *Fetcher) FetchHistory(ctx context.Context, symbol string) (domain.HistoricalSeries, bool) {
	for _, src := range f.sources {
		s, err := src.History(ctx, symbol)
		if err == nil {
			s.Symbol = symbol
			return s, true
		}
		if !errors.Is(err, ErrUnsupported) {
			f.log.Debug("history fetch failed", "source", src.Name(), "symbol", symbol, "error", err)
		}
	}
	return domain.HistoricalSeries{}, false
}
