package quote

import (
	"context"
	"log/slog"

	"stocktui/internal/cache"
	"stocktui/internal/domain"
)

// Default exchange-rate settings.
const (
	DefaultRateSymbol = "USDTWD=X"
	DefaultRate       = 32.0
)

// Service is the synchronous cache-then-fetch path. It owns the in-process
// tiers of the quote and history caches and must be driven from one
// goroutine.
type Service struct {
	fetcher     *Fetcher
	quotes      *cache.Cache[domain.Quote]
	history     *cache.Cache[domain.HistoricalSeries]
	rateSymbol  string
	defaultRate float64
	log         *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRate sets the exchange-rate pseudo-symbol and its fallback value.
func WithRate(symbol string, fallback float64) ServiceOption {
	return func(s *Service) {
		if symbol != "" {
			s.rateSymbol = symbol
		}
		if fallback > 0 {
			s.defaultRate = fallback
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService wires a fetcher to the quote and history caches.
func NewService(f *Fetcher, quotes *cache.Cache[domain.Quote], history *cache.Cache[domain.HistoricalSeries], opts ...ServiceOption) *Service {
	s := &Service{
		fetcher:     f,
		quotes:      quotes,
		history:     history,
		rateSymbol:  DefaultRateSymbol,
		defaultRate: DefaultRate,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetcher returns the underlying fetcher.
func (s *Service) Fetcher() *Fetcher { return s.fetcher }

// Quotes returns the quote cache.
func (s *Service) Quotes() *cache.Cache[domain.Quote] { return s.quotes }

// HistoryCache returns the history cache.
func (s *Service) HistoryCache() *cache.Cache[domain.HistoricalSeries] { return s.history }

// RateSymbol returns the exchange-rate pseudo-symbol.
func (s *Service) RateSymbol() string { return s.rateSymbol }

// DefaultRate returns the fallback exchange rate.
func (s *Service) DefaultRate() float64 { return s.defaultRate }

// Quote returns a cached quote when fresh, otherwise fetches and caches it.
func (s *Service) Quote(ctx context.Context, symbol string) (domain.Quote, bool) {
	if q, ok := s.quotes.Get(symbol); ok {
		return q, true
	}
	q, ok := s.fetcher.Fetch(ctx, symbol)
	if !ok {
		return domain.Quote{}, false
	}
	s.quotes.Put(symbol, q)
	return q, true
}

// Cached returns a fresh cached quote without touching the network.
func (s *Service) Cached(symbol string) (domain.Quote, bool) {
	return s.quotes.Get(symbol)
}

// ExchangeRate returns the secondary-to-primary conversion rate, falling
// back to the default when it cannot be obtained.
func (s *Service) ExchangeRate(ctx context.Context) float64 {
	if q, ok := s.Quote(ctx, s.rateSymbol); ok && q.Price > 0 {
		return q.Price
	}
	s.log.Debug("exchange rate unavailable, using default", "rate", s.defaultRate)
	return s.defaultRate
}

// CachedExchangeRate is ExchangeRate restricted to the cache.
func (s *Service) CachedExchangeRate() float64 {
	if q, ok := s.quotes.Get(s.rateSymbol); ok && q.Price > 0 {
		return q.Price
	}
	return s.defaultRate
}

// History returns the cached series when fresh, otherwise fetches it.
func (s *Service) History(ctx context.Context, symbol string) (domain.HistoricalSeries, bool) {
	if h, ok := s.CachedHistory(symbol); ok {
		return h, true
	}
	h, ok := s.fetcher.FetchHistory(ctx, symbol)
	if !ok {
		return domain.HistoricalSeries{}, false
	}
	s.history.Put(symbol, h)
	return h, true
}

// CachedHistory returns a fresh cached series without touching the network.
func (s *Service) CachedHistory(symbol string) (domain.HistoricalSeries, bool) {
	h, ok := s.history.Get(symbol)
	if ok {
		h.Symbol = symbol
	}
	return h, ok
}

// AdoptHistory stores a series fetched off the interactive goroutine.
func (s *Service) AdoptHistory(h domain.HistoricalSeries) {
	s.history.Put(h.Symbol, h)
}

// InvalidateAll clears the in-process tiers of both caches.
func (s *Service) InvalidateAll() {
	s.quotes.InvalidateAll()
	s.history.InvalidateAll()
}
