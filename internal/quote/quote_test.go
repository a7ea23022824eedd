package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stocktui/internal/cache"
	"stocktui/internal/config"
	"stocktui/internal/domain"
)

// chartServer serves canned chart payloads keyed by symbol and counts hits.
func chartServer(t *testing.T, payloads map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") != "test-agent" {
			http.Error(w, "missing agent", http.StatusForbidden)
			return
		}
		sym := strings.TrimPrefix(r.URL.Path, "/chart/")
		body, ok := payloads[sym]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func metaPayload(fields string) string {
	return `{"chart":{"result":[{"meta":{` + fields + `}}]}}`
}

func newTestYahoo(endpoints ...string) *Yahoo {
	return NewYahoo(YahooConfig{
		Endpoints:    endpoints,
		UserAgent:    "test-agent",
		QuoteTimeout: 2 * time.Second,
	})
}

func TestYahooQuote(t *testing.T) {
	srv, _ := chartServer(t, map[string]string{
		"AAA":     metaPayload(`"regularMarketPrice":15,"previousClose":10`),
		"NOPRICE": metaPayload(`"previousClose":10,"chartPreviousClose":8`),
		"CHARTPC": metaPayload(`"regularMarketPrice":12,"chartPreviousClose":8`),
		"ZEROPC":  metaPayload(`"regularMarketPrice":12,"previousClose":0`),
		"NOPREV":  metaPayload(`"regularMarketPrice":12`),
		"BROKEN":  `{"chart":`,
		"EMPTY":   `{"chart":{"result":[]}}`,
	})
	y := newTestYahoo(srv.URL + "/chart/")
	ctx := context.Background()

	tests := []struct {
		symbol string
		want   domain.Quote
		ok     bool
	}{
		{"AAA", domain.Quote{Price: 15, Change: 5, ChangePercent: 50}, true},
		{"NOPRICE", domain.Quote{Price: 10, Change: 0, ChangePercent: 0}, true},
		{"CHARTPC", domain.Quote{Price: 12, Change: 4, ChangePercent: 50}, true},
		{"ZEROPC", domain.Quote{}, false},
		{"NOPREV", domain.Quote{}, false},
		{"BROKEN", domain.Quote{}, false},
		{"EMPTY", domain.Quote{}, false},
		{"UNKNOWN", domain.Quote{}, false},
	}
	for _, tt := range tests {
		got, err := y.Quote(ctx, tt.symbol)
		if (err == nil) != tt.ok {
			t.Errorf("Quote(%s) err = %v, want ok=%v", tt.symbol, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("Quote(%s) = %+v, want %+v", tt.symbol, got, tt.want)
		}
	}
}

func TestYahooEndpointFallback(t *testing.T) {
	var primaryHits int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryHits, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer primary.Close()
	secondary, _ := chartServer(t, map[string]string{
		"2330.TW": metaPayload(`"regularMarketPrice":606,"previousClose":600`),
	})

	y := newTestYahoo(primary.URL+"/chart/", secondary.URL+"/chart/")
	q, err := y.Quote(context.Background(), "2330.TW")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price != 606 || q.Change != 6 {
		t.Errorf("quote = %+v", q)
	}
	if atomic.LoadInt32(&primaryHits) != 1 {
		t.Errorf("primary endpoint hits = %d, want 1", primaryHits)
	}
}

func TestYahooHistory(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"chart":{"result":[{
			"timestamp":[100,200,300,400],
			"indicators":{"quote":[{"close":[10.5,null,11,12]}]}
		}]}}`)
	}))
	defer srv.Close()

	y := newTestYahoo(srv.URL + "/chart/")
	s, err := y.History(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !strings.Contains(gotQuery, "interval=1d") || !strings.Contains(gotQuery, "range=1mo") {
		t.Errorf("query = %q", gotQuery)
	}
	if s.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", s.Symbol)
	}
	wantTS := []int64{100, 300, 400}
	wantCl := []float64{10.5, 11, 12}
	if len(s.Timestamps) != 3 || len(s.Closes) != 3 {
		t.Fatalf("series = %+v", s)
	}
	for i := range wantTS {
		if s.Timestamps[i] != wantTS[i] || s.Closes[i] != wantCl[i] {
			t.Errorf("point %d = (%d, %v), want (%d, %v)", i, s.Timestamps[i], s.Closes[i], wantTS[i], wantCl[i])
		}
	}
}

// stubSource is an in-memory Source.
type stubSource struct {
	name   string
	quotes map[string]domain.Quote
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Quote(_ context.Context, symbol string) (domain.Quote, error) {
	s.calls++
	if q, ok := s.quotes[symbol]; ok {
		return q, nil
	}
	return domain.Quote{}, errors.New("not found")
}

func (s *stubSource) History(_ context.Context, symbol string) (domain.HistoricalSeries, error) {
	if _, ok := s.quotes[symbol]; !ok {
		return domain.HistoricalSeries{}, ErrUnsupported
	}
	return domain.HistoricalSeries{Timestamps: []int64{1}, Closes: []float64{1}}, nil
}

func TestFetcherOrder(t *testing.T) {
	first := &stubSource{name: "first", quotes: map[string]domain.Quote{"A": {Price: 1}}}
	second := &stubSource{name: "second", quotes: map[string]domain.Quote{"A": {Price: 2}, "B": {Price: 3}}}
	f := NewFetcher(nil, first, second)
	ctx := context.Background()

	if q, ok := f.Fetch(ctx, "A"); !ok || q.Price != 1 {
		t.Errorf("Fetch(A) = %+v, %v, want first source", q, ok)
	}
	if second.calls != 0 {
		t.Errorf("second source called %d times after first succeeded", second.calls)
	}
	if q, ok := f.Fetch(ctx, "B"); !ok || q.Price != 3 {
		t.Errorf("Fetch(B) = %+v, %v", q, ok)
	}
	if _, ok := f.Fetch(ctx, "C"); ok {
		t.Error("Fetch(C) should report absence")
	}
	if s, ok := f.FetchHistory(ctx, "B"); !ok || s.Symbol != "B" {
		t.Errorf("FetchHistory(B) = %+v, %v", s, ok)
	}
}

func TestAlpacaSkipsPrimaryMarket(t *testing.T) {
	a := NewAlpaca("key", "secret", "http://127.0.0.1:1")
	if _, err := a.Quote(context.Background(), "2330.TW"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Quote(2330.TW) err = %v, want ErrUnsupported", err)
	}
	if _, err := a.History(context.Background(), "6488.TWO"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("History(6488.TWO) err = %v, want ErrUnsupported", err)
	}
}

func newTestService(t *testing.T, sources ...Source) *Service {
	t.Helper()
	dir := t.TempDir()
	quotes := cache.New(time.Minute, cache.NewDisk[domain.Quote](dir, ".cache", cache.JSONCodec[domain.Quote]{}))
	history := cache.New(6*time.Hour, cache.NewDisk[domain.HistoricalSeries](dir, "_history.parquet", cache.HistoryCodec{}))
	return NewService(NewFetcher(nil, sources...), quotes, history)
}

func TestServiceQuoteCaches(t *testing.T) {
	src := &stubSource{name: "stub", quotes: map[string]domain.Quote{"AAPL": {Price: 200}}}
	svc := newTestService(t, src)
	ctx := context.Background()

	if _, ok := svc.Cached("AAPL"); ok {
		t.Fatal("unexpected cached quote before first fetch")
	}
	for i := 0; i < 3; i++ {
		if q, ok := svc.Quote(ctx, "AAPL"); !ok || q.Price != 200 {
			t.Fatalf("Quote = %+v, %v", q, ok)
		}
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}

	svc.InvalidateAll()
	if _, ok := svc.Quote(ctx, "AAPL"); !ok {
		t.Fatal("Quote after invalidate")
	}
	if src.calls != 1 {
		t.Errorf("fresh disk entry should satisfy the read after invalidate, calls = %d", src.calls)
	}
}

func TestServiceExchangeRate(t *testing.T) {
	ctx := context.Background()

	down := newTestService(t, &stubSource{name: "down"})
	if got := down.ExchangeRate(ctx); got != DefaultRate {
		t.Errorf("ExchangeRate with no data = %v, want %v", got, DefaultRate)
	}

	up := newTestService(t, &stubSource{name: "up", quotes: map[string]domain.Quote{
		DefaultRateSymbol: {Price: 30.5},
	}})
	if got := up.CachedExchangeRate(); got != DefaultRate {
		t.Errorf("CachedExchangeRate before fetch = %v", got)
	}
	if got := up.ExchangeRate(ctx); got != 30.5 {
		t.Errorf("ExchangeRate = %v, want 30.5", got)
	}
	if got := up.CachedExchangeRate(); got != 30.5 {
		t.Errorf("CachedExchangeRate after fetch = %v", got)
	}
}

func TestServiceHistory(t *testing.T) {
	src := &stubSource{name: "stub", quotes: map[string]domain.Quote{"AAPL": {Price: 1}}}
	svc := newTestService(t, src)
	h, ok := svc.History(context.Background(), "AAPL")
	if !ok || h.Symbol != "AAPL" {
		t.Fatalf("History = %+v, %v", h, ok)
	}
	if c, ok := svc.CachedHistory("AAPL"); !ok || c.Symbol != "AAPL" || len(c.Closes) != 1 {
		t.Errorf("CachedHistory = %+v, %v", c, ok)
	}
	if _, ok := svc.History(context.Background(), "MISSING"); ok {
		t.Error("History for unknown symbol should be absent")
	}
}

func TestSetupFromConfig(t *testing.T) {
	srv, _ := chartServer(t, map[string]string{
		"AAPL": metaPayload(`"regularMarketPrice":110,"previousClose":100`),
	})
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Fetch.Endpoints = []string{srv.URL + "/chart/"}
	cfg.Fetch.UserAgent = "test-agent"
	cfg.Market.DefaultExchangeRate = 31

	svc, disk := Setup(cfg, slog.Default())
	if svc.DefaultRate() != 31 || svc.RateSymbol() != "USDTWD=X" {
		t.Errorf("rate settings = %s / %v", svc.RateSymbol(), svc.DefaultRate())
	}
	q, ok := svc.Quote(context.Background(), "AAPL")
	if !ok || q.ChangePercent != 10 {
		t.Fatalf("Quote = %+v, %v", q, ok)
	}
	if _, err := disk.Load("AAPL"); err != nil {
		t.Errorf("quote should be written to the shared disk tier: %v", err)
	}
}
