package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"stocktui/internal/domain"
)

const (
	pathPrice         = "$.chart.result[0].meta.regularMarketPrice"
	pathPrevClose     = "$.chart.result[0].meta.previousClose"
	pathChartPrevious = "$.chart.result[0].meta.chartPreviousClose"
	pathTimestamps    = "$.chart.result[0].timestamp"
	pathCloses        = "$.chart.result[0].indicators.quote[0].close"
)

// YahooConfig configures the Yahoo chart source.
type YahooConfig struct {
	Endpoints       []string // prefixes, the symbol is appended
	UserAgent       string
	QuoteTimeout    time.Duration
	HistoryTimeout  time.Duration
	HistoryInterval string
	HistoryRange    string
}

// Yahoo reads the v8 chart endpoint, trying each configured prefix in order.
type Yahoo struct {
	cfg    YahooConfig
	client *http.Client
}

// NewYahoo creates a Yahoo source. Timeouts are applied per request through
// the context, so one client serves both quote and history calls.
func NewYahoo(cfg YahooConfig) *Yahoo {
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 5 * time.Second
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 10 * time.Second
	}
	if cfg.HistoryInterval == "" {
		cfg.HistoryInterval = "1d"
	}
	if cfg.HistoryRange == "" {
		cfg.HistoryRange = "1mo"
	}
	return &Yahoo{cfg: cfg, client: &http.Client{}}
}

func (y *Yahoo) Name() string { return "yahoo" }

// Quote returns the current price and change versus the previous close.
// The price falls back to previousClose when regularMarketPrice is absent;
// the reference falls back to chartPreviousClose.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	var lastErr error = ErrNoData
	for _, base := range y.cfg.Endpoints {
		doc, err := y.get(ctx, base+url.PathEscape(symbol), y.cfg.QuoteTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		q, err := parseQuote(doc)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", symbol, err)
			continue
		}
		return q, nil
	}
	return domain.Quote{}, lastErr
}

// History returns the daily closes over the configured range.
func (y *Yahoo) History(ctx context.Context, symbol string) (domain.HistoricalSeries, error) {
	query := url.Values{}
	query.Set("interval", y.cfg.HistoryInterval)
	query.Set("range", y.cfg.HistoryRange)

	var lastErr error = ErrNoData
	for _, base := range y.cfg.Endpoints {
		doc, err := y.get(ctx, base+url.PathEscape(symbol)+"?"+query.Encode(), y.cfg.HistoryTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		s, err := parseHistory(doc)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", symbol, err)
			continue
		}
		s.Symbol = symbol
		return s, nil
	}
	return domain.HistoricalSeries{}, lastErr
}

func (y *Yahoo) get(ctx context.Context, addr string, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	if y.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", y.cfg.UserAgent)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", addr, resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", addr, err)
	}
	return doc, nil
}

// ---------------------------------------------------------------------------
// Payload extraction
// ---------------------------------------------------------------------------

func parseQuote(doc any) (domain.Quote, error) {
	price, ok := number(doc, pathPrice)
	if !ok {
		price, ok = number(doc, pathPrevClose)
	}
	if !ok {
		return domain.Quote{}, ErrNoData
	}

	prev, ok := number(doc, pathPrevClose)
	if !ok {
		prev, ok = number(doc, pathChartPrevious)
	}
	if !ok || prev == 0 {
		return domain.Quote{}, ErrNoData
	}
	return domain.NewQuote(price, prev), nil
}

// parseHistory pairs timestamps with closes, dropping pairs whose close is
// null.
func parseHistory(doc any) (domain.HistoricalSeries, error) {
	ts, err := jsonpath.Get(pathTimestamps, doc)
	if err != nil {
		return domain.HistoricalSeries{}, ErrNoData
	}
	cl, err := jsonpath.Get(pathCloses, doc)
	if err != nil {
		return domain.HistoricalSeries{}, ErrNoData
	}
	tsList, ok1 := ts.([]any)
	clList, ok2 := cl.([]any)
	if !ok1 || !ok2 {
		return domain.HistoricalSeries{}, ErrNoData
	}

	var s domain.HistoricalSeries
	for i := 0; i < len(tsList) && i < len(clList); i++ {
		t, ok := tsList[i].(float64)
		if !ok {
			continue
		}
		c, ok := clList[i].(float64)
		if !ok {
			continue
		}
		s.Timestamps = append(s.Timestamps, int64(t))
		s.Closes = append(s.Closes, c)
	}
	if len(s.Closes) == 0 {
		return domain.HistoricalSeries{}, ErrNoData
	}
	return s, nil
}

// number evaluates path and returns a float when the result is numeric.
func number(doc any, path string) (float64, bool) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0, false
	}
	// jsonpath may wrap a single match in a list.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return 0, false
		}
		v = list[0]
	}
	f, ok := v.(float64)
	return f, ok
}
