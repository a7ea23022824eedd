package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stocktui/internal/domain"
)

// Alpaca reads snapshots and daily bars from the Alpaca market-data API. It
// only covers US listings.
type Alpaca struct {
	client   *marketdata.Client
	lookback time.Duration
	now      func() time.Time
}

// NewAlpaca creates an Alpaca source. dataURL may be empty for the default
// endpoint.
func NewAlpaca(apiKey, apiSecret, dataURL string) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &Alpaca{
		client:   marketdata.NewClient(opts),
		lookback: 31 * 24 * time.Hour,
		now:      time.Now,
	}
}

func (a *Alpaca) Name() string { return "alpaca" }

func (a *Alpaca) covers(symbol string) bool {
	return domain.MarketOf(symbol) == domain.MarketUS
}

// Quote uses the latest trade as the price and the previous daily bar close
// as the reference.
func (a *Alpaca) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if !a.covers(symbol) {
		return domain.Quote{}, ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	snap, err := a.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alpaca snapshot %s: %w", symbol, err)
	}
	if snap == nil || snap.LatestTrade == nil || snap.PrevDailyBar == nil || snap.PrevDailyBar.Close == 0 {
		return domain.Quote{}, ErrNoData
	}
	return domain.NewQuote(snap.LatestTrade.Price, snap.PrevDailyBar.Close), nil
}

// History returns daily closes over the lookback window.
func (a *Alpaca) History(ctx context.Context, symbol string) (domain.HistoricalSeries, error) {
	if !a.covers(symbol) {
		return domain.HistoricalSeries{}, ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return domain.HistoricalSeries{}, err
	}
	end := a.now()
	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.Add(-a.lookback),
		End:       end,
	})
	if err != nil {
		return domain.HistoricalSeries{}, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return domain.HistoricalSeries{}, ErrNoData
	}
	s := domain.HistoricalSeries{Symbol: symbol}
	for _, b := range bars {
		s.Timestamps = append(s.Timestamps, b.Timestamp.Unix())
		s.Closes = append(s.Closes, b.Close)
	}
	return s, nil
}
