// Package quote fetches prices and daily closes from remote market data
// services and layers the price cache over them.
package quote

import (
	"context"
	"errors"

	"stocktui/internal/domain"
)

// Source is one remote market data service.
type Source interface {
	Name() string
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	History(ctx context.Context, symbol string) (domain.HistoricalSeries, error)
}

// ErrUnsupported is returned by a source for symbols it does not cover.
var ErrUnsupported = errors.New("symbol not supported by source")

// ErrNoData is returned when a payload parses but lacks the required fields.
var ErrNoData = errors.New("no usable data in response")
