// Package domain defines the value types shared by the holding store, the
// price cache, the quote fetcher and the dashboard: holdings, quotes,
// positions, portfolios and market segments.
package domain

import (
	"strings"
)

// Market is one of the two market segments every symbol falls into.
type Market int

const (
	MarketTW Market = iota // primary market, values reported in TWD
	MarketUS
)

// Markets lists the segments in display order.
var Markets = []Market{MarketTW, MarketUS}

// PrimaryMarket is the market whose currency all cross-market totals are
// converted into.
const PrimaryMarket = MarketTW

// twMarker identifies Taiwan listings; it matches both ".TW" and ".TWO".
const twMarker = ".TW"

// MarketOf classifies a symbol. This is the only market rule in the program.
func MarketOf(symbol string) Market {
	if strings.Contains(symbol, twMarker) {
		return MarketTW
	}
	return MarketUS
}

// Title returns the section title used in portfolio files and the view.
func (m Market) Title() string {
	if m == MarketTW {
		return "Taiwan"
	}
	return "US"
}

// Currency returns the ISO currency code of the market.
func (m Market) Currency() string {
	if m == MarketTW {
		return "TWD"
	}
	return "USD"
}

func (m Market) String() string { return m.Title() }

// Holding is one line item of a portfolio file.
type Holding struct {
	Symbol    string
	Display   string
	Name      string
	Quantity  float64
	CostBasis float64 // average price per unit, 0 = unknown
}

// Market returns the market segment of the holding's symbol.
func (h Holding) Market() Market { return MarketOf(h.Symbol) }

// Quote is a price snapshot as of one fetch.
type Quote struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// NewQuote derives the change fields from a price and its reference
// previous close. prev must be non-zero.
func NewQuote(price, prev float64) Quote {
	change := price - prev
	return Quote{
		Price:         price,
		Change:        change,
		ChangePercent: change / prev * 100,
	}
}

// Portfolio is a named holding file.
type Portfolio struct {
	Name string
	Path string
}

// Position is a holding as shown in a view. In a single-portfolio view
// Sources holds that portfolio; in the combined view it lists every
// contributing portfolio in encounter order.
type Position struct {
	Holding
	Sources []string
}

// Label returns the contributing portfolio names joined with "+".
func (p Position) Label() string {
	return strings.Join(p.Sources, "+")
}

// HistoricalSeries holds daily closes for one symbol over the lookback window.
type HistoricalSeries struct {
	Symbol     string
	Timestamps []int64 // unix seconds
	Closes     []float64
}

// Trend is the direction of a historical series.
type Trend int

const (
	TrendFlat Trend = iota
	TrendUp
	TrendDown
)

// Arrow returns the glyph shown for a trend.
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "⬆"
	case TrendDown:
		return "⬇"
	default:
		return "→"
	}
}

// Trend compares the mean of the first five closes with the mean of the
// last five. Moves within ±1% are flat; fewer than ten closes are flat.
func (s HistoricalSeries) Trend() Trend {
	if len(s.Closes) < 10 {
		return TrendFlat
	}
	var first, last float64
	for i := 0; i < 5; i++ {
		first += s.Closes[i]
		last += s.Closes[len(s.Closes)-1-i]
	}
	first /= 5
	last /= 5
	if first == 0 {
		return TrendFlat
	}
	pct := (last - first) / first * 100
	switch {
	case pct > 1:
		return TrendUp
	case pct < -1:
		return TrendDown
	default:
		return TrendFlat
	}
}
