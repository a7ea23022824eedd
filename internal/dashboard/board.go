// Package dashboard holds the state behind the portfolio view: the loaded
// positions, one map of quotes shared by every projection, the exchange rate
// and the active sort order.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stocktui/internal/domain"
	"stocktui/internal/portfolio"
	"stocktui/internal/quote"
	"stocktui/internal/ranking"
	"stocktui/internal/refresh"
)

// view indexes the two position lists.
type view int

const (
	viewSingle view = iota
	viewCombined
)

// Board is the dashboard state. Positions carry no prices; quotes live in a
// single map keyed by symbol so every projection sees the same value. A Board
// is owned by one goroutine.
type Board struct {
	svc *quote.Service
	log *slog.Logger

	portfolios []domain.Portfolio
	current    int
	combined   bool

	base  [2][]domain.Position    // by view
	views [2][2][]domain.Position // by view, market

	quotes     map[string]domain.Quote
	rate       float64
	order      ranking.Order
	lastUpdate time.Time
}

var marketIndex = [...]domain.Market{domain.MarketTW, domain.MarketUS}

// NewBoard creates a board over the given portfolios.
func NewBoard(svc *quote.Service, portfolios []domain.Portfolio, log *slog.Logger) *Board {
	if log == nil {
		log = slog.Default()
	}
	return &Board{
		svc:        svc,
		log:        log,
		portfolios: portfolios,
		quotes:     make(map[string]domain.Quote),
		rate:       svc.DefaultRate(),
		order:      ranking.DefaultOrder(),
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (b *Board) Portfolios() []domain.Portfolio { return b.portfolios }
func (b *Board) CurrentIndex() int              { return b.current }
func (b *Board) Combined() bool                 { return b.combined }
func (b *Board) Order() ranking.Order           { return b.order }
func (b *Board) Rate() float64                  { return b.rate }
func (b *Board) LastUpdate() time.Time          { return b.lastUpdate }

// Current returns the selected portfolio.
func (b *Board) Current() (domain.Portfolio, bool) {
	if b.current < 0 || b.current >= len(b.portfolios) {
		return domain.Portfolio{}, false
	}
	return b.portfolios[b.current], true
}

// Quote returns the quote currently shown for symbol.
func (b *Board) Quote(symbol string) (domain.Quote, bool) {
	q, ok := b.quotes[symbol]
	return q, ok
}

func (b *Board) active() view {
	if b.combined {
		return viewCombined
	}
	return viewSingle
}

func (b *Board) pricing() ranking.Pricing {
	return ranking.Pricing{Quotes: b.quotes, Rate: b.rate}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Reload re-reads the current portfolio and the combined positions, fills
// quotes and re-sorts. With fetchMissing false only the cache is consulted
// and misses keep whatever quote is already shown; the caller is expected to
// start a background refresh for them.
func (b *Board) Reload(ctx context.Context, fetchMissing bool) error {
	if q, ok := b.svc.Cached(b.svc.RateSymbol()); ok && q.Price > 0 {
		b.rate = q.Price
	} else if fetchMissing {
		b.rate = b.svc.ExchangeRate(ctx)
	}

	var single []domain.Position
	if p, ok := b.Current(); ok {
		holdings, err := portfolio.Load(p.Path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", p.Name, err)
		}
		single = portfolio.Single(p, holdings)
	}

	merged, err := portfolio.Aggregate(b.portfolios)
	if err != nil {
		return fmt.Errorf("aggregating portfolios: %w", err)
	}

	b.base[viewSingle] = single
	b.base[viewCombined] = portfolio.Positions(merged)

	var missing int
	for _, sym := range b.allSymbols() {
		if q, ok := b.svc.Cached(sym); ok {
			b.quotes[sym] = q
			continue
		}
		if fetchMissing {
			if q, ok := b.svc.Quote(ctx, sym); ok {
				b.quotes[sym] = q
				continue
			}
		}
		missing++
	}
	if fetchMissing {
		b.lastUpdate = b.svc.Quotes().Now()
	}
	b.log.Debug("board reloaded", "single", len(single), "combined", len(merged), "uncached", missing)

	b.project()
	return nil
}

// allSymbols lists every symbol of both views, deduplicated.
func (b *Board) allSymbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range b.base {
		for _, p := range list {
			if !seen[p.Symbol] {
				seen[p.Symbol] = true
				out = append(out, p.Symbol)
			}
		}
	}
	return out
}

// project splits both base lists by market and sorts every projection.
func (b *Board) project() {
	for v := range b.base {
		for m, market := range marketIndex {
			var list []domain.Position
			for _, p := range b.base[v] {
				if p.Market() == market {
					list = append(list, p)
				}
			}
			b.views[v][m] = list
		}
	}
	b.resort()
}

func (b *Board) resort() {
	pr := b.pricing()
	for v := range b.views {
		for m := range b.views[v] {
			ranking.Sort(b.views[v][m], b.order, pr)
		}
	}
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Apply folds one refresh message into the board. Prices become visible
// immediately; ordering is recomputed when the batch completes.
func (b *Board) Apply(msg refresh.Message) {
	switch m := msg.(type) {
	case refresh.RateResult:
		b.svc.Quotes().Adopt(m.Symbol, m.Quote, m.FetchedAt)
		if m.Quote.Price > 0 {
			b.rate = m.Quote.Price
		}
	case refresh.PriceResult:
		if !m.OK {
			return
		}
		b.svc.Quotes().Adopt(m.Symbol, m.Quote, m.FetchedAt)
		b.quotes[m.Symbol] = m.Quote
	case refresh.BatchComplete:
		b.lastUpdate = m.At
		b.resort()
	}
}

// SortBy toggles the order on col and re-sorts every projection.
func (b *Board) SortBy(col ranking.Column) {
	b.order = b.order.Toggle(col)
	b.resort()
}

// SwitchPortfolio selects portfolio i and leaves the combined view.
func (b *Board) SwitchPortfolio(ctx context.Context, i int) error {
	if i < 0 || i >= len(b.portfolios) {
		return fmt.Errorf("portfolio %d out of range", i+1)
	}
	b.current = i
	b.combined = false
	return b.Reload(ctx, false)
}

// ShowCombined switches to the aggregated view across all portfolios.
func (b *Board) ShowCombined() {
	b.combined = true
}

// SetPortfolios replaces the portfolio list, keeping the selection on the
// same name when it still exists.
func (b *Board) SetPortfolios(ps []domain.Portfolio) {
	name := ""
	if p, ok := b.Current(); ok {
		name = p.Name
	}
	b.portfolios = ps
	b.current = 0
	for i, p := range ps {
		if p.Name == name {
			b.current = i
			break
		}
	}
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

// Positions returns the sorted positions of market in the active view.
func (b *Board) Positions(market domain.Market) []domain.Position {
	for m, mk := range marketIndex {
		if mk == market {
			return b.views[b.active()][m]
		}
	}
	return nil
}

// Symbols lists the symbols of the active view, Taiwan first, without
// duplicates.
func (b *Board) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, market := range marketIndex {
		for _, p := range b.Positions(market) {
			if !seen[p.Symbol] {
				seen[p.Symbol] = true
				out = append(out, p.Symbol)
			}
		}
	}
	return out
}

// Row is a position joined with its current quote and derived figures.
type Row struct {
	domain.Position
	Quote       domain.Quote
	HasQuote    bool
	Value       float64 // native currency, 0 without a quote
	Gain        float64 // primary currency
	GainPercent float64
	HasGain     bool
}

// Rows returns the display rows of market in the active view.
func (b *Board) Rows(market domain.Market) []Row {
	pr := b.pricing()
	positions := b.Positions(market)
	rows := make([]Row, len(positions))
	for i, p := range positions {
		r := Row{Position: p}
		r.Quote, r.HasQuote = b.quotes[p.Symbol]
		if r.HasQuote {
			r.Value = p.Quantity * r.Quote.Price
		}
		r.Gain, r.HasGain = pr.Gain(p)
		r.GainPercent, _ = pr.GainPercent(p)
		rows[i] = r
	}
	return rows
}
