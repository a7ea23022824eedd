// Package ranking computes per-position metrics and orders positions by a
// selected column.
package ranking

import (
	"math"
	"sort"

	"stocktui/internal/domain"
)

// Column is a sortable metric.
type Column int

const (
	Price Column = iota
	Change
	Quantity
	Gain
	GainPercent
)

func (c Column) String() string {
	switch c {
	case Price:
		return "price"
	case Change:
		return "change"
	case Quantity:
		return "quantity"
	case Gain:
		return "gain"
	case GainPercent:
		return "gain%"
	default:
		return "unknown"
	}
}

// Direction of a sort.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// Arrow returns the glyph shown next to the sorted column header.
func (d Direction) Arrow() string {
	if d == Ascending {
		return "▲"
	}
	return "▼"
}

// Order is the active column and direction.
type Order struct {
	Column    Column
	Direction Direction
}

// DefaultOrder sorts by daily change, largest first.
func DefaultOrder() Order {
	return Order{Column: Change, Direction: Descending}
}

// Toggle returns the order after selecting col: the same column flips the
// direction, a different column starts descending.
func (o Order) Toggle(col Column) Order {
	if o.Column == col {
		if o.Direction == Descending {
			return Order{Column: col, Direction: Ascending}
		}
		return Order{Column: col, Direction: Descending}
	}
	return Order{Column: col, Direction: Descending}
}

// Pricing is the quote state metrics are computed against.
type Pricing struct {
	Quotes map[string]domain.Quote
	Rate   float64 // secondary-to-primary conversion
}

// Quote returns the quote for symbol, if any.
func (p Pricing) Quote(symbol string) (domain.Quote, bool) {
	q, ok := p.Quotes[symbol]
	return q, ok
}

func (p Pricing) gainable(pos domain.Position) (domain.Quote, bool) {
	if pos.Quantity <= 0 || pos.CostBasis <= 0 {
		return domain.Quote{}, false
	}
	return p.Quote(pos.Symbol)
}

// Gain is the unrealised gain in the primary currency.
func (p Pricing) Gain(pos domain.Position) (float64, bool) {
	q, ok := p.gainable(pos)
	if !ok {
		return 0, false
	}
	g := pos.Quantity*q.Price - pos.Quantity*pos.CostBasis
	if pos.Market() != domain.PrimaryMarket {
		g *= p.Rate
	}
	return g, true
}

// NativeGain is the unrealised gain in the position's own currency.
func (p Pricing) NativeGain(pos domain.Position) (float64, bool) {
	q, ok := p.gainable(pos)
	if !ok {
		return 0, false
	}
	return pos.Quantity * (q.Price - pos.CostBasis), true
}

// GainPercent is the price move relative to cost basis.
func (p Pricing) GainPercent(pos domain.Position) (float64, bool) {
	q, ok := p.gainable(pos)
	if !ok {
		return 0, false
	}
	return (q.Price - pos.CostBasis) / pos.CostBasis * 100, true
}

// Key returns the sort key of pos for col. Positions without a quote sort
// as price 0 and change -Inf; unavailable gains sort as 0.
func Key(col Column, pos domain.Position, p Pricing) float64 {
	switch col {
	case Price:
		if q, ok := p.Quote(pos.Symbol); ok {
			return q.Price
		}
		return 0
	case Change:
		if q, ok := p.Quote(pos.Symbol); ok {
			return q.ChangePercent
		}
		return math.Inf(-1)
	case Quantity:
		return pos.Quantity
	case Gain:
		g, _ := p.Gain(pos)
		return g
	case GainPercent:
		g, _ := p.GainPercent(pos)
		return g
	}
	return 0
}

// Sort orders rows in place. The sort is stable, so ties keep their prior
// relative order.
func Sort(rows []domain.Position, o Order, p Pricing) {
	type keyed struct {
		pos domain.Position
		key float64
	}
	ks := make([]keyed, len(rows))
	for i, r := range rows {
		ks[i] = keyed{pos: r, key: Key(o.Column, r, p)}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if o.Direction == Ascending {
			return ks[i].key < ks[j].key
		}
		return ks[i].key > ks[j].key
	})
	for i := range ks {
		rows[i] = ks[i].pos
	}
}
