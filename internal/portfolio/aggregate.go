package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stocktui/internal/domain"
)

// maxConcurrentLoads bounds the number of holding files read at once.
const maxConcurrentLoads = 8

// Aggregate merges every holding across portfolios by symbol. Quantities are
// summed and the cost basis is the quantity-weighted mean; both are folded in
// decimal so the result does not depend on summation order. The first
// occurrence of a symbol supplies its display and description, and Sources
// lists the portfolio of every contributing line in encounter order.
func Aggregate(portfolios []domain.Portfolio) (map[string]domain.Position, error) {
	loaded := make([][]domain.Holding, len(portfolios))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLoads)
	for i, p := range portfolios {
		g.Go(func() error {
			hs, err := Load(p.Path)
			if err != nil {
				return err
			}
			loaded[i] = hs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type acc struct {
		pos   domain.Position
		qty   decimal.Decimal
		value decimal.Decimal
	}
	accs := make(map[string]*acc)
	for i, hs := range loaded {
		for _, h := range hs {
			a, ok := accs[h.Symbol]
			if !ok {
				a = &acc{pos: domain.Position{Holding: h}}
				accs[h.Symbol] = a
			}
			q := decimal.NewFromFloat(h.Quantity)
			a.qty = a.qty.Add(q)
			a.value = a.value.Add(q.Mul(decimal.NewFromFloat(h.CostBasis)))
			a.pos.Sources = append(a.pos.Sources, portfolios[i].Name)
		}
	}

	out := make(map[string]domain.Position, len(accs))
	for sym, a := range accs {
		p := a.pos
		p.Quantity = a.qty.InexactFloat64()
		p.CostBasis = 0
		if !a.qty.IsZero() {
			p.CostBasis = a.value.Div(a.qty).InexactFloat64()
		}
		out[sym] = p
	}
	return out, nil
}

// Positions returns the aggregated positions ordered by symbol.
func Positions(m map[string]domain.Position) []domain.Position {
	out := make([]domain.Position, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Single wraps the holdings of one portfolio as positions without merging.
func Single(p domain.Portfolio, holdings []domain.Holding) []domain.Position {
	out := make([]domain.Position, len(holdings))
	for i, h := range holdings {
		out[i] = domain.Position{Holding: h, Sources: []string{p.Name}}
	}
	return out
}
