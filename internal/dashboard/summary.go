package dashboard

import "stocktui/internal/domain"

// Summary totals the active view in the primary currency. Only positions
// with a quantity and a quote contribute to cost and value.
type Summary struct {
	TotalCost   float64
	TotalValue  float64
	TotalGain   float64
	GainPercent float64
	Stocks      int // positions in the view
	Holdings    int // positions contributing to the totals
}

// MarketTotals are the totals of one market in its own currency.
type MarketTotals struct {
	Market      domain.Market
	Cost        float64
	Value       float64
	Gain        float64
	GainPercent float64
}

// Summary computes the totals of the active view.
func (b *Board) Summary() Summary {
	var s Summary
	for _, market := range marketIndex {
		for _, p := range b.Positions(market) {
			s.Stocks++
			q, ok := b.quotes[p.Symbol]
			if !ok || p.Quantity <= 0 {
				continue
			}
			cost := p.Quantity * p.CostBasis
			value := p.Quantity * q.Price
			if market != domain.PrimaryMarket {
				cost *= b.rate
				value *= b.rate
			}
			s.TotalCost += cost
			s.TotalValue += value
			s.Holdings++
		}
	}
	s.TotalGain = s.TotalValue - s.TotalCost
	if s.TotalCost > 0 {
		s.GainPercent = s.TotalGain / s.TotalCost * 100
	}
	return s
}

// MarketSummary computes the totals of one market of the active view.
func (b *Board) MarketSummary(market domain.Market) MarketTotals {
	t := MarketTotals{Market: market}
	for _, p := range b.Positions(market) {
		q, ok := b.quotes[p.Symbol]
		if !ok || p.Quantity <= 0 {
			continue
		}
		t.Cost += p.Quantity * p.CostBasis
		t.Value += p.Quantity * q.Price
	}
	t.Gain = t.Value - t.Cost
	if t.Cost > 0 {
		t.GainPercent = t.Gain / t.Cost * 100
	}
	return t
}
