package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"stocktui/internal/dashboard"
	"stocktui/internal/domain"
	"stocktui/internal/ranking"
)

// Styles.
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionHlStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6")).Padding(0, 1)
	highlightBG    = lipgloss.Color("236")
)

func signStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

// hlStyle returns a copy of s with the highlight background applied when hl is true.
func hlStyle(s lipgloss.Style, hl bool) lipgloss.Style {
	if hl {
		return s.Background(highlightBG)
	}
	return s
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}
	return m.renderHeader() + "\n" + m.viewport.View() + "\n" + m.renderFooter()
}

// ---------------------------------------------------------------------------
// Header / footer
// ---------------------------------------------------------------------------

func (m model) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Stock Portfolio"))
	b.WriteString("  ")

	tab := func(label string, active bool) {
		if active {
			b.WriteString(tabActiveStyle.Render(" " + label + " "))
		} else {
			b.WriteString(tabStyle.Render(" " + label + " "))
		}
	}
	tab("0:All", m.board.Combined())
	for i, p := range m.board.Portfolios() {
		tab(fmt.Sprintf("%d:%s", i+1, p.Name), !m.board.Combined() && i == m.board.CurrentIndex())
	}
	b.WriteString("\n")

	now := time.Now()
	for i, cal := range m.calendars {
		if i > 0 {
			b.WriteString(dimStyle.Render("  |  "))
		}
		if cal.IsMarketOpen(now) {
			b.WriteString(gainStyle.Render("● " + cal.Market().Title() + " open"))
		} else {
			b.WriteString(dimStyle.Render("○ " + cal.Market().Title() + " closed"))
		}
	}
	return b.String()
}

func (m model) renderFooter() string {
	if m.status != "" {
		return errStyle.Render(" " + m.status)
	}
	switch m.mode {
	case modeForm:
		return dimStyle.Render(" tab/↑↓=Field | Enter=Next/Save | Esc=Cancel")
	case modeConfirmDelete:
		return dimStyle.Render(" y=Delete | n/Esc=Cancel")
	case modeDetail:
		return dimStyle.Render(" Esc/Enter=Back")
	}
	hide := "H=Hide"
	if m.hidePositions {
		hide = "H=Show"
	}
	gain := "T=Gain%"
	if !m.showGainAmount {
		gain = "T=Gain$"
	}
	return dimStyle.Render(fmt.Sprintf(
		" 0-9=Portfolio | ←→=Switch | ↑↓jk=Nav | Tab=Section | Enter=Detail | Sort:pcygG | a=Add e=Edit d=Del n=New | %s %s | L=Live r=Refresh q=Quit", hide, gain))
}

// ---------------------------------------------------------------------------
// Content
// ---------------------------------------------------------------------------

func (m model) renderContent() string {
	switch m.mode {
	case modeForm:
		return m.renderForm()
	case modeConfirmDelete:
		return boxStyle.Render(fmt.Sprintf("Delete %s?\n\n%s", m.deleteSymbol, dimStyle.Render("y to confirm, n to cancel")))
	case modeDetail:
		return m.renderDetail()
	}

	var b strings.Builder
	for s, mk := range domain.Markets {
		m.renderSection(&b, s, mk)
		b.WriteString("\n")
	}
	m.renderSummary(&b)
	return b.String()
}

func (m model) sectionTitle(mk domain.Market) string {
	base := mk.Title() + " Stocks"
	if m.board.Combined() {
		base += " (All)"
	}
	if m.hidePositions {
		return base
	}
	t := m.board.MarketSummary(mk)
	var gain string
	if m.showGainAmount {
		gain = dashboard.FormatSignedMoney(t.Gain, mk.Currency())
	} else {
		gain = fmt.Sprintf("%+.2f%%", t.GainPercent)
	}
	return base + "  " + dashboard.FormatMoney(t.Value, mk.Currency()) + "  " + signStyle(t.Gain).Render(gain)
}

type column struct {
	title string
	width int
	col   ranking.Column
	sort  bool
}

func (m model) columns() []column {
	nameW := 10
	if m.board.Combined() {
		nameW = 8
	}
	cols := []column{
		{title: "Symbol", width: 10},
		{title: "Name", width: nameW},
		{title: "Price", width: 10, col: ranking.Price, sort: true},
		{title: "Change", width: 8, col: ranking.Change, sort: true},
	}
	if !m.hidePositions {
		cols = append(cols,
			column{title: "Qty", width: 9, col: ranking.Quantity, sort: true},
			column{title: "Cost", width: 9},
			column{title: "Gain", width: 12, col: ranking.Gain, sort: true},
			column{title: "Gain %", width: 8, col: ranking.GainPercent, sort: true},
		)
	}
	if m.board.Combined() {
		cols = append(cols, column{title: "Portfolio", width: 16})
	}
	return cols
}

func (m model) renderSection(b *strings.Builder, s int, mk domain.Market) {
	style := sectionStyle
	marker := "  "
	if s == m.section {
		style = sectionHlStyle
		marker = "▸ "
	}
	b.WriteString(style.Render(marker+m.sectionTitle(mk)) + "\n")

	cols := m.columns()
	order := m.board.Order()
	var hdr strings.Builder
	for i, c := range cols {
		title := c.title
		if c.sort && c.col == order.Column {
			title += order.Direction.Arrow()
		}
		hdr.WriteString(align(title, c.width, i >= 2))
		hdr.WriteString(" ")
	}
	b.WriteString(colHeaderStyle.Render(hdr.String()) + "\n")

	rows := m.board.Rows(mk)
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  (no holdings)") + "\n")
		return
	}
	for i, r := range rows {
		hl := s == m.section && i == m.cursor[s]
		m.renderRow(b, r, cols, hl)
	}
}

func (m model) renderRow(b *strings.Builder, r dashboard.Row, cols []column, hl bool) {
	changeStyle := dimStyle
	if r.HasQuote {
		changeStyle = signStyle(r.Quote.ChangePercent)
	}
	for i, c := range cols {
		var text string
		style := lipgloss.NewStyle()
		switch c.title {
		case "Symbol":
			text = r.Display
		case "Name":
			text = dashboard.Truncate(r.Name, c.width)
		case "Price":
			text = dashboard.FormatPrice(r.Quote.Price, r.HasQuote)
			style = changeStyle
		case "Change":
			text = dashboard.FormatChange(r.Quote.ChangePercent, r.HasQuote)
			style = changeStyle
		case "Qty":
			text = dashboard.FormatQty(r.Quantity)
		case "Cost":
			text = fmt.Sprintf("%.1f", r.CostBasis)
		case "Gain":
			text = "-"
			if r.HasGain {
				text = fmt.Sprintf("%+.0f", r.Gain)
				style = signStyle(r.Gain)
			}
		case "Gain %":
			text = dashboard.FormatGainPercent(r.GainPercent, r.HasGain)
			if r.HasGain {
				style = signStyle(r.GainPercent)
			}
		case "Portfolio":
			text = r.Label()
			style = dimStyle
		}
		b.WriteString(hlStyle(style, hl).Render(align(text, c.width, i >= 2)))
		b.WriteString(hlStyle(lipgloss.NewStyle(), hl).Render(" "))
	}
	b.WriteString("\n")
}

func (m model) renderSummary(b *strings.Builder) {
	title := "Summary"
	if m.board.Combined() {
		title = "Combined Summary (All Portfolios)"
	}
	b.WriteString(sectionStyle.Render("  "+title) + "\n")

	updated := "never"
	if t := m.board.LastUpdate(); !t.IsZero() {
		updated = t.Local().Format("15:04:05")
	}
	line := dimStyle.Render(fmt.Sprintf("  Updated: %s  |  USD/TWD: %.2f", updated, m.board.Rate()))
	switch {
	case m.orch.Fetching():
		line += warnStyle.Render("  |  Refreshing...")
	case m.liveMode:
		remaining := m.cfg.UI.LiveInterval - time.Since(m.lastRefresh)
		if remaining < 0 {
			remaining = 0
		}
		line += gainStyle.Render(fmt.Sprintf("  |  LIVE (%ds)", int(remaining.Seconds())))
	}
	b.WriteString(line + "\n\n")

	if m.hidePositions {
		b.WriteString(warnStyle.Render("  Positions hidden (press H to show)") + "\n")
		return
	}
	s := m.board.Summary()
	cur := domain.PrimaryMarket.Currency()
	fmt.Fprintf(b, "  Total Cost:   %18s\n", dashboard.FormatMoney(s.TotalCost, cur))
	fmt.Fprintf(b, "  Total Value:  %18s\n", dashboard.FormatMoney(s.TotalValue, cur))
	b.WriteString("  Total Gain:   " + signStyle(s.TotalGain).Render(
		fmt.Sprintf("%18s (%+.2f%%)", dashboard.FormatSignedMoney(s.TotalGain, cur), s.GainPercent)) + "\n")
	fmt.Fprintf(b, "  Stocks: %d  |  Holdings: %d\n", s.Stocks, s.Holdings)
}

func (m model) renderForm() string {
	f := m.form
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title) + "\n\n")
	for i, label := range f.labels {
		marker := "  "
		if i == f.focus {
			marker = "▸ "
		}
		fmt.Fprintf(&b, "%s%-14s %s\n", marker, label+":", f.inputs[i].View())
	}
	if f.err != "" {
		b.WriteString("\n" + errStyle.Render(f.err))
	}
	return boxStyle.Render(b.String())
}

// ---------------------------------------------------------------------------
// Detail
// ---------------------------------------------------------------------------

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// sparkline scales closes into width block characters.
func sparkline(closes []float64, width int) string {
	if len(closes) == 0 || width <= 0 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range closes {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	n := len(closes)
	if width > n {
		width = n
	}
	out := make([]rune, width)
	for i := range out {
		c := closes[i*n/width]
		idx := 0
		if hi > lo {
			idx = int(math.Round((c - lo) / (hi - lo) * float64(len(sparkTicks)-1)))
		}
		out[i] = sparkTicks[idx]
	}
	return string(out)
}

func (m model) renderDetail() string {
	var row dashboard.Row
	for _, mk := range domain.Markets {
		for _, r := range m.board.Rows(mk) {
			if r.Symbol == m.detailSymbol {
				row = r
			}
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s - %s", row.Display, row.Name)) + "\n\n")

	series, ok := m.svc.CachedHistory(m.detailSymbol)
	style := dimStyle
	if row.HasQuote {
		style = signStyle(row.Quote.ChangePercent)
	}
	line := style.Render(dashboard.FormatPrice(row.Quote.Price, row.HasQuote) + "  " +
		dashboard.FormatChange(row.Quote.ChangePercent, row.HasQuote))
	if ok {
		line += fmt.Sprintf("  |  30d Trend: %s", series.Trend().Arrow())
	}
	b.WriteString(line + "\n")

	switch {
	case m.detailLoading:
		b.WriteString("\n" + dimStyle.Render("loading history...") + "\n")
	case !ok:
		b.WriteString("\n" + dimStyle.Render("no history available") + "\n")
	default:
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, c := range series.Closes {
			lo = math.Min(lo, c)
			hi = math.Max(hi, c)
			sum += c
		}
		avg := sum / float64(len(series.Closes))
		b.WriteString(gainStyle.Render(fmt.Sprintf("30-Day High: %.2f", hi)) + "  " +
			lossStyle.Render(fmt.Sprintf("Low: %.2f", lo)) + "  " +
			fmt.Sprintf("Avg: %.2f", avg) + "\n\n")

		width := m.width - 8
		if width > 60 {
			width = 60
		}
		b.WriteString(sectionStyle.Render(sparkline(series.Closes, width)) + "\n")
		first := time.Unix(series.Timestamps[0], 0).Format("01/02")
		last := time.Unix(series.Timestamps[len(series.Timestamps)-1], 0).Format("01/02")
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s … %s  (%d closes)", first, last, len(series.Closes))) + "\n")
	}
	return boxStyle.Render(b.String())
}

// align pads s to width, right-aligned when right is set, truncating if
// longer.
func align(s string, width int, right bool) string {
	n := lipgloss.Width(s)
	if n >= width {
		return dashboard.Truncate(s, width)
	}
	pad := strings.Repeat(" ", width-n)
	if right {
		return pad + s
	}
	return s + pad
}
