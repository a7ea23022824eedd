package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"stocktui/internal/config"
	"stocktui/internal/dashboard"
	"stocktui/internal/domain"
	"stocktui/internal/portfolio"
	"stocktui/internal/quote"
	"stocktui/internal/ranking"
	"stocktui/internal/refresh"
	"stocktui/internal/util"
)

// Messages.
type tickMsg time.Time

type historyLoadedMsg struct {
	symbol string
	series domain.HistoricalSeries
	ok     bool
}

type portfoliosChangedMsg struct{}

// refreshRequestMsg asks Update to start a background batch.
type refreshRequestMsg struct{}

type mode int

const (
	modeNormal mode = iota
	modeForm
	modeConfirmDelete
	modeDetail
)

// Model.
type model struct {
	ctx    context.Context
	cfg    *config.Config
	store  *portfolio.Store
	board  *dashboard.Board
	svc    *quote.Service
	orch   *refresh.Orchestrator
	logger *slog.Logger

	changes   <-chan struct{}
	demo      bool
	calendars []*util.TradingCalendar

	// Navigation.
	section int    // index into domain.Markets
	cursor  [2]int // per section

	// Toggles.
	hidePositions  bool
	showGainAmount bool
	liveMode       bool
	lastRefresh    time.Time

	// A refresh asked for while a batch was running; it runs once the
	// batch completes.
	pending      bool
	pendingForce bool
	batched      map[string]bool // symbols of the running or last batch

	mode          mode
	form          *form
	deleteSymbol  string
	detailSymbol  string
	detailLoading bool

	status string

	viewport      viewport.Model
	ready         bool
	width, height int
}

func newModel(ctx context.Context, cfg *config.Config, store *portfolio.Store, board *dashboard.Board,
	svc *quote.Service, orch *refresh.Orchestrator, changes <-chan struct{}, demo bool, logger *slog.Logger) model {
	cals := make([]*util.TradingCalendar, len(domain.Markets))
	for i, mk := range domain.Markets {
		cals[i] = util.NewTradingCalendar(mk)
	}
	return model{
		ctx:            ctx,
		cfg:            cfg,
		store:          store,
		board:          board,
		svc:            svc,
		orch:           orch,
		logger:         logger,
		changes:        changes,
		demo:           demo,
		calendars:      cals,
		showGainAmount: true,
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.UI.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks on the watcher channel inside a command.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return portfoliosChangedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return refreshRequestMsg{} },
		m.tickCmd(),
		waitForChange(m.changes),
	)
}

// startRefresh launches a background batch for the visible symbols. force
// drops the in-process cache tiers first. While a batch is running the
// request is queued instead.
func (m *model) startRefresh(force bool) {
	if m.orch.Fetching() {
		m.pending = true
		m.pendingForce = m.pendingForce || force
		return
	}
	if force {
		m.svc.InvalidateAll()
	}
	symbols := m.board.Symbols()
	if m.orch.Start(m.ctx, symbols) {
		m.lastRefresh = time.Now()
		m.batched = make(map[string]bool, len(symbols))
		for _, sym := range symbols {
			m.batched[sym] = true
		}
	}
}

// followUp runs after a batch completes. It starts the queued refresh, or a
// new batch when the view now shows symbols the finished batch never asked
// for. Symbols that were fetched and failed are left for the next refresh.
func (m *model) followUp() {
	need, force := m.pending, m.pendingForce
	m.pending, m.pendingForce = false, false
	if !need {
		for _, sym := range m.board.Symbols() {
			if _, ok := m.board.Quote(sym); !ok && !m.batched[sym] {
				need = true
				break
			}
		}
	}
	if need {
		m.logger.Debug("follow-up refresh", "force", force)
		m.startRefresh(force)
	}
}

func (m *model) reload() {
	if err := m.board.Reload(m.ctx, false); err != nil {
		m.logger.Error("reloading holdings", "error", err)
		m.status = err.Error()
	}
}

func (m *model) rediscover() {
	if m.demo {
		return
	}
	ps, err := m.store.Discover()
	if err != nil {
		m.logger.Error("discovering portfolios", "error", err)
		m.status = err.Error()
		return
	}
	m.board.SetPortfolios(ps)
}

func (m *model) refreshContent() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		case modeDetail:
			switch msg.String() {
			case "esc", "enter", "q":
				m.mode = modeNormal
				m.detailSymbol = ""
				m.refreshContent()
			}
			return m, nil
		}
		return m.updateNormal(msg)

	case tea.MouseMsg:
		if m.mode == modeDetail && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.mode = modeNormal
			m.refreshContent()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 2
		footerH := 1
		vpHeight := m.height - headerH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshContent()
		return m, nil

	case refreshRequestMsg:
		m.startRefresh(false)
		m.refreshContent()
		return m, nil

	case tickMsg:
		wasFetching := m.orch.Fetching()
		for _, r := range m.orch.Poll() {
			m.board.Apply(r)
		}
		if wasFetching && !m.orch.Fetching() {
			m.followUp()
		}
		if m.liveMode && !m.orch.Fetching() && time.Since(m.lastRefresh) >= m.cfg.UI.LiveInterval {
			m.startRefresh(true)
		}
		m.refreshContent()
		return m, m.tickCmd()

	case historyLoadedMsg:
		if msg.ok {
			m.svc.AdoptHistory(msg.series)
		} else {
			m.logger.Warn("history unavailable", "symbol", msg.symbol)
		}
		if msg.symbol == m.detailSymbol {
			m.detailLoading = false
		}
		return m, nil

	case portfoliosChangedMsg:
		m.rediscover()
		m.reload()
		m.startRefresh(false)
		m.refreshContent()
		return m, waitForChange(m.changes)
	}

	if m.ready && m.mode == modeNormal {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit

	case "0":
		m.board.ShowCombined()
		m.cursor = [2]int{}
		m.startRefresh(false)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i, _ := strconv.Atoi(key)
		m.switchTo(i - 1)
	case "left", "h":
		m.cyclePortfolio(-1)
	case "right", "l":
		m.cyclePortfolio(1)

	case "tab":
		m.section = (m.section + 1) % len(domain.Markets)
	case "up", "k":
		if m.cursor[m.section] > 0 {
			m.cursor[m.section]--
		}
	case "down", "j":
		if m.cursor[m.section] < len(m.currentRows())-1 {
			m.cursor[m.section]++
		}

	case "r":
		m.startRefresh(true)

	case "p", "f1":
		m.board.SortBy(ranking.Price)
	case "c", "f2":
		m.board.SortBy(ranking.Change)
	case "y", "f3":
		m.board.SortBy(ranking.Quantity)
	case "g", "f4":
		m.board.SortBy(ranking.Gain)
	case "G", "f5":
		m.board.SortBy(ranking.GainPercent)

	case "H":
		m.hidePositions = !m.hidePositions
	case "L":
		m.liveMode = !m.liveMode
		if m.liveMode {
			m.startRefresh(true)
		}
	case "T":
		m.showGainAmount = !m.showGainAmount

	case "enter":
		return m.openDetail()

	case "a":
		if m.editable() {
			m.form = newAddForm()
			m.mode = modeForm
			return m, m.form.focusCmd()
		}
	case "e":
		if row, ok := m.selectedRow(); ok && m.editable() {
			m.form = newEditForm(row.Holding)
			m.mode = modeForm
			return m, m.form.focusCmd()
		}
	case "d":
		if row, ok := m.selectedRow(); ok && m.editable() {
			m.deleteSymbol = row.Symbol
			m.mode = modeConfirmDelete
		}
	case "n":
		if !m.demo {
			m.form = newPortfolioForm()
			m.mode = modeForm
			return m, m.form.focusCmd()
		}

	default:
		var cmd tea.Cmd
		if m.ready {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd
	}

	m.clampCursor()
	m.refreshContent()
	return m, nil
}

// editable reports whether holding edits apply: the combined view is
// read-only.
func (m *model) editable() bool {
	if m.board.Combined() {
		m.status = "switch to a portfolio (1-9) to edit holdings"
		return false
	}
	return true
}

func (m *model) switchTo(i int) {
	if i >= len(m.board.Portfolios()) {
		return
	}
	if err := m.board.SwitchPortfolio(m.ctx, i); err != nil {
		m.logger.Error("switching portfolio", "index", i, "error", err)
		m.status = err.Error()
		return
	}
	m.cursor = [2]int{}
	m.startRefresh(false)
}

// cyclePortfolio moves through combined, 1, 2, ... and wraps.
func (m *model) cyclePortfolio(delta int) {
	n := len(m.board.Portfolios())
	pos := m.board.CurrentIndex() + 1
	if m.board.Combined() {
		pos = 0
	}
	pos = ((pos+delta)%(n+1) + n + 1) % (n + 1)
	if pos == 0 {
		m.board.ShowCombined()
		m.cursor = [2]int{}
		m.startRefresh(false)
		return
	}
	m.switchTo(pos - 1)
}

func (m *model) currentRows() []dashboard.Row {
	return m.board.Rows(domain.Markets[m.section])
}

func (m *model) selectedRow() (dashboard.Row, bool) {
	rows := m.currentRows()
	i := m.cursor[m.section]
	if i < 0 || i >= len(rows) {
		return dashboard.Row{}, false
	}
	return rows[i], true
}

func (m *model) clampCursor() {
	for s, mk := range domain.Markets {
		n := len(m.board.Rows(mk))
		if m.cursor[s] >= n {
			m.cursor[s] = n - 1
		}
		if m.cursor[s] < 0 {
			m.cursor[s] = 0
		}
	}
}

func (m model) openDetail() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	m.mode = modeDetail
	m.detailSymbol = row.Symbol
	if _, ok := m.svc.CachedHistory(row.Symbol); ok {
		m.detailLoading = false
		return m, nil
	}
	m.detailLoading = true
	fetcher := m.svc.Fetcher()
	ctx := m.ctx
	sym := row.Symbol
	return m, func() tea.Msg {
		s, ok := fetcher.FetchHistory(ctx, sym)
		return historyLoadedMsg{symbol: sym, series: s, ok: ok}
	}
}

// ---------------------------------------------------------------------------
// Forms
// ---------------------------------------------------------------------------

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.form = nil
		return m, nil
	case "tab", "down":
		return m, m.form.next()
	case "shift+tab", "up":
		return m, m.form.prev()
	case "enter":
		if !m.form.last() {
			return m, m.form.next()
		}
		if err := m.submitForm(); err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.mode = modeNormal
		m.form = nil
		m.clampCursor()
		m.refreshContent()
		return m, nil
	}
	return m, m.form.update(msg)
}

func (m *model) submitForm() error {
	p, _ := m.board.Current()
	switch m.form.kind {
	case formAdd:
		h, err := m.form.holding()
		if err != nil {
			return err
		}
		if err := portfolio.Add(p.Path, h); err != nil {
			return err
		}
		m.logger.Info("holding added", "portfolio", p.Name, "symbol", h.Symbol)
	case formEdit:
		qty, cost, err := m.form.amounts()
		if err != nil {
			return err
		}
		if err := portfolio.Edit(p.Path, m.form.symbol, qty, cost); err != nil {
			return err
		}
		m.logger.Info("holding edited", "portfolio", p.Name, "symbol", m.form.symbol)
	case formPortfolio:
		created, err := m.store.Create(m.form.value(0))
		if err != nil {
			return err
		}
		m.logger.Info("portfolio created", "name", created.Name)
		m.rediscover()
		for i, q := range m.board.Portfolios() {
			if q.Name == created.Name {
				m.switchTo(i)
				return nil
			}
		}
		return nil
	}
	m.reload()
	m.startRefresh(false)
	return nil
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		p, _ := m.board.Current()
		if err := portfolio.Delete(p.Path, m.deleteSymbol); err != nil {
			m.logger.Error("deleting holding", "symbol", m.deleteSymbol, "error", err)
			m.status = err.Error()
		} else {
			m.logger.Info("holding deleted", "portfolio", p.Name, "symbol", m.deleteSymbol)
			m.reload()
		}
		m.mode = modeNormal
		m.deleteSymbol = ""
		m.clampCursor()
		m.refreshContent()
	case "n", "N", "esc":
		m.mode = modeNormal
		m.deleteSymbol = ""
	}
	return m, nil
}
