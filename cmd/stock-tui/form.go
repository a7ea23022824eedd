package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stocktui/internal/domain"
	"stocktui/internal/portfolio"
)

type formKind int

const (
	formAdd formKind = iota
	formEdit
	formPortfolio
)

// form is a small stack of labelled text inputs.
type form struct {
	kind   formKind
	title  string
	symbol string // edit target
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
}

func newForm(kind formKind, title string, labels ...string) *form {
	f := &form{kind: kind, title: title, labels: labels}
	for range labels {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 64
		ti.Width = 32
		f.inputs = append(f.inputs, ti)
	}
	f.inputs[0].Focus()
	return f
}

func newAddForm() *form {
	f := newForm(formAdd, "Add Holding", "Symbol", "Display name", "Description", "Quantity", "Cost basis")
	f.inputs[0].Placeholder = "2330 or AAPL"
	f.inputs[1].Placeholder = "defaults to symbol"
	f.inputs[2].Placeholder = "defaults to symbol"
	f.inputs[3].Placeholder = "0"
	f.inputs[4].Placeholder = "0"
	return f
}

func newEditForm(h domain.Holding) *form {
	f := newForm(formEdit, "Edit "+h.Symbol, "Quantity", "Cost basis")
	f.symbol = h.Symbol
	f.inputs[0].SetValue(strconv.FormatFloat(h.Quantity, 'f', -1, 64))
	f.inputs[1].SetValue(strconv.FormatFloat(h.CostBasis, 'f', -1, 64))
	return f
}

func newPortfolioForm() *form {
	f := newForm(formPortfolio, "New Portfolio", "Name")
	f.inputs[0].Placeholder = "e.g. ira"
	return f
}

func (f *form) focusCmd() tea.Cmd { return textinput.Blink }

func (f *form) last() bool { return f.focus == len(f.inputs)-1 }

func (f *form) setFocus(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *form) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	f.err = ""
	return cmd
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// parseAmount reads an optional non-negative number.
func parseAmount(label, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a non-negative number", strings.ToLower(label))
	}
	return v, nil
}

// holding builds the holding entered in an add form.
func (f *form) holding() (domain.Holding, error) {
	if f.value(0) == "" {
		return domain.Holding{}, fmt.Errorf("symbol is required")
	}
	if strings.ContainsRune(f.value(0)+f.value(1)+f.value(2), '|') {
		return domain.Holding{}, fmt.Errorf("fields may not contain '|'")
	}
	qty, err := parseAmount(f.labels[3], f.value(3))
	if err != nil {
		return domain.Holding{}, err
	}
	cost, err := parseAmount(f.labels[4], f.value(4))
	if err != nil {
		return domain.Holding{}, err
	}
	return portfolio.NewHolding(f.value(0), f.value(1), f.value(2), qty, cost), nil
}

// amounts returns quantity and cost basis from an edit form.
func (f *form) amounts() (float64, float64, error) {
	qty, err := parseAmount(f.labels[0], f.value(0))
	if err != nil {
		return 0, 0, err
	}
	cost, err := parseAmount(f.labels[1], f.value(1))
	if err != nil {
		return 0, 0, err
	}
	return qty, cost, nil
}
