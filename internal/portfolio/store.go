// Package portfolio reads and writes holding files, discovers portfolios and
// merges holdings of the same symbol across portfolios.
package portfolio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"stocktui/internal/domain"
)

const (
	// Ext is the file extension of holding files.
	Ext = ".conf"
	// MainName is the portfolio listed first and created when none exist.
	MainName = "main"
	// DemoName is the single portfolio shown in demo mode.
	DemoName = "demo"

	header = "# Stock Portfolio Configuration\n# Format: SYMBOL|Display Name|Description|Quantity|Cost Basis\n"
)

var (
	ErrExists      = errors.New("portfolio already exists")
	ErrInvalidName = errors.New("invalid portfolio name")
	ErrNotFound    = errors.New("holding not found")
)

// ---------------------------------------------------------------------------
// Holding files
// ---------------------------------------------------------------------------

// Load parses a holding file. A missing file is an empty portfolio. Blank
// lines, comments and lines with fewer than three fields are skipped.
func Load(path string) ([]domain.Holding, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data), nil
}

// Parse decodes holding lines of the form
// SYMBOL|Display|Description|Quantity|CostBasis.
func Parse(data []byte) []domain.Holding {
	var holdings []domain.Holding
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		h := domain.Holding{
			Symbol:  strings.TrimSpace(parts[0]),
			Display: strings.TrimSpace(parts[1]),
			Name:    strings.TrimSpace(parts[2]),
		}
		if len(parts) > 3 {
			h.Quantity = parseAmount(parts[3])
		}
		if len(parts) > 4 {
			h.CostBasis = parseAmount(parts[4])
		}
		holdings = append(holdings, h)
	}
	return holdings
}

// parseAmount returns 0 for anything that is not a finite, non-negative
// number.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Format renders holdings grouped into a Taiwan and a US section. Relative
// order within each section is preserved.
func Format(holdings []domain.Holding) []byte {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteString("\n")

	var tw, us []domain.Holding
	for _, h := range holdings {
		if h.Market() == domain.MarketTW {
			tw = append(tw, h)
		} else {
			us = append(us, h)
		}
	}

	if len(tw) > 0 {
		buf.WriteString("# Taiwan Stocks\n")
		for _, h := range tw {
			writeLine(&buf, h)
		}
		buf.WriteString("\n")
	}
	if len(us) > 0 {
		buf.WriteString("# US Stocks\n")
		for _, h := range us {
			writeLine(&buf, h)
		}
	}
	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, h domain.Holding) {
	fmt.Fprintf(buf, "%s|%s|%s|%s|%s\n", h.Symbol, h.Display, h.Name,
		strconv.FormatFloat(h.Quantity, 'f', -1, 64),
		strconv.FormatFloat(h.CostBasis, 'f', -1, 64))
}

// Save rewrites the holding file at path.
func Save(path string, holdings []domain.Holding) error {
	if err := os.WriteFile(path, Format(holdings), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Add appends a holding to the file at path.
func Add(path string, h domain.Holding) error {
	holdings, err := Load(path)
	if err != nil {
		return err
	}
	return Save(path, append(holdings, h))
}

// Edit updates quantity and cost basis of the first holding with symbol.
func Edit(path, symbol string, quantity, costBasis float64) error {
	holdings, err := Load(path)
	if err != nil {
		return err
	}
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			holdings[i].Quantity = quantity
			holdings[i].CostBasis = costBasis
			return Save(path, holdings)
		}
	}
	return fmt.Errorf("%s: %w", symbol, ErrNotFound)
}

// Delete removes every holding with symbol.
func Delete(path, symbol string) error {
	holdings, err := Load(path)
	if err != nil {
		return err
	}
	kept := holdings[:0]
	for _, h := range holdings {
		if h.Symbol != symbol {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(holdings) {
		return fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	return Save(path, kept)
}

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

var twCode = regexp.MustCompile(`^[0-9]{4,6}$`)

// NormalizeSymbol upper-cases the symbol and qualifies bare 4-6 digit codes
// as Taiwan listings.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if twCode.MatchString(s) {
		s += ".TW"
	}
	return s
}

// NewHolding builds a holding from form input, filling in defaults for the
// display and description fields.
func NewHolding(symbol, display, name string, quantity, costBasis float64) domain.Holding {
	sym := NormalizeSymbol(symbol)
	display = strings.TrimSpace(display)
	if display == "" {
		display = strings.TrimSuffix(sym, ".TW")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = sym
	}
	return domain.Holding{
		Symbol:    sym,
		Display:   display,
		Name:      name,
		Quantity:  math.Max(quantity, 0),
		CostBasis: math.Max(costBasis, 0),
	}
}

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

// Store manages the portfolio directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the portfolio directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path for a portfolio name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Ext)
}

// Discover lists the portfolios in the directory, "main" first and the rest
// alphabetically. The directory is created if absent, and an empty main
// portfolio is created when there are none.
func (s *Store) Discover() ([]domain.Portfolio, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.dir, err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.dir, err)
	}

	var out []domain.Portfolio
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		name := strings.TrimSuffix(e.Name(), Ext)
		out = append(out, domain.Portfolio{Name: name, Path: filepath.Join(s.dir, e.Name())})
	}
	SortPortfolios(out)

	if len(out) == 0 {
		path := s.Path(MainName)
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		s.log.Info("created main portfolio", "path", path)
		out = append(out, domain.Portfolio{Name: MainName, Path: path})
	}
	return out, nil
}

// SortPortfolios orders portfolios with "main" first, then by name.
func SortPortfolios(ps []domain.Portfolio) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i].Name, ps[j].Name
		if a == MainName || b == MainName {
			return a == MainName && b != MainName
		}
		return a < b
	})
}

// Create writes an empty portfolio file. Existing names and names that are
// not a plain file stem are refused.
func (s *Store) Create(name string) (domain.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return domain.Portfolio{}, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.Portfolio{}, err
	}
	path := s.Path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return domain.Portfolio{}, fmt.Errorf("%q: %w", name, ErrExists)
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(header); err != nil {
		return domain.Portfolio{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return domain.Portfolio{Name: name, Path: path}, nil
}

// Demo locates demo.conf next to the executable, falling back to the working
// directory. ok is false when neither exists.
func Demo() (domain.Portfolio, bool) {
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), DemoName+Ext))
	}
	candidates = append(candidates, DemoName+Ext)
	return findDemo(candidates)
}

func findDemo(candidates []string) (domain.Portfolio, bool) {
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return domain.Portfolio{Name: DemoName, Path: p}, true
		}
	}
	return domain.Portfolio{}, false
}
