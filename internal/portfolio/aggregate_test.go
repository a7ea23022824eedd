package portfolio

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"stocktui/internal/domain"
)

func portfolioFile(t *testing.T, dir, name, content string) domain.Portfolio {
	t.Helper()
	path := filepath.Join(dir, name+".conf")
	writeFile(t, path, content)
	return domain.Portfolio{Name: name, Path: path}
}

func TestAggregateWeightedCost(t *testing.T) {
	dir := t.TempDir()
	ps := []domain.Portfolio{
		portfolioFile(t, dir, "main", "AAPL|Apple|Apple Inc.|10|100\n2330.TW|TSMC|TSMC|1000|500\n"),
		portfolioFile(t, dir, "ira", "AAPL|Apple (IRA)|Other desc|30|140\n"),
	}
	got, err := Aggregate(ps)
	if err != nil {
		t.Fatal(err)
	}

	aapl := got["AAPL"]
	if aapl.Quantity != 40 || aapl.CostBasis != 130 {
		t.Errorf("AAPL = %v @ %v, want 40 @ 130", aapl.Quantity, aapl.CostBasis)
	}
	if aapl.Display != "Apple" || aapl.Name != "Apple Inc." {
		t.Errorf("first encounter should keep display and name, got %q / %q", aapl.Display, aapl.Name)
	}
	if aapl.Label() != "main+ira" {
		t.Errorf("Label = %q, want main+ira", aapl.Label())
	}
	if tw := got["2330.TW"]; tw.Label() != "main" || tw.Quantity != 1000 {
		t.Errorf("2330.TW = %+v", tw)
	}
}

func TestAggregateZeroQuantity(t *testing.T) {
	dir := t.TempDir()
	ps := []domain.Portfolio{
		portfolioFile(t, dir, "a", "AAPL|Apple|Apple|0|100\n"),
		portfolioFile(t, dir, "b", "AAPL|Apple|Apple|0|200\n"),
	}
	got, err := Aggregate(ps)
	if err != nil {
		t.Fatal(err)
	}
	if p := got["AAPL"]; p.Quantity != 0 || p.CostBasis != 0 {
		t.Errorf("zero-quantity aggregate = %v @ %v, want 0 @ 0", p.Quantity, p.CostBasis)
	}
}

func TestAggregateZeroQuantityAmongOthers(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		qty, avg float64
	}{
		{"zero first", []string{"AAPL|Apple|Apple|0|999\n", "AAPL|Apple|Apple|10|100\n"}, 10, 100},
		{"zero last", []string{"AAPL|Apple|Apple|10|100\n", "AAPL|Apple|Apple|0|999\n"}, 10, 100},
		{"zero between", []string{"AAPL|Apple|Apple|10|100\n", "AAPL|Apple|Apple|0|5\n", "AAPL|Apple|Apple|30|140\n"}, 40, 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			var ps []domain.Portfolio
			for i, content := range tt.files {
				ps = append(ps, portfolioFile(t, dir, string(rune('a'+i)), content))
			}
			got, err := Aggregate(ps)
			if err != nil {
				t.Fatal(err)
			}
			p := got["AAPL"]
			if p.Quantity != tt.qty || p.CostBasis != tt.avg {
				t.Errorf("AAPL = %v @ %v, want %v @ %v", p.Quantity, p.CostBasis, tt.qty, tt.avg)
			}
			if len(p.Sources) != len(tt.files) {
				t.Errorf("Sources = %v, every line should be listed", p.Sources)
			}
		})
	}
}

func TestAggregateDuplicateLinesInOneFile(t *testing.T) {
	dir := t.TempDir()
	ps := []domain.Portfolio{
		portfolioFile(t, dir, "main", "AAPL|Apple|Apple|1|10\nAAPL|Apple|Apple|1|20\n"),
		portfolioFile(t, dir, "ira", "AAPL|Apple|Apple|2|30\n"),
	}
	got, err := Aggregate(ps)
	if err != nil {
		t.Fatal(err)
	}
	p := got["AAPL"]
	if p.Quantity != 4 || p.CostBasis != 22.5 {
		t.Errorf("AAPL = %v @ %v, want 4 @ 22.5", p.Quantity, p.CostBasis)
	}
	if p.Label() != "main+main+ira" {
		t.Errorf("Label = %q", p.Label())
	}
}

func TestAggregateIdempotent(t *testing.T) {
	dir := t.TempDir()
	ps := []domain.Portfolio{
		portfolioFile(t, dir, "main", "AAPL|Apple|Apple|0.1|33.3\nMSFT|MS|MS|7|311.17\n"),
		portfolioFile(t, dir, "ira", "AAPL|Apple|Apple|0.2|66.7\nMSFT|MS|MS|0.3|299.99\n"),
		portfolioFile(t, dir, "kids", "AAPL|Apple|Apple|0.7|12.01\n"),
	}
	first, err := Aggregate(ps)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Aggregate(ps)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}

	// Summation order does not change the numbers.
	reversed := []domain.Portfolio{ps[2], ps[1], ps[0]}
	rev, err := Aggregate(reversed)
	if err != nil {
		t.Fatal(err)
	}
	for sym, p := range first {
		if rev[sym].Quantity != p.Quantity || rev[sym].CostBasis != p.CostBasis {
			t.Errorf("%s: %v @ %v vs reversed %v @ %v", sym, p.Quantity, p.CostBasis, rev[sym].Quantity, rev[sym].CostBasis)
		}
	}
}

func TestAggregateMissingFile(t *testing.T) {
	ps := []domain.Portfolio{{Name: "ghost", Path: filepath.Join(t.TempDir(), "ghost.conf")}}
	got, err := Aggregate(ps)
	if err != nil || len(got) != 0 {
		t.Errorf("Aggregate(missing) = %v, %v", got, err)
	}
}

func TestAggregateLoadError(t *testing.T) {
	// A directory in place of the file is a read error that must propagate.
	ps := []domain.Portfolio{{Name: "bad", Path: t.TempDir()}}
	if _, err := Aggregate(ps); err == nil {
		t.Error("expected load error to propagate")
	}
}

func TestPositionsSorted(t *testing.T) {
	m := map[string]domain.Position{
		"MSFT":    {Holding: domain.Holding{Symbol: "MSFT"}},
		"2330.TW": {Holding: domain.Holding{Symbol: "2330.TW"}},
		"AAPL":    {Holding: domain.Holding{Symbol: "AAPL"}},
	}
	got := Positions(m)
	if got[0].Symbol != "2330.TW" || got[1].Symbol != "AAPL" || got[2].Symbol != "MSFT" {
		t.Errorf("Positions order = %v", got)
	}
}

func TestWatchNotifiesOnConfChange(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := Watch(ctx, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "main.conf"), "AAPL|Apple|Apple|1|1\n")

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification for .conf write")
	}

	cancel()
	for range events {
	}
}
