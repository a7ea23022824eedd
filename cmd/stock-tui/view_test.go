package main

import (
	"testing"
	"unicode/utf8"
)

func TestSparkline(t *testing.T) {
	got := sparkline([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 8)
	if got != "▁▂▃▄▅▆▇█" {
		t.Errorf("sparkline = %q", got)
	}
	if got := sparkline([]float64{5, 5, 5}, 10); got != "▁▁▁" {
		t.Errorf("flat sparkline = %q", got)
	}
	if got := sparkline(make([]float64, 100), 20); utf8.RuneCountInString(got) != 20 {
		t.Errorf("sparkline width = %d", utf8.RuneCountInString(got))
	}
	if sparkline(nil, 10) != "" {
		t.Error("empty series should render nothing")
	}
}

func TestAlign(t *testing.T) {
	if got := align("ab", 5, true); got != "   ab" {
		t.Errorf("right align = %q", got)
	}
	if got := align("ab", 5, false); got != "ab   " {
		t.Errorf("left align = %q", got)
	}
	if got := align("abcdef", 3, false); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
