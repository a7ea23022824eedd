package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatPrice formats a price with two decimals, or "-" when unknown.
func FormatPrice(p float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}

// FormatChange formats a daily change percentage with a direction arrow.
func FormatChange(pct float64, ok bool) string {
	if !ok {
		return "-"
	}
	arrow := "↑"
	if pct < 0 {
		arrow = "↓"
	}
	return fmt.Sprintf("%s%.1f%%", arrow, math.Abs(pct))
}

// FormatQty drops the fraction for whole quantities.
func FormatQty(q float64) string {
	if q == math.Trunc(q) && math.Abs(q) < 1e15 {
		return FormatInt(int64(q))
	}
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// FormatMoney renders amount in the currency's own notation, e.g. $1,234.50.
// Unknown currency codes fall back to "<amount> <code>".
func FormatMoney(amount float64, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatSignedMoney is FormatMoney with an explicit "+" for gains.
func FormatSignedMoney(amount float64, code string) string {
	s := FormatMoney(amount, code)
	if amount > 0 {
		return "+" + s
	}
	return s
}

// FormatGainPercent formats a gain percentage as "+X.X%".
func FormatGainPercent(pct float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
