package util

import (
	"time"

	"stocktui/internal/domain"
)

// TradingCalendar provides market-hours awareness for a specific market.
// Holidays are not modelled.
type TradingCalendar struct {
	market domain.Market
	loc    *time.Location
	open   time.Duration // offset from local midnight
	close  time.Duration
}

// NewTradingCalendar creates a TradingCalendar for the given market: TW
// trades 09:00-13:30 Asia/Taipei, US 09:30-16:00 America/New_York.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	tc := &TradingCalendar{market: market}
	if market == domain.MarketTW {
		tc.loc = loadLocation("Asia/Taipei", 8*60*60)
		tc.open = 9 * time.Hour
		tc.close = 13*time.Hour + 30*time.Minute
	} else {
		tc.loc = loadLocation("America/New_York", -5*60*60)
		tc.open = 9*time.Hour + 30*time.Minute
		tc.close = 16 * time.Hour
	}
	return tc
}

// loadLocation falls back to a fixed offset when tzdata is unavailable.
func loadLocation(name string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, offset)
	}
	return loc
}

// Market returns the market this calendar describes.
func (tc *TradingCalendar) Market() domain.Market { return tc.market }

// IsMarketOpen returns whether the market is in its regular session at t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	local := t.In(tc.loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tc.loc)
	since := local.Sub(midnight)
	return since >= tc.open && since < tc.close
}

// NextOpen returns the next session open at or after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	local := t.In(tc.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tc.loc)
	for i := 0; i < 8; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		open := d.Add(tc.open)
		if !open.Before(local) {
			return open
		}
	}
	return time.Time{}
}
