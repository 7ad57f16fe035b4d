package market

import (
	"sort"
	"time"
)

// PriceBar is one daily OHLCV row for a listed symbol. Date carries no time
// component; every bar is keyed by (Symbol, Date).
type PriceBar struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjclose"`
	Volume   float64   `json:"volume"`
}

// BarKey identifies a bar inside a price table.
type BarKey struct {
	Symbol string
	Date   time.Time
}

func (b PriceBar) Key() BarKey {
	return BarKey{Symbol: b.Symbol, Date: b.Date}
}

// Day truncates t to a calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses the feed's YYYY/MM/DD date format.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006/01/02", s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// SortBars orders bars by (symbol, date) ascending. Storage order of price
// tables is irrelevant; date is the sort key for all analysis.
func SortBars(bars []PriceBar) {
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Date.Before(bars[j].Date)
	})
}

// FilterSymbol returns the bars of one symbol ordered by date ascending.
func FilterSymbol(bars []PriceBar, symbol string) []PriceBar {
	var out []PriceBar
	for _, b := range bars {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
