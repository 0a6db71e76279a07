package model

import (
	"math"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for row keys.
const DateLayout = "2006-01-02"

// PricePoint is a single daily close returned by a price provider.
type PricePoint struct {
	Time  time.Time
	Close float64
}

// PriceRow holds the daily closes of one date across currencies.
// A currency absent from Closes has no observation for that date.
type PriceRow struct {
	Date   time.Time
	Closes map[string]float64
}

// Close returns the close for currency or NaN when there is none.
func (r PriceRow) Close(currency string) float64 {
	if v, ok := r.Closes[currency]; ok {
		return v
	}
	return math.NaN()
}

// Key returns the row's date formatted with DateLayout.
func (r PriceRow) Key() string {
	return r.Date.Format(DateLayout)
}

// TruncateDay returns t as a UTC calendar date at midnight.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
