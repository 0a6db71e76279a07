// Package dayindex maps calendar dates to the positive day counts used as the
// independent variable of the trend regressions.
package dayindex

import (
	"math"
	"strings"
	"time"

	"TrendBands/internal/model"
)

// Epoch is the fixed reference date. Day 1 is the epoch itself.
var Epoch = time.Date(2009, time.January, 3, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

// Of returns the number of whole days elapsed since Epoch plus one,
// clamped to a minimum of 1.
func Of(t time.Time) float64 {
	d := model.TruncateDay(t)
	days := math.Floor(float64(d.Unix()-Epoch.Unix())/secondsPerDay) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Parse maps an ISO 8601 date (YYYY-MM-DD, optionally followed by a time
// part) to its day index. Malformed input yields NaN.
func Parse(s string) float64 {
	t, ok := ParseDate(s)
	if !ok {
		return math.NaN()
	}
	return Of(t)
}

// ParseDate parses the date portion of an ISO 8601 string.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(model.DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return model.TruncateDay(t), true
		}
		s = s[:len(model.DateLayout)]
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
