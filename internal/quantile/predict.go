package quantile

import (
	"time"

	"TrendBands/internal/dayindex"
)

// PredictDay evaluates c at a day index. It reports false when the curve or
// the day is not finite, or when the result would not be finite; callers
// never see NaN or Inf.
func PredictDay(c Curve, day float64) (float64, bool) {
	if c == nil || !c.Valid() || !finite(day) {
		return 0, false
	}
	v := c.Value(day)
	if !finite(v) {
		return 0, false
	}
	return v, true
}

// Predict evaluates c at a calendar date. Dates past the last training sample
// are extrapolated with the same formula.
func Predict(c Curve, date time.Time) (float64, bool) {
	return PredictDay(c, dayindex.Of(date))
}

// PredictString evaluates c at an ISO 8601 date string. Malformed dates
// report false.
func PredictString(c Curve, date string) (float64, bool) {
	return PredictDay(c, dayindex.Parse(date))
}
