package assembler

import (
	"math"
	"time"

	"TrendBands/internal/calculator"
	"TrendBands/internal/model"
	"TrendBands/internal/quantile"
)

const rsiPeriod = 14

// Latest returns the band snapshot of the last row carrying a close for
// currency. It reports false when no such row exists.
func (s *Series) Latest(currency string) (model.BandSnapshot, bool) {
	closeCol := model.CloseColumn(currency)
	for i := len(s.Rows) - 1; i >= 0; i-- {
		if s.Rows[i].Cell(closeCol).Ok() {
			return s.snapshot(currency, i), true
		}
	}
	return model.BandSnapshot{}, false
}

func (s *Series) snapshot(currency string, i int) model.BandSnapshot {
	row := s.Rows[i]
	lo, hi := outerIndexes(s.quantiles)
	mid := medianIndex(s.quantiles)

	value := func(col string) float64 {
		if v, ok := row.Cell(col).Get(); ok {
			return v
		}
		return math.NaN()
	}
	band := func(idx int) float64 {
		if idx < 0 {
			return math.NaN()
		}
		return value(model.BandColumn(s.quantiles[idx], currency))
	}

	rsi, err := calculator.CalculateRSI(s.closes[currency][:i+1], rsiPeriod)
	if err != nil {
		rsi = math.NaN()
	}
	return model.BandSnapshot{
		Currency: currency,
		Date:     row.Date,
		Price:    value(model.CloseColumn(currency)),
		Lower:    band(lo),
		Median:   band(mid),
		Upper:    band(hi),
		Position: value(model.PositionColumn(currency)),
		RSI:      rsi,
	}
}

// Projection is the predicted band of one future date. Values are ordered
// as the assembler's quantiles; unavailable predictions are NaN.
type Projection struct {
	Date   time.Time
	Values []float64
}

// Project predicts the bands of currency for days consecutive dates starting
// at from. It returns nil when the currency has no usable fit.
func (s *Series) Project(currency string, from time.Time, days int) []Projection {
	cb, ok := s.Bands[currency]
	if !ok || !cb.Valid() || days <= 0 {
		return nil
	}
	start := model.TruncateDay(from)
	out := make([]Projection, days)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		values := make([]float64, len(cb.Bands))
		for j, b := range cb.Bands {
			v, ok := quantile.Predict(b.Curve, date)
			if !ok {
				v = math.NaN()
			}
			values[j] = v
		}
		out[d] = Projection{Date: date, Values: values}
	}
	return out
}

// Carry appends stored columns that fall outside the configured layout,
// keeping their values as stored cells so a save does not drop them.
func (s *Series) Carry(columns []string, stored map[string]map[string]float64) {
	known := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		known[col] = true
	}
	var extra []string
	for _, col := range columns {
		if !known[col] {
			known[col] = true
			extra = append(extra, col)
		}
	}
	if len(extra) == 0 {
		return
	}
	s.Columns = append(s.Columns, extra...)
	for i := range s.Rows {
		have := stored[s.Rows[i].Date.Format(model.DateLayout)]
		for _, col := range extra {
			if v, ok := have[col]; ok {
				s.Rows[i].Cells[col] = model.StoredCell(v)
			}
		}
	}
}

// Quantiles returns the quantile order used by Bands and Projection values.
func (s *Series) Quantiles() []float64 {
	return s.quantiles
}
