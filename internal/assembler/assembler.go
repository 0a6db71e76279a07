// Package assembler builds the enriched band table: closes, moving averages,
// quantile band predictions and band position per date and currency.
//
// Values already present in storage are trusted as-is; a fresh fit only
// fills cells that are missing. Every cell records whether it was stored or
// computed in this run.
package assembler

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"TrendBands/internal/calculator"
	"TrendBands/internal/dayindex"
	"TrendBands/internal/model"
	"TrendBands/internal/quantile"
)

// Assembler holds the table layout and the fitter.
type Assembler struct {
	Currencies []string
	Windows    []int
	Quantiles  []float64
	Fitter     quantile.Fitter
	// Cutover excludes earlier rows from fitting. Zero uses every row.
	Cutover time.Time
}

// CurrencyBands holds the curves fitted for one currency.
type CurrencyBands struct {
	Currency  string
	Bands     []quantile.Band // ordered as Assembler.Quantiles
	Samples   int
	Crossings int // training days where the upper band is below the lower band
}

// Valid reports whether every band curve is usable for prediction.
func (cb CurrencyBands) Valid() bool {
	if len(cb.Bands) == 0 {
		return false
	}
	for _, b := range cb.Bands {
		if !b.Curve.Valid() {
			return false
		}
	}
	return true
}

// Series is the output of Assemble.
type Series struct {
	Columns []string
	Rows    []model.EnrichedRow
	Bands   map[string]CurrencyBands

	quantiles []float64
	closes    map[string][]float64
}

// Assemble merges rows (ascending by date) with stored cells keyed by date
// and column name. stored may be nil.
func (a *Assembler) Assemble(rows []model.PriceRow, stored map[string]map[string]float64) *Series {
	s := &Series{
		Columns:   model.Columns(a.Currencies, a.Windows, a.Quantiles),
		Rows:      make([]model.EnrichedRow, len(rows)),
		Bands:     make(map[string]CurrencyBands, len(a.Currencies)),
		quantiles: a.Quantiles,
		closes:    make(map[string][]float64, len(a.Currencies)),
	}
	for i, r := range rows {
		s.Rows[i] = model.EnrichedRow{Date: r.Date, Cells: make(map[string]model.Cell)}
	}

	for _, cur := range a.Currencies {
		closes := make([]float64, len(rows))
		for i, r := range rows {
			closes[i] = r.Close(cur)
		}
		s.closes[cur] = closes
	}

	// Fits are independent per currency.
	fits := make([]CurrencyBands, len(a.Currencies))
	var wg sync.WaitGroup
	for i, cur := range a.Currencies {
		wg.Add(1)
		go func(i int, cur string) {
			defer wg.Done()
			fits[i] = a.fitCurrency(cur, rows, s.closes[cur])
		}(i, cur)
	}
	wg.Wait()

	for i, cur := range a.Currencies {
		s.Bands[cur] = fits[i]
		a.fillCurrency(s, cur, stored, fits[i])
	}
	return s
}

func (a *Assembler) fitCurrency(cur string, rows []model.PriceRow, closes []float64) CurrencyBands {
	samples := make([]quantile.Sample, 0, len(rows))
	for i, r := range rows {
		if !a.Cutover.IsZero() && r.Date.Before(a.Cutover) {
			continue
		}
		samples = append(samples, quantile.Sample{Day: dayindex.Of(r.Date), Price: closes[i]})
	}
	clean := quantile.Clean(samples)

	cb := CurrencyBands{
		Currency: cur,
		Bands:    quantile.FitBands(a.Fitter, clean, a.Quantiles),
		Samples:  len(clean),
	}
	log := logrus.WithFields(logrus.Fields{
		"component": "assembler",
		"currency":  cur,
		"model":     a.Fitter.Model(),
		"samples":   cb.Samples,
	})
	if !cb.Valid() {
		log.Warn("not enough usable samples, bands left unfitted")
		return cb
	}

	lo, hi := a.outerBands()
	days := make([]float64, len(clean))
	for i, smp := range clean {
		days[i] = smp.Day
	}
	cb.Crossings = quantile.Crossings(cb.Bands[lo].Curve, cb.Bands[hi].Curve, days)
	if cb.Crossings > 0 {
		log.WithField("crossings", cb.Crossings).Warn("upper band falls below lower band inside the training range")
	}
	if quantile.Collapsed(cb.Bands) {
		log.WithField("params", cb.Bands[0].Curve.Params()).Warn("all quantile bands converged to the same curve")
	}
	for _, b := range cb.Bands {
		log.WithFields(logrus.Fields{"tau": b.Tau, "params": b.Curve.Params()}).Debug("fitted band")
	}
	return cb
}

func (a *Assembler) fillCurrency(s *Series, cur string, stored map[string]map[string]float64, cb CurrencyBands) {
	closes := s.closes[cur]
	closeCol := model.CloseColumn(cur)

	mas := make([][]float64, len(a.Windows))
	for i, w := range a.Windows {
		mas[i] = calculator.SMASeries(closes, w)
	}
	lo, hi := a.outerBands()

	for i := range s.Rows {
		row := &s.Rows[i]
		have := stored[row.Date.Format(model.DateLayout)]

		if v, ok := have[closeCol]; ok {
			row.Cells[closeCol] = model.StoredCell(v)
		} else {
			row.Cells[closeCol] = model.ComputedCell(closes[i])
		}

		for j, w := range a.Windows {
			col := model.MAColumn(w, cur)
			row.Cells[col] = fillIfAbsent(have, col, func() float64 { return mas[j][i] })
		}

		for _, b := range cb.Bands {
			curve := b.Curve
			col := model.BandColumn(b.Tau, cur)
			row.Cells[col] = fillIfAbsent(have, col, func() float64 {
				v, ok := quantile.Predict(curve, row.Date)
				if !ok {
					return math.NaN()
				}
				return v
			})
		}

		posCol := model.PositionColumn(cur)
		row.Cells[posCol] = fillIfAbsent(have, posCol, func() float64 {
			if lo < 0 {
				return math.NaN()
			}
			price, okP := row.Cell(closeCol).Get()
			lower, okL := row.Cell(model.BandColumn(a.Quantiles[lo], cur)).Get()
			upper, okU := row.Cell(model.BandColumn(a.Quantiles[hi], cur)).Get()
			if !okP || !okL || !okU {
				return math.NaN()
			}
			pos, ok := calculator.BandPosition(price, lower, upper)
			if !ok {
				return math.NaN()
			}
			return pos
		})
	}
}

// fillIfAbsent returns the stored value when present, otherwise the computed
// one. Non-finite computed values become Missing.
func fillIfAbsent(have map[string]float64, col string, compute func() float64) model.Cell {
	if v, ok := have[col]; ok {
		return model.StoredCell(v)
	}
	return model.ComputedCell(compute())
}

// outerBands returns the indexes of the lowest and highest quantile, or -1
// when there are none.
func (a *Assembler) outerBands() (lo, hi int) {
	return outerIndexes(a.Quantiles)
}

func outerIndexes(qs []float64) (lo, hi int) {
	if len(qs) == 0 {
		return -1, -1
	}
	for i, q := range qs {
		if q < qs[lo] {
			lo = i
		}
		if q > qs[hi] {
			hi = i
		}
	}
	return lo, hi
}

// medianIndex returns the quantile closest to 0.5.
func medianIndex(qs []float64) int {
	best := -1
	for i, q := range qs {
		if best < 0 || math.Abs(q-0.5) < math.Abs(qs[best]-0.5) {
			best = i
		}
	}
	return best
}

// MergeCloses combines stored and freshly fetched closes. Stored closes are
// kept; fetched closes only fill dates or currencies that are absent.
func MergeCloses(stored, fetched []model.PriceRow) []model.PriceRow {
	byDate := make(map[time.Time]map[string]float64, len(stored)+len(fetched))
	add := func(rows []model.PriceRow) {
		for _, r := range rows {
			d := model.TruncateDay(r.Date)
			closes, ok := byDate[d]
			if !ok {
				closes = make(map[string]float64, len(r.Closes))
				byDate[d] = closes
			}
			for cur, v := range r.Closes {
				if _, exists := closes[cur]; !exists {
					closes[cur] = v
				}
			}
		}
	}
	add(stored)
	add(fetched)

	out := make([]model.PriceRow, 0, len(byDate))
	for d, closes := range byDate {
		out = append(out, model.PriceRow{Date: d, Closes: closes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
