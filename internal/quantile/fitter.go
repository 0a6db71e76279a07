package quantile

import (
	"fmt"
	"math"
)

// Fitter fits one curve per quantile over a sample batch. Implementations
// hold no state between calls, so fits over different quantiles or series
// may run concurrently.
type Fitter interface {
	Model() string
	Fit(samples []Sample, tau float64) Curve
}

// NewFitter returns the fitter for a model name. Refine and seeds only apply
// to the loglinear model.
func NewFitter(model string, opts Options, refine bool, seeds map[float64]LogLinear) (Fitter, error) {
	switch model {
	case ModelLogLinear, "":
		return &LogLinearFitter{Options: opts, Refine: refine, Seeds: seeds}, nil
	case ModelPowerLaw:
		return &PowerLawFitter{Options: opts}, nil
	default:
		return nil, fmt.Errorf("unknown model %q", model)
	}
}

// Band is the curve fitted for one quantile.
type Band struct {
	Tau   float64
	Curve Curve
}

// FitBands fits every quantile over the same samples, in order.
func FitBands(f Fitter, samples []Sample, quantiles []float64) []Band {
	bands := make([]Band, len(quantiles))
	for i, q := range quantiles {
		bands[i] = Band{Tau: q, Curve: f.Fit(samples, q)}
	}
	return bands
}

// Crossings counts the days at which the upper curve predicts below the
// lower curve. Independent quantile fits do not prevent this.
func Crossings(lower, upper Curve, days []float64) int {
	n := 0
	for _, d := range days {
		lo, okLo := PredictDay(lower, d)
		hi, okHi := PredictDay(upper, d)
		if okLo && okHi && hi < lo {
			n++
		}
	}
	return n
}

// Collapsed reports whether two or more valid bands share the same curve
// within a relative tolerance of 1e-9 per parameter. Independent fits that
// end pinned to the same parameters no longer describe different quantiles.
func Collapsed(bands []Band) bool {
	if len(bands) < 2 {
		return false
	}
	first := bands[0].Curve
	if !first.Valid() {
		return false
	}
	ref := first.Params()
	for _, b := range bands[1:] {
		if !b.Curve.Valid() || b.Curve.Model() != first.Model() {
			return false
		}
		p := b.Curve.Params()
		for i := range ref {
			scale := math.Max(math.Abs(ref[i]), math.Abs(p[i]))
			if math.Abs(ref[i]-p[i]) > 1e-9*scale {
				return false
			}
		}
	}
	return true
}
