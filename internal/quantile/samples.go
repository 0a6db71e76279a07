package quantile

import "math"

// MinSamples is the smallest number of usable samples a fit accepts.
const MinSamples = 4

// PriceFloor keeps prices strictly positive before taking logarithms.
const PriceFloor = 1e-9

// Sample is one (day index, price) observation.
type Sample struct {
	Day   float64
	Price float64
}

// Clean returns the usable samples: non-finite days or prices are dropped,
// days are clamped to at least 1 and prices to at least PriceFloor.
// The input is not modified.
func Clean(samples []Sample) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !finite(s.Day) || !finite(s.Price) {
			continue
		}
		if s.Day < 1 {
			s.Day = 1
		}
		if s.Price < PriceFloor {
			s.Price = PriceFloor
		}
		out = append(out, s)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// logPairs transforms samples to (ln day, ln price).
func logPairs(samples []Sample) (xs, ys []float64) {
	xs = make([]float64, len(samples))
	ys = make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = math.Log(s.Day)
		ys[i] = math.Log(s.Price)
	}
	return xs, ys
}

// ols returns the ordinary least squares intercept and slope of ys on xs.
// A zero variance in xs yields a zero slope.
func ols(xs, ys []float64) (intercept, slope float64) {
	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n
	var cov, variance float64
	for i := range xs {
		dx := xs[i] - mx
		cov += dx * (ys[i] - my)
		variance += dx * dx
	}
	if variance != 0 {
		slope = cov / variance
	}
	return my - slope*mx, slope
}
