package quantile

import (
	"math"
	"sort"
)

// LogLinearFitter fits LogLinear curves.
type LogLinearFitter struct {
	Options Options
	// Refine shifts Alpha after optimization so that the fitted line passes
	// through the empirical tau-quantile of the log-space residuals.
	Refine bool
	// Seeds replaces the least squares starting point for the listed quantiles.
	Seeds map[float64]LogLinear
}

func (f *LogLinearFitter) Model() string { return ModelLogLinear }

func (f *LogLinearFitter) Fit(samples []Sample, tau float64) Curve {
	return f.FitLogLinear(samples, tau)
}

// FitLogLinear minimizes the mean pinball loss of ln(price) against
// alpha + beta*ln(day).
func (f *LogLinearFitter) FitLogLinear(samples []Sample, tau float64) LogLinear {
	clean := Clean(samples)
	if len(clean) < MinSamples {
		return NaNLogLinear()
	}
	opts := f.Options.withDefaults()
	xs, ys := logPairs(clean)

	alpha, beta := ols(xs, ys)
	if seed, ok := f.Seeds[tau]; ok && seed.Valid() {
		alpha, beta = seed.Alpha, seed.Beta
	}

	params := []float64{alpha, beta}
	grads := make([]float64, 2)
	opt := newAdam(opts, 2)
	n := float64(len(xs))

	for it := 0; it < opts.Iterations; it++ {
		var ga, gb float64
		for i, x := range xs {
			psi := Score(ys[i]-(params[0]+params[1]*x), tau)
			ga -= psi
			gb -= psi * x
		}
		grads[0] = ga / n
		grads[1] = gb / n
		opt.step(params, grads)
	}

	fit := LogLinear{Alpha: params[0], Beta: params[1]}
	if f.Refine {
		fit.Alpha += residualQuantile(xs, ys, fit, tau)
	}
	return fit
}

// residualQuantile returns the empirical tau-quantile of the log-space
// residuals, taking index ceil(tau*N)-1 of the sorted residuals.
func residualQuantile(xs, ys []float64, fit LogLinear, tau float64) float64 {
	res := make([]float64, len(xs))
	for i, x := range xs {
		res[i] = ys[i] - (fit.Alpha + fit.Beta*x)
	}
	sort.Float64s(res)
	idx := int(math.Ceil(tau*float64(len(res)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(res)-1 {
		idx = len(res) - 1
	}
	return res[idx]
}
