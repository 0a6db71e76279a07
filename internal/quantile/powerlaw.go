package quantile

import "math"

// Bounds applied to PowerLaw parameters on every optimizer step.
const (
	MinExponent = 0.01
	MaxExponent = 12.0
	minCoef     = 1e-9
)

// PowerLawFitter fits PowerLaw curves directly in price space.
type PowerLawFitter struct {
	Options Options
}

func (f *PowerLawFitter) Model() string { return ModelPowerLaw }

func (f *PowerLawFitter) Fit(samples []Sample, tau float64) Curve {
	return f.FitPowerLaw(samples, tau)
}

// FitPowerLaw minimizes the mean pinball loss of price against
// a*day^b + c*day^d.
func (f *PowerLawFitter) FitPowerLaw(samples []Sample, tau float64) PowerLaw {
	clean := Clean(samples)
	if len(clean) < MinSamples {
		return NaNPowerLaw()
	}
	opts := f.Options.withDefaults()

	lnx, lny := logPairs(clean)
	minP, maxP := math.Inf(1), math.Inf(-1)
	for _, s := range clean {
		minP = math.Min(minP, s.Price)
		maxP = math.Max(maxP, s.Price)
	}

	// Split the dominant log-log slope into a slow and a fast component.
	intercept, slope := ols(lnx, lny)
	dominant := math.Max(slope, 0.05)
	scale := math.Exp(intercept)
	params := []float64{
		0.35 * scale,
		0.65 * dominant,
		0.65 * scale,
		math.Min(1.35*dominant, MaxExponent),
	}

	grads := make([]float64, 4)
	opt := newAdam(opts, 4)
	n := float64(len(clean))

	for it := 0; it < opts.Iterations; it++ {
		a, b, c, d := params[0], params[1], params[2], params[3]
		var ga, gb, gc, gd float64
		for i, s := range clean {
			tb := math.Pow(s.Day, b)
			td := math.Pow(s.Day, d)
			psi := Score(s.Price-(a*tb+c*td), tau)
			ga -= psi * tb
			gb -= psi * a * tb * lnx[i]
			gc -= psi * td
			gd -= psi * c * td * lnx[i]
		}
		grads[0], grads[1], grads[2], grads[3] = ga/n, gb/n, gc/n, gd/n
		opt.step(params, grads)
		guardPowerLaw(params, minP, maxP)
	}

	return PowerLaw{A: params[0], B: params[1], C: params[2], D: params[3]}.Canonical()
}

// guardPowerLaw replaces non-finite parameters with fallbacks and clamps
// coefficients to [1e-9, 10*maxPrice] and exponents to [MinExponent, MaxExponent].
func guardPowerLaw(p []float64, minPrice, maxPrice float64) {
	fallback := [4]float64{0.1 * minPrice, 1, 0.1 * minPrice, 2}
	for i := range p {
		if !finite(p[i]) {
			p[i] = fallback[i]
		}
	}
	p[0] = clamp(p[0], minCoef, 10*maxPrice)
	p[2] = clamp(p[2], minCoef, 10*maxPrice)
	p[1] = clamp(p[1], MinExponent, MaxExponent)
	p[3] = clamp(p[3], MinExponent, MaxExponent)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
