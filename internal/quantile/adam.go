package quantile

import "math"

// Options controls the optimizer. Zero fields take the DefaultOptions value.
type Options struct {
	Iterations   int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultOptions returns the optimizer settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Iterations:   10000,
		LearningRate: 0.02,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-9,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Iterations <= 0 {
		o.Iterations = d.Iterations
	}
	if o.LearningRate <= 0 {
		o.LearningRate = d.LearningRate
	}
	if o.Beta1 <= 0 {
		o.Beta1 = d.Beta1
	}
	if o.Beta2 <= 0 {
		o.Beta2 = d.Beta2
	}
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	return o
}

// adam keeps biased first and second moment estimates for each parameter.
type adam struct {
	opts  Options
	m, v  []float64
	b1Pow float64
	b2Pow float64
}

func newAdam(opts Options, n int) *adam {
	return &adam{
		opts:  opts,
		m:     make([]float64, n),
		v:     make([]float64, n),
		b1Pow: 1,
		b2Pow: 1,
	}
}

// step moves params against grads in place.
func (a *adam) step(params, grads []float64) {
	o := a.opts
	a.b1Pow *= o.Beta1
	a.b2Pow *= o.Beta2
	for i, g := range grads {
		a.m[i] = o.Beta1*a.m[i] + (1-o.Beta1)*g
		a.v[i] = o.Beta2*a.v[i] + (1-o.Beta2)*g*g
		mHat := a.m[i] / (1 - a.b1Pow)
		vHat := a.v[i] / (1 - a.b2Pow)
		params[i] -= o.LearningRate * mHat / (math.Sqrt(vHat) + o.Epsilon)
	}
}
