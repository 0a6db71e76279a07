package quantile

// Loss is the pinball loss of residual r = actual - predicted at quantile tau.
func Loss(r, tau float64) float64 {
	if r >= 0 {
		return tau * r
	}
	return (tau - 1) * r
}

// Score is the subgradient of Loss with respect to the residual. The gradient
// with respect to the prediction is its negation.
func Score(r, tau float64) float64 {
	if r >= 0 {
		return tau
	}
	return tau - 1
}

// MeanLoss evaluates the mean pinball loss of a curve over samples in the
// space the curve is fitted in.
func MeanLoss(c Curve, samples []Sample, tau float64) float64 {
	clean := Clean(samples)
	if len(clean) == 0 || !c.Valid() {
		return nan
	}
	var sum float64
	for _, s := range clean {
		sum += Loss(c.residual(s), tau)
	}
	return sum / float64(len(clean))
}
