// Package quantile fits long-run trend curves to daily price samples by
// minimizing the pinball (quantile) loss with full-batch gradient descent and
// per-parameter adaptive step sizes, and evaluates fitted curves at arbitrary
// dates.
//
// Two curve families are supported:
//
//	loglinear: price = exp(alpha + beta*ln(day))
//	powerlaw:  price = a*day^b + c*day^d
//
// Fitting never fails on bad data. Samples with a non-finite day or price are
// dropped; fewer than MinSamples usable samples yield a curve whose parameters
// are all NaN, which Predict refuses to evaluate.
package quantile
