package quantile

import (
	"math"
)

// trendSamples generates price = exp(alpha + beta*ln(day)) for each day in
// [from, to] with the given step.
func trendSamples(alpha, beta float64, from, to, step int) []Sample {
	var out []Sample
	for d := from; d <= to; d += step {
		day := float64(d)
		out = append(out, Sample{Day: day, Price: math.Exp(alpha + beta*math.Log(day))})
	}
	return out
}

// noisySamples adds a deterministic log-space wobble of the given amplitude.
func noisySamples(alpha, beta, amp float64, from, to int) []Sample {
	var out []Sample
	for d := from; d <= to; d++ {
		day := float64(d)
		wobble := amp * math.Sin(float64(d)*0.37) * math.Cos(float64(d)*0.011)
		out = append(out, Sample{Day: day, Price: math.Exp(alpha + beta*math.Log(day) + wobble)})
	}
	return out
}
