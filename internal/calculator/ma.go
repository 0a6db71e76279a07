package calculator

import "math"

// SMASeries returns the simple moving average at every index using a running
// sum. Entries before index window-1 are NaN, never zero. A NaN input value
// restarts the window after it.
func SMASeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	count := 0
	for i, v := range values {
		if math.IsNaN(v) {
			sum, count = 0, 0
			out[i] = math.NaN()
			continue
		}
		sum += v
		count++
		if count > window {
			sum -= values[i-window]
			count = window
		}
		if count < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}
