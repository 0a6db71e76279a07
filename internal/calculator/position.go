package calculator

import "math"

// BandPosition returns where price sits between lower and upper as a
// percentage clamped to [0, 100]. It reports false when any input is not
// finite or the band is empty or inverted.
func BandPosition(price, lower, upper float64) (float64, bool) {
	for _, v := range []float64{price, lower, upper} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
	}
	if upper <= lower {
		return 0, false
	}
	pos := (price - lower) / (upper - lower) * 100
	if pos < 0 {
		pos = 0
	}
	if pos > 100 {
		pos = 100
	}
	return pos, true
}
