package calculator

import (
	"errors"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
)

// CalculateRSI returns the latest RSI over the given period. Requires at
// least period+1 closes; otherwise NaN is returned.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	clean := make([]float64, 0, len(closes))
	for _, c := range closes {
		if !math.IsNaN(c) {
			clean = append(clean, c)
		}
	}
	if len(clean) < period+1 {
		return math.NaN(), nil
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	values := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(clean)))
	if len(values) == 0 {
		return math.NaN(), nil
	}
	return values[len(values)-1], nil
}
