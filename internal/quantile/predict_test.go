package quantile

import (
	"math"
	"testing"
	"time"

	"TrendBands/internal/dayindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict_LogLinear(t *testing.T) {
	fit := LogLinear{Alpha: -1, Beta: 2}
	date := dayindex.Epoch.AddDate(0, 0, 99) // day 100
	v, ok := Predict(fit, date)
	require.True(t, ok)
	assert.InDelta(t, math.Exp(-1)*100*100, v, 1e-9)

	v2, ok := PredictString(fit, "2009-04-12")
	require.True(t, ok)
	assert.InDelta(t, v, v2, 1e-9)
}

func TestPredict_PowerLaw(t *testing.T) {
	fit := PowerLaw{A: 2, B: 1, C: 0.5, D: 2}
	v, ok := PredictDay(fit, 10)
	require.True(t, ok)
	assert.InDelta(t, 20+50, v, 1e-9)
}

func TestPredict_NeverEmitsNonFinite(t *testing.T) {
	curves := []Curve{
		LogLinear{Alpha: math.NaN(), Beta: 1},
		LogLinear{Alpha: 0, Beta: math.Inf(1)},
		PowerLaw{A: 1, B: 1, C: math.NaN(), D: 2},
		NaNPowerLaw(),
		nil,
	}
	for _, c := range curves {
		v, ok := PredictDay(c, 100)
		assert.False(t, ok)
		assert.Equal(t, 0.0, v)
	}

	good := LogLinear{Alpha: 0, Beta: 1}
	_, ok := PredictDay(good, math.NaN())
	assert.False(t, ok)
	_, ok = PredictString(good, "garbage")
	assert.False(t, ok)

	// overflowing result
	_, ok = PredictDay(LogLinear{Alpha: 800, Beta: 1}, 10)
	assert.False(t, ok)
}

func TestPredict_Extrapolates(t *testing.T) {
	fit := LogLinear{Alpha: -10, Beta: 3}
	now, ok := Predict(fit, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	later, ok := Predict(fit, time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Greater(t, later, now)
}

func TestFitBands_OrderedAtLastTrainingDay(t *testing.T) {
	// ten years of daily closes around an increasing trend
	samples := noisySamples(-17, 2.9, 0.6, 500, 500+3650)
	f := &LogLinearFitter{Refine: true}
	bands := FitBands(f, samples, []float64{0.01, 0.5, 0.99})
	require.Len(t, bands, 3)

	last := samples[len(samples)-1].Day
	lo, ok := PredictDay(bands[0].Curve, last)
	require.True(t, ok)
	mid, ok := PredictDay(bands[1].Curve, last)
	require.True(t, ok)
	hi, ok := PredictDay(bands[2].Curve, last)
	require.True(t, ok)

	assert.LessOrEqual(t, lo, mid)
	assert.LessOrEqual(t, mid, hi)

	days := make([]float64, len(samples))
	for i, s := range samples {
		days[i] = s.Day
	}
	assert.Equal(t, 0, Crossings(bands[0].Curve, bands[2].Curve, days))
}

func TestNewFitter(t *testing.T) {
	f, err := NewFitter(ModelLogLinear, Options{}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelLogLinear, f.Model())

	f, err = NewFitter(ModelPowerLaw, Options{}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelPowerLaw, f.Model())

	_, err = NewFitter("spline", Options{}, false, nil)
	assert.Error(t, err)
}
