package assembler

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendBands/internal/collector"
	"TrendBands/internal/model"
	"TrendBands/internal/quantile"
)

var quantiles = []float64{0.01, 0.5, 0.99}

func mockRows(start time.Time, days int) []model.PriceRow {
	usd := collector.GenerateMockCloses(start, days, 1)
	eur := collector.GenerateMockCloses(start, days, 0.9)
	rows := make([]model.PriceRow, days)
	for i := range rows {
		rows[i] = model.PriceRow{
			Date:   usd[i].Time,
			Closes: map[string]float64{"usd": usd[i].Close, "eur": eur[i].Close},
		}
	}
	return rows
}

func newAssembler(iterations int) *Assembler {
	return &Assembler{
		Currencies: []string{"usd", "eur"},
		Windows:    []int{3, 50},
		Quantiles:  quantiles,
		Fitter:     &quantile.LogLinearFitter{Options: quantile.Options{Iterations: iterations}, Refine: true},
	}
}

func TestAssemble_FillsEveryColumn(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 400)
	s := newAssembler(1500).Assemble(rows, nil)

	require.Len(t, s.Rows, 400)
	assert.Equal(t, model.Columns([]string{"usd", "eur"}, []int{3, 50}, quantiles), s.Columns)

	for cur, cb := range s.Bands {
		assert.True(t, cb.Valid(), cur)
		assert.Equal(t, 400, cb.Samples)
		assert.Len(t, cb.Bands, 3)
	}

	last := s.Rows[399]
	for _, col := range s.Columns[1:] {
		c := last.Cell(col)
		assert.Equal(t, model.Computed, c.Source, col)
	}

	// moving averages start at window-1
	assert.False(t, s.Rows[1].Cell("ma3_usd").Ok())
	assert.True(t, s.Rows[2].Cell("ma3_usd").Ok())
	assert.False(t, s.Rows[48].Cell("ma50_usd").Ok())
	assert.True(t, s.Rows[49].Cell("ma50_usd").Ok())

	ma, _ := s.Rows[2].Cell("ma3_usd").Get()
	want := (rows[0].Closes["usd"] + rows[1].Closes["usd"] + rows[2].Closes["usd"]) / 3
	assert.InDelta(t, want, ma, 1e-9)
}

func TestAssemble_StoredCellsAreTrusted(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 120)
	key := rows[100].Date.Format(model.DateLayout)
	stored := map[string]map[string]float64{
		key: {
			"q50_usd":   12345,
			"ma3_usd":   7,
			"pos_usd":   42,
			"close_usd": rows[100].Closes["usd"],
		},
	}
	s := newAssembler(500).Assemble(rows, stored)
	row := s.Rows[100]

	assert.Equal(t, model.StoredCell(12345), row.Cell("q50_usd"))
	assert.Equal(t, model.StoredCell(7), row.Cell("ma3_usd"))
	assert.Equal(t, model.StoredCell(42), row.Cell("pos_usd"))
	assert.Equal(t, model.Stored, row.Cell("close_usd").Source)

	// neighbours and other currencies are back-filled
	assert.Equal(t, model.Computed, row.Cell("q01_usd").Source)
	assert.Equal(t, model.Computed, row.Cell("q50_eur").Source)
	assert.Equal(t, model.Computed, s.Rows[99].Cell("q50_usd").Source)
}

func TestAssemble_PositionUsesOuterBands(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 300)
	s := newAssembler(800).Assemble(rows, nil)
	for _, row := range s.Rows {
		pos, ok := row.Cell("pos_usd").Get()
		require.True(t, ok)
		assert.GreaterOrEqual(t, pos, 0.0)
		assert.LessOrEqual(t, pos, 100.0)
	}
}

func TestAssemble_InsufficientData(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	s := newAssembler(100).Assemble(rows, nil)

	cb := s.Bands["usd"]
	assert.False(t, cb.Valid())
	assert.Equal(t, 3, cb.Samples)
	for _, row := range s.Rows {
		assert.Equal(t, model.Missing, row.Cell("q50_usd").Source)
		assert.Equal(t, model.Missing, row.Cell("pos_usd").Source)
		assert.Equal(t, model.Computed, row.Cell("close_usd").Source)
	}
	assert.Nil(t, s.Project("usd", rows[2].Date, 10))
}

func TestAssemble_CutoverExcludesEarlyRows(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 200)
	a := newAssembler(200)
	a.Cutover = rows[150].Date
	s := a.Assemble(rows, nil)
	assert.Equal(t, 50, s.Bands["usd"].Samples)
	// bands still back-fill rows before the cutover
	assert.True(t, s.Rows[0].Cell("q50_usd").Ok())
}

func TestAssemble_MissingCurrencyCloses(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 100)
	for i := range rows {
		delete(rows[i].Closes, "eur")
	}
	s := newAssembler(200).Assemble(rows, nil)
	assert.True(t, s.Bands["usd"].Valid())
	assert.False(t, s.Bands["eur"].Valid())
	_, ok := s.Latest("eur")
	assert.False(t, ok)
}

func TestLatestAndProject(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 1460)
	s := newAssembler(1000).Assemble(rows, nil)
	last := rows[len(rows)-1]

	snap, ok := s.Latest("usd")
	require.True(t, ok)
	assert.Equal(t, last.Date, snap.Date)
	assert.Equal(t, last.Closes["usd"], snap.Price)
	assert.LessOrEqual(t, snap.Lower, snap.Median)
	assert.LessOrEqual(t, snap.Median, snap.Upper)
	assert.False(t, math.IsNaN(snap.Position))
	assert.False(t, math.IsNaN(snap.RSI))

	proj := s.Project("usd", last.Date.AddDate(0, 0, 1), 30)
	require.Len(t, proj, 30)
	for _, p := range proj {
		require.Len(t, p.Values, 3)
		assert.LessOrEqual(t, p.Values[0], p.Values[2])
	}
	assert.Greater(t, proj[29].Values[1], proj[0].Values[1], "rising trend extrapolates upward")
}

func TestMergeCloses_StoredWins(t *testing.T) {
	d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	stored := []model.PriceRow{{Date: d1, Closes: map[string]float64{"usd": 100}}}
	fetched := []model.PriceRow{
		{Date: d1.Add(5 * time.Hour), Closes: map[string]float64{"usd": 101, "eur": 90}},
		{Date: d2, Closes: map[string]float64{"usd": 102}},
	}
	merged := MergeCloses(stored, fetched)
	require.Len(t, merged, 2)
	assert.Equal(t, 100.0, merged[0].Closes["usd"])
	assert.Equal(t, 90.0, merged[0].Closes["eur"])
	assert.Equal(t, 102.0, merged[1].Closes["usd"])
}

func TestOuterAndMedianIndexes(t *testing.T) {
	lo, hi := outerIndexes([]float64{0.5, 0.99, 0.01})
	assert.Equal(t, 2, lo)
	assert.Equal(t, 1, hi)
	assert.Equal(t, 0, medianIndex([]float64{0.5, 0.99, 0.01}))

	lo, hi = outerIndexes(nil)
	assert.Equal(t, -1, lo)
	assert.Equal(t, -1, hi)
}

func TestCarry_KeepsColumnsOutsideLayout(t *testing.T) {
	rows := mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 30)
	key := rows[5].Date.Format(model.DateLayout)
	stored := map[string]map[string]float64{
		key: {"close_gbp": 512.5, "ma7_usd": 3, "q50_usd": 9},
	}
	s := newAssembler(100).Assemble(rows, stored)
	layout := len(s.Columns)

	s.Carry([]string{"date", "close_usd", "close_gbp", "ma7_usd", "close_gbp"}, stored)

	require.Len(t, s.Columns, layout+2)
	assert.Equal(t, []string{"close_gbp", "ma7_usd"}, s.Columns[layout:])
	assert.Equal(t, model.StoredCell(512.5), s.Rows[5].Cell("close_gbp"))
	assert.Equal(t, model.StoredCell(3), s.Rows[5].Cell("ma7_usd"))
	assert.Equal(t, model.Missing, s.Rows[4].Cell("close_gbp").Source)
	assert.Equal(t, model.StoredCell(9), s.Rows[5].Cell("q50_usd"))
}

type fixedFitter struct{ curve quantile.Curve }

func (f fixedFitter) Model() string                                     { return f.curve.Model() }
func (f fixedFitter) Fit(_ []quantile.Sample, _ float64) quantile.Curve { return f.curve }

func TestAssemble_WarnsWhenBandsCollapse(t *testing.T) {
	hook := logtest.NewGlobal()
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	a := newAssembler(0)
	a.Currencies = []string{"usd"}
	a.Fitter = fixedFitter{curve: quantile.PowerLaw{A: 1e-9, B: 2.043, C: 1e-9, D: 5.8929}}
	a.Assemble(mockRows(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 30), nil)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "all quantile bands converged to the same curve" {
			found = true
			assert.Equal(t, "usd", e.Data["currency"])
		}
	}
	assert.True(t, found)
}
