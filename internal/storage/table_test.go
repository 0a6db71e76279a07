package storage

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendBands/internal/model"
)

func TestRead_LooksUpColumnsByName(t *testing.T) {
	in := "Close_USD,date,extra_col,q50_usd\n" +
		"100.5,2020-01-02,foo,98\n" +
		"99,2020-01-01,,\n"
	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tbl.Records, 2)

	first := tbl.Records[0]
	assert.Equal(t, "2020-01-01", first.Date.Format(model.DateLayout))
	v, ok := first.Get("close_usd")
	assert.True(t, ok)
	assert.Equal(t, 99.0, v)
	_, ok = first.Get("q50_usd")
	assert.False(t, ok, "empty cell is absent, not zero")

	second := tbl.Records[1]
	v, ok = second.Get("q50_usd")
	assert.True(t, ok)
	assert.Equal(t, 98.0, v)
	assert.Equal(t, 1, tbl.Skipped, "non-numeric extra_col")
}

func TestRead_MalformedRowsAreSkipped(t *testing.T) {
	in := "date,close_usd\nnot-a-date,5\n2020-01-01,abc\n2020-01-02,NaN\n2020-01-03,7\n"
	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, tbl.Records, 3)
	assert.Equal(t, 3, tbl.Skipped)

	rows := tbl.PriceRows([]string{"usd"})
	_, ok := rows[0].Closes["usd"]
	assert.False(t, ok)
	assert.Equal(t, 7.0, rows[2].Closes["usd"])
}

func TestRead_NoDateColumn(t *testing.T) {
	_, err := Read(strings.NewReader("day,close_usd\n1,2\n"))
	assert.ErrorIs(t, err, ErrNoDateColumn)

	_, err = Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoDateColumn)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, tbl.Records)
}

func TestWrite_FormatsAndLeavesMissingEmpty(t *testing.T) {
	rows := []model.EnrichedRow{{
		Date: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		Cells: map[string]model.Cell{
			"close_usd": model.StoredCell(36000.5),
			"q50_usd":   model.ComputedCell(0.1 + 0.2),
			"ma50_usd":  model.MissingCell(),
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"date", "close_usd", "ma50_usd", "q50_usd"}, rows))
	assert.Equal(t, "date,close_usd,ma50_usd,q50_usd\n2021-06-01,36000.5,,0.3\n", buf.String())
}

func TestSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bands.csv")
	rows := []model.EnrichedRow{
		{Date: time.Date(2021, 6, 2, 0, 0, 0, 0, time.UTC), Cells: map[string]model.Cell{"close_usd": model.StoredCell(2)}},
		{Date: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), Cells: map[string]model.Cell{"close_usd": model.StoredCell(1)}},
	}
	require.NoError(t, Save(path, []string{"date", "close_usd"}, rows))

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, 1.0, tbl.Records[0].Values["close_usd"])
	assert.Contains(t, tbl.Index(), "2021-06-02")
}

func TestFormatCell_KeepsSignificantDigits(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{36000.5, "36000.5"},
		{0.1 + 0.2, "0.3"},
		{3.2e-10, "0.00000000032"},
		{-1.23456789012345e-7, "-0.000000123456789012"},
		{7.5e12 + 0.25, "7500000000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCell(model.StoredCell(tt.in)), "in=%v", tt.in)
	}
}

func TestSave_TinyPricesSurvive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.csv")
	rows := []model.EnrichedRow{
		{Date: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), Cells: map[string]model.Cell{"close_btc": model.StoredCell(4.1e-9)}},
	}
	require.NoError(t, Save(path, []string{"date", "close_btc"}, rows))

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.InEpsilon(t, 4.1e-9, tbl.Records[0].Values["close_btc"], 1e-12)
}
