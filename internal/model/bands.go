package model

import "time"

// EnrichedRow is one date of the assembled series. Cells is keyed by column
// name (see Columns); absent keys read as Missing.
type EnrichedRow struct {
	Date  time.Time
	Cells map[string]Cell
}

// Cell returns the named cell.
func (r EnrichedRow) Cell(column string) Cell {
	return r.Cells[column]
}

// BandSnapshot is the band state of one currency at one date.
type BandSnapshot struct {
	Currency string
	Date     time.Time
	Price    float64
	Lower    float64
	Median   float64
	Upper    float64
	Position float64 // 0 ~ 100, NaN when undefined
	RSI      float64 // NaN when not enough data
}
