package model

import "math"

// CellSource records where a cell value came from.
type CellSource int

const (
	// Missing means no value is available and none could be computed.
	Missing CellSource = iota
	// Stored values were read from the persisted table and are trusted as-is.
	Stored
	// Computed values were derived during this run.
	Computed
)

func (s CellSource) String() string {
	switch s {
	case Stored:
		return "stored"
	case Computed:
		return "computed"
	default:
		return "missing"
	}
}

// Cell is one indicator value together with its provenance.
type Cell struct {
	Source CellSource
	Value  float64
}

// StoredCell wraps a persisted value.
func StoredCell(v float64) Cell { return Cell{Source: Stored, Value: v} }

// ComputedCell wraps a freshly computed value. Non-finite values become Missing.
func ComputedCell(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	return Cell{Source: Computed, Value: v}
}

// MissingCell is the empty cell.
func MissingCell() Cell { return Cell{} }

// Ok reports whether the cell holds a value.
func (c Cell) Ok() bool { return c.Source != Missing }

// Get returns the value and whether it is present.
func (c Cell) Get() (float64, bool) { return c.Value, c.Ok() }
