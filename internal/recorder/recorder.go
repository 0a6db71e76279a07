package recorder

import (
	"time"

	"TrendBands/internal/model"
)

// FitEvent records one fitted band curve.
type FitEvent struct {
	Currency  string
	Model     string
	Tau       float64
	Params    []float64 // NaN entries mean the fit had too little data
	Samples   int
	Crossings int
	LastDate  time.Time
}

// Recorder persists fit history for later analysis.
type Recorder interface {
	RecordFit(evt *FitEvent) error
	RecordSnapshot(snap *model.BandSnapshot) error
	// LatestFit returns the most recent fit of a currency and quantile, or
	// false when none was recorded.
	LatestFit(currency string, tau float64) (*FitEvent, bool, error)
	Close() error
}
