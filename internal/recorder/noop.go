package recorder

import "TrendBands/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFit(_ *FitEvent) error                { return nil }
func (n *NoopRecorder) RecordSnapshot(_ *model.BandSnapshot) error { return nil }
func (n *NoopRecorder) Close() error                               { return nil }

func (n *NoopRecorder) LatestFit(_ string, _ float64) (*FitEvent, bool, error) {
	return nil, false, nil
}
