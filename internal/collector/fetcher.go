package collector

import (
	"context"
	"errors"

	"TrendBands/internal/model"
)

// ErrNoData is returned when a provider answers without any usable close.
var ErrNoData = errors.New("no price data returned")

// Fetcher defines the interface for fetching daily price history.
type Fetcher interface {
	// FetchDailyCloses returns the full daily close history of symbol quoted
	// in currency, in ascending time order.
	FetchDailyCloses(ctx context.Context, symbol, currency string) ([]model.PricePoint, error)
	Name() string
}
