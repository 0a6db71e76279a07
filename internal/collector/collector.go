package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"TrendBands/internal/dayindex"
	"TrendBands/internal/model"
)

// MockFetcher returns a deterministic power-law history for development and testing.
type MockFetcher struct {
	Start time.Time
	Days  int
	// Rates scales the series per currency; missing currencies use 1.
	Rates map[string]float64
	// Fail lists currencies for which the fetch returns an error.
	Fail map[string]bool
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, _ string, currency string) ([]model.PricePoint, error) {
	if m.Fail[currency] {
		return nil, fmt.Errorf("mock: %s unavailable", currency)
	}
	rate := 1.0
	if r, ok := m.Rates[currency]; ok {
		rate = r
	}
	start := m.Start
	if start.IsZero() {
		start = time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	days := m.Days
	if days <= 0 {
		days = 365
	}
	return GenerateMockCloses(start, days, rate), nil
}

// GenerateMockCloses produces closes following exp(-38 + 5.6*ln(day)) with a
// slow multiplicative cycle and a fast weekly wobble.
func GenerateMockCloses(start time.Time, days int, rate float64) []model.PricePoint {
	points := make([]model.PricePoint, days)
	for i := 0; i < days; i++ {
		t := model.TruncateDay(start).AddDate(0, 0, i)
		day := dayindex.Of(t)
		cycle := 0.8*math.Sin(float64(i)/230) + 0.1*math.Sin(float64(i)*0.9)
		points[i] = model.PricePoint{
			Time:  t,
			Close: rate * math.Exp(-38+5.6*math.Log(day)+cycle),
		}
	}
	return points
}

// Collector fetches every configured currency and merges them by date.
type Collector struct {
	Fetcher    Fetcher
	Symbol     string
	Currencies []string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, currencies []string) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Currencies: currencies}
}

// Collect fetches the daily history of each currency and returns one row per
// UTC date in ascending order. A currency that fails to fetch is logged and
// left absent from the rows; if every currency fails, an error is returned.
func (c *Collector) Collect(ctx context.Context) ([]model.PriceRow, error) {
	byDate := make(map[time.Time]map[string]float64)
	var lastErr error
	ok := 0

	for _, cur := range c.Currencies {
		points, err := c.Fetcher.FetchDailyCloses(ctx, c.Symbol, cur)
		if err != nil {
			lastErr = err
			logrus.WithFields(logrus.Fields{
				"component": "collector",
				"source":    c.Fetcher.Name(),
				"currency":  cur,
			}).WithError(err).Warn("fetch daily closes failed")
			continue
		}
		ok++
		for _, p := range points {
			d := model.TruncateDay(p.Time)
			closes, exists := byDate[d]
			if !exists {
				closes = make(map[string]float64, len(c.Currencies))
				byDate[d] = closes
			}
			// the last close reported for a day wins
			closes[cur] = p.Close
		}
		logrus.WithFields(logrus.Fields{
			"component": "collector",
			"currency":  cur,
			"points":    len(points),
		}).Info("fetched daily closes")
	}
	if ok == 0 && len(c.Currencies) > 0 {
		return nil, fmt.Errorf("collect %s: %w", c.Symbol, lastErr)
	}

	rows := make([]model.PriceRow, 0, len(byDate))
	for d, closes := range byDate {
		rows = append(rows, model.PriceRow{Date: d, Closes: closes})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}
