package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_MergesCurrenciesByDate(t *testing.T) {
	start := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	col := NewCollector(&MockFetcher{Start: start, Days: 30, Rates: map[string]float64{"eur": 0.9}}, "BTC", []string{"usd", "eur"})

	rows, err := col.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 30)
	assert.Equal(t, "2015-03-01", rows[0].Key())
	assert.Equal(t, "2015-03-30", rows[29].Key())
	for _, r := range rows {
		assert.InDelta(t, r.Close("usd")*0.9, r.Close("eur"), 1e-9)
	}
}

func TestCollect_PartialFailureLeavesCurrencyMissing(t *testing.T) {
	f := &MockFetcher{Days: 10, Fail: map[string]bool{"eur": true}}
	rows, err := NewCollector(f, "BTC", []string{"usd", "eur"}).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 10)
	_, has := rows[0].Closes["eur"]
	assert.False(t, has)
}

func TestCollect_AllFail(t *testing.T) {
	f := &MockFetcher{Fail: map[string]bool{"usd": true}}
	_, err := NewCollector(f, "BTC", []string{"usd"}).Collect(context.Background())
	assert.Error(t, err)
}

func TestYahooFetcher_SkipsNullClosesAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BTC-USD", r.URL.Path)
		assert.Equal(t, "max", r.URL.Query().Get("range"))
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1700092800,1700006400,1700179200],
			"indicators":{"quote":[{"close":[101.5,100.25,null]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	points, err := f.FetchDailyCloses(context.Background(), "btc", "usd")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 100.25, points[0].Close)
	assert.Equal(t, 101.5, points[1].Close)
	assert.True(t, points[0].Time.Before(points[1].Time))
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchDailyCloses(context.Background(), "BTC", "USD")
	assert.ErrorContains(t, err, "No data found")
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "eur", r.URL.Query().Get("currency"))
		fmt.Fprint(w, `[{"timestamp":1700006400,"close":0},{"timestamp":1700092800,"close":35000.5},{"timestamp":1700006400,"close":34000}]`)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	points, err := f.FetchDailyCloses(context.Background(), "BTC", "eur")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 34000.0, points[0].Close)
}

func TestRESTFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "", "").FetchDailyCloses(context.Background(), "BTC", "usd")
	assert.ErrorContains(t, err, "status 503")
}
