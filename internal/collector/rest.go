package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"TrendBands/internal/model"
)

// RESTFetcher implements Fetcher against a JSON price feed exposing
// GET {base}/api/v1/closes?symbol=&currency=.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restClose is the expected JSON shape from the feed.
type restClose struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

func (f *RESTFetcher) FetchDailyCloses(ctx context.Context, symbol, currency string) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("currency", currency)
	endpoint := f.BaseURL + "/api/v1/closes?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch closes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch closes: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw []restClose
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode closes: %w", err)
	}
	points := make([]model.PricePoint, 0, len(raw))
	for _, r := range raw {
		if r.Close <= 0 {
			continue
		}
		points = append(points, model.PricePoint{Time: time.Unix(r.Timestamp, 0).UTC(), Close: r.Close})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("rest feed: %w", ErrNoData)
	}
	// Ensure chronological order
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
