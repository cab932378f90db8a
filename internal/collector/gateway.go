package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"MomentumScreener/internal/model"
)

// GatewayFetcher implements Fetcher against a self-hosted market data REST gateway.
type GatewayFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewGatewayFetcher creates a new fetcher with optional proxy support.
func NewGatewayFetcher(baseURL, apiKey, proxyURL string) *GatewayFetcher {
	return &GatewayFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *GatewayFetcher) Name() string { return "gateway" }

// gatewayBar is the expected JSON shape of a daily bar. Close is null for gaps.
type gatewayBar struct {
	Timestamp int64    `json:"timestamp"`
	Close     *float64 `json:"close"`
}

type gatewayProfile struct {
	Symbol    string   `json:"symbol"`
	MarketCap *float64 `json:"market_cap"`
}

// FetchDailyCloses asks for the number of calendar days between from and to
// and keeps the bars that fall inside the window.
func (f *GatewayFetcher) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	days := int(to.Sub(from).Hours()/24) + 1
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(days))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	var bars []gatewayBar
	if err := f.get(ctx, endpoint, &bars); err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch bars: %w", err)
	}
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("gateway: %w for %s", ErrNoData, symbol)
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		ts := time.Unix(b.Timestamp, 0).UTC()
		if ts.Before(from) || ts.After(to) {
			continue
		}
		p := model.PricePoint{Time: ts, Close: math.NaN()}
		if b.Close != nil {
			p.Close = *b.Close
		}
		points = append(points, p)
	}
	// Ensure chronological order
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return model.PriceSeries{Symbol: symbol, Points: points, FetchedAt: time.Now()}, nil
}

func (f *GatewayFetcher) FetchMarketCap(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	endpoint := fmt.Sprintf("%s/api/v1/profile?%s", f.BaseURL, q.Encode())

	var profile gatewayProfile
	if err := f.get(ctx, endpoint, &profile); err != nil {
		return 0, fmt.Errorf("fetch profile: %w", err)
	}
	if profile.MarketCap == nil {
		return 0, ErrNoMarketCap
	}
	return *profile.MarketCap, nil
}

func (f *GatewayFetcher) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
