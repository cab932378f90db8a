package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"MomentumScreener/internal/model"
)

const (
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
	// fc.yahoo.com answers 404 but sets the A3 session cookie the crumb is bound to.
	defaultYahooCookieURL = "https://fc.yahoo.com"
)

// errUnauthorized is returned by get on 401, which Yahoo sends for a missing or stale crumb.
var errUnauthorized = errors.New("yahoo: unauthorized")

// YahooFetcher implements Fetcher using Yahoo Finance public API.
// The quote endpoint needs a session cookie plus a matching crumb; both are
// fetched on first use and kept in Client's cookie jar and crumb.
type YahooFetcher struct {
	BaseURL   string
	CookieURL string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	mu    sync.Mutex
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	client := newHTTPClient(proxyURL)
	client.Jar, _ = cookiejar.New(nil) // only fails on a bad PublicSuffixList
	return &YahooFetcher{
		BaseURL:   defaultYahooBaseURL,
		CookieURL: defaultYahooCookieURL,
		Client:    client,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
// Values are pointers because Yahoo sends null for sessions without a print.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooQuote struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string   `json:"symbol"`
			MarketCap *float64 `json:"marketCap"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

func (f *YahooFetcher) newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	return req, nil
}

func (f *YahooFetcher) get(ctx context.Context, u string, out any) error {
	req, err := f.newRequest(ctx, u)
	if err != nil {
		return err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", errUnauthorized, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// sessionCrumb returns the cached crumb, performing the cookie and crumb
// handshake when there is none.
func (f *YahooFetcher) sessionCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}

	req, err := f.newRequest(ctx, f.CookieURL)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo session cookie: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	req, err = f.newRequest(ctx, f.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", err
	}
	resp, err = f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || crumb == "" {
		return "", fmt.Errorf("yahoo crumb: status %d, body: %s", resp.StatusCode, crumb)
	}
	f.crumb = crumb
	return crumb, nil
}

func (f *YahooFetcher) resetCrumb() {
	f.mu.Lock()
	f.crumb = ""
	f.mu.Unlock()
}

// FetchDailyCloses returns split and dividend adjusted daily closes between from and to.
func (f *YahooFetcher) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("events", "div,split")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), q.Encode())

	var chart yahooChart
	if err := f.get(ctx, u, &chart); err != nil {
		return model.PriceSeries{}, err
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo: %w for %s", ErrNoData, symbol)
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(closes) != len(result.Timestamp) {
		return model.PriceSeries{}, fmt.Errorf("yahoo: %d timestamps but %d closes for %s", len(result.Timestamp), len(closes), symbol)
	}

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := math.NaN()
		if closes[i] != nil {
			c = *closes[i]
		}
		points = append(points, model.PricePoint{Time: time.Unix(ts, 0).UTC(), Close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	return model.PriceSeries{Symbol: symbol, Points: points, FetchedAt: time.Now()}, nil
}

// FetchMarketCap returns the latest market capitalization reported by Yahoo.
// A rejected crumb is refreshed once.
func (f *YahooFetcher) FetchMarketCap(ctx context.Context, symbol string) (float64, error) {
	quote, err := f.fetchQuote(ctx, symbol)
	if errors.Is(err, errUnauthorized) {
		f.resetCrumb()
		quote, err = f.fetchQuote(ctx, symbol)
	}
	if err != nil {
		return 0, err
	}
	if quote.QuoteResponse.Error != nil {
		return 0, fmt.Errorf("yahoo api error: %s", quote.QuoteResponse.Error.Description)
	}
	if len(quote.QuoteResponse.Result) == 0 || quote.QuoteResponse.Result[0].MarketCap == nil {
		return 0, ErrNoMarketCap
	}
	return *quote.QuoteResponse.Result[0].MarketCap, nil
}

func (f *YahooFetcher) fetchQuote(ctx context.Context, symbol string) (*yahooQuote, error) {
	crumb, err := f.sessionCrumb(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbols", f.yahooSymbol(symbol))
	q.Set("crumb", crumb)
	u := fmt.Sprintf("%s/v7/finance/quote?%s", f.BaseURL, q.Encode())

	var quote yahooQuote
	if err := f.get(ctx, u, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
