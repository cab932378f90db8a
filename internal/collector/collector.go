package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"MomentumScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Series     map[string]model.PriceSeries
	MarketCaps map[string]float64
	SeriesErrs map[string]error
	CapErrs    map[string]error

	SeriesCalls []string
	CapCalls    []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, symbol string, _, _ time.Time) (model.PriceSeries, error) {
	m.SeriesCalls = append(m.SeriesCalls, symbol)
	if err, ok := m.SeriesErrs[symbol]; ok {
		return model.PriceSeries{}, err
	}
	s, ok := m.Series[symbol]
	if !ok {
		return model.PriceSeries{}, fmt.Errorf("mock: %w for %s", ErrNoData, symbol)
	}
	return s, nil
}

func (m *MockFetcher) FetchMarketCap(_ context.Context, symbol string) (float64, error) {
	m.CapCalls = append(m.CapCalls, symbol)
	if err, ok := m.CapErrs[symbol]; ok {
		return 0, err
	}
	c, ok := m.MarketCaps[symbol]
	if !ok {
		return 0, ErrNoMarketCap
	}
	return c, nil
}

// SeriesFromCloses builds a daily series ending yesterday from plain closes.
func SeriesFromCloses(symbol string, closes []float64) model.PriceSeries {
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{
			Time:  end.AddDate(0, 0, -(len(closes) - 1 - i)),
			Close: c,
		}
	}
	return model.PriceSeries{Symbol: symbol, Points: points, FetchedAt: end}
}

// Collector loads the benchmark and universe series a scan needs.
type Collector struct {
	Fetcher           Fetcher
	Universe          UniverseSource
	BenchmarkSymbol   string
	LookbackMonths    int
	BenchmarkLookback time.Duration
	Logger            *zap.Logger

	now func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, universe UniverseSource, benchmarkSymbol string, lookbackMonths, benchmarkLookbackDays int, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Fetcher:           fetcher,
		Universe:          universe,
		BenchmarkSymbol:   benchmarkSymbol,
		LookbackMonths:    lookbackMonths,
		BenchmarkLookback: time.Duration(benchmarkLookbackDays) * 24 * time.Hour,
		Logger:            logger,
		now:               time.Now,
	}
}

// Tickers fetches the universe and keeps the first limit symbols.
func (c *Collector) Tickers(ctx context.Context, limit int) ([]string, error) {
	symbols, err := c.Universe.FetchSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch universe from %s: %w", c.Universe.Name(), err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe %s: %w", c.Universe.Name(), ErrNoData)
	}
	c.Logger.Info("universe loaded", zap.String("source", c.Universe.Name()), zap.Int("symbols", len(symbols)))
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return symbols, nil
}

// LoadBenchmark fetches the short benchmark series.
func (c *Collector) LoadBenchmark(ctx context.Context) (model.PriceSeries, error) {
	to := c.now()
	series, err := c.Fetcher.FetchDailyCloses(ctx, c.BenchmarkSymbol, to.Add(-c.BenchmarkLookback), to)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch benchmark %s: %w", c.BenchmarkSymbol, err)
	}
	return series, nil
}

// LoadUniverse fetches every ticker's series sequentially. Tickers that fail
// are left out of the map.
func (c *Collector) LoadUniverse(ctx context.Context, tickers []string) (map[string]model.PriceSeries, error) {
	to := c.now()
	from := to.AddDate(0, -c.LookbackMonths, 0)

	out := make(map[string]model.PriceSeries, len(tickers))
	for i, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := c.Fetcher.FetchDailyCloses(ctx, t, from, to)
		if err != nil {
			c.Logger.Debug("series fetch failed", zap.String("ticker", t), zap.Error(err))
			continue
		}
		out[t] = series
		if (i+1)%100 == 0 {
			c.Logger.Info("universe progress", zap.Int("fetched", i+1), zap.Int("total", len(tickers)))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("universe series: %w", ErrNoData)
	}
	c.Logger.Info("universe series loaded",
		zap.String("source", c.Fetcher.Name()),
		zap.Int("requested", len(tickers)),
		zap.Int("received", len(out)))
	return out, nil
}
