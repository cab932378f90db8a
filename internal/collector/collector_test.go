package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"MomentumScreener/internal/model"
)

type failingUniverse struct{ err error }

func (f failingUniverse) Name() string { return "failing" }
func (f failingUniverse) FetchSymbols(context.Context) ([]string, error) {
	return nil, f.err
}

func newTestCollector(t *testing.T, f Fetcher, u UniverseSource) *Collector {
	c := NewCollector(f, u, "SP500", 7, 10, zaptest.NewLogger(t))
	c.now = func() time.Time { return time.Date(2024, 6, 28, 22, 0, 0, 0, time.UTC) }
	return c
}

func TestCollector_TickersAppliesLimitInOrder(t *testing.T) {
	c := newTestCollector(t, &MockFetcher{}, StaticUniverse{"A", "B", "C", "D"})
	got, err := c.Tickers(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, got)

	got, err = c.Tickers(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 4, "non-positive limit keeps everything")
}

func TestCollector_TickersEmpty(t *testing.T) {
	c := newTestCollector(t, &MockFetcher{}, StaticUniverse{})
	_, err := c.Tickers(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCollector_TickersSourceError(t *testing.T) {
	c := newTestCollector(t, &MockFetcher{}, failingUniverse{err: errors.New("dns")})
	_, err := c.Tickers(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
}

func TestCollector_LoadUniverseSkipsFailures(t *testing.T) {
	f := &MockFetcher{
		Series: map[string]model.PriceSeries{
			"A": SeriesFromCloses("A", []float64{1, 2, 3}),
			"C": SeriesFromCloses("C", []float64{4, 5, 6}),
		},
		SeriesErrs: map[string]error{"B": errors.New("timeout")},
	}
	c := newTestCollector(t, f, StaticUniverse{})

	got, err := c.LoadUniverse(context.Background(), []string{"A", "B", "C", "D"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "A")
	assert.Contains(t, got, "C")
	assert.Equal(t, []string{"A", "B", "C", "D"}, f.SeriesCalls)
}

func TestCollector_LoadUniverseEmpty(t *testing.T) {
	c := newTestCollector(t, &MockFetcher{}, StaticUniverse{})
	_, err := c.LoadUniverse(context.Background(), []string{"A", "B"})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCollector_LoadUniverseCancelled(t *testing.T) {
	c := newTestCollector(t, &MockFetcher{}, StaticUniverse{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.LoadUniverse(ctx, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollector_LoadBenchmark(t *testing.T) {
	f := &MockFetcher{Series: map[string]model.PriceSeries{
		"SP500": SeriesFromCloses("SP500", []float64{100, 101, 102, 103}),
	}}
	c := newTestCollector(t, f, StaticUniverse{})
	s, err := c.LoadBenchmark(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.Closes(), 4)

	c.BenchmarkSymbol = "MISSING"
	_, err = c.LoadBenchmark(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}
