package collector

import (
	"context"
	"errors"
	"time"

	"MomentumScreener/internal/model"
)

var (
	// ErrNoData is returned when a mandatory bulk input came back empty.
	ErrNoData = errors.New("no data")
	// ErrNoMarketCap is returned when the source has no capitalization for a symbol.
	ErrNoMarketCap = errors.New("market cap not available")
)

// Fetcher defines the interface for fetching price history and metadata.
type Fetcher interface {
	FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error)
	FetchMarketCap(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// UniverseSource returns the ordered list of tickers to screen.
type UniverseSource interface {
	FetchSymbols(ctx context.Context) ([]string, error)
	Name() string
}

// StaticUniverse is a fixed symbol list taken from configuration.
type StaticUniverse []string

func (s StaticUniverse) Name() string { return "static" }

func (s StaticUniverse) FetchSymbols(_ context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}
