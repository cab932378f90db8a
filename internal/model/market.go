package model

import (
	"math"
	"time"
)

// PricePoint is a single daily close. A gap (holiday, halted session, null
// value from the source) is stored as a NaN close.
type PricePoint struct {
	Time  time.Time
	Close float64
}

// Valid reports whether the point carries a usable close.
func (p PricePoint) Valid() bool {
	return !math.IsNaN(p.Close) && !math.IsInf(p.Close, 0)
}

// PriceSeries holds the daily closes of one ticker, ascending by date.
type PriceSeries struct {
	Symbol    string
	Points    []PricePoint
	FetchedAt time.Time
}

// Closes returns the valid closes in date order with gaps dropped.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Valid() {
			closes = append(closes, p.Close)
		}
	}
	return closes
}
