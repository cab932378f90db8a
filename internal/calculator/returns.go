package calculator

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientData is returned when a series is shorter than the lookback.
	ErrInsufficientData = errors.New("not enough data")
	// ErrUndefinedReturn is returned when the base price is not positive or the
	// ratio is not a finite number.
	ErrUndefinedReturn = errors.New("undefined return")
)

// PercentChange returns (closes[-1] / closes[-offset] - 1) * 100.
// offset counts back from the end with 1 being the latest close, so offset 4
// compares today with the close three sessions earlier.
func PercentChange(closes []float64, offset int) (float64, error) {
	if offset <= 0 {
		return 0, errors.New("offset must be positive")
	}
	if len(closes) < offset {
		return 0, fmt.Errorf("%w: have %d closes, need %d", ErrInsufficientData, len(closes), offset)
	}
	base := closes[len(closes)-offset]
	if base <= 0 {
		return 0, fmt.Errorf("%w: base price %v", ErrUndefinedReturn, base)
	}
	pct := (closes[len(closes)-1]/base - 1) * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, ErrUndefinedReturn
	}
	return pct, nil
}

// NotBelow reports whether the latest close is at or above closes[-offset].
func NotBelow(closes []float64, offset int) (bool, error) {
	if offset <= 0 {
		return false, errors.New("offset must be positive")
	}
	if len(closes) < offset {
		return false, fmt.Errorf("%w: have %d closes, need %d", ErrInsufficientData, len(closes), offset)
	}
	return closes[len(closes)-1] >= closes[len(closes)-offset], nil
}

// InBand reports whether lo <= v <= hi.
func InBand(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
