package screener

import (
	"errors"
	"fmt"
)

// Params holds every threshold of the pipeline. Offsets count back from the
// latest close, so QuarterWindow 63 compares closes[-1] with closes[-63].
type Params struct {
	QuarterWindow  int
	HalfYearWindow int
	QuarterlyMin   float64
	QuarterlyMax   float64
	SemiannualMin  float64
	SemiannualMax  float64

	MinMarketCap float64

	ShortTermWindow int
	DrawdownWindow  int
}

// DefaultParams returns the thresholds the screen was tuned with.
func DefaultParams() Params {
	return Params{
		QuarterWindow:   63,
		HalfYearWindow:  126,
		QuarterlyMin:    15,
		QuarterlyMax:    80,
		SemiannualMin:   25,
		SemiannualMax:   100,
		MinMarketCap:    100_000_000,
		ShortTermWindow: 4,
		DrawdownWindow:  7,
	}
}

// MinHistory is the number of valid closes the momentum stage requires.
func (p Params) MinHistory() int {
	return p.HalfYearWindow + 1
}

// Validate checks internal consistency of the thresholds.
func (p Params) Validate() error {
	if p.QuarterWindow < 2 || p.HalfYearWindow < 2 {
		return errors.New("quarter and half-year windows must be at least 2")
	}
	if p.QuarterWindow >= p.HalfYearWindow {
		return fmt.Errorf("quarter window %d must be shorter than half-year window %d", p.QuarterWindow, p.HalfYearWindow)
	}
	if p.QuarterlyMin > p.QuarterlyMax {
		return fmt.Errorf("quarterly band [%v, %v] is empty", p.QuarterlyMin, p.QuarterlyMax)
	}
	if p.SemiannualMin > p.SemiannualMax {
		return fmt.Errorf("semiannual band [%v, %v] is empty", p.SemiannualMin, p.SemiannualMax)
	}
	if p.MinMarketCap < 0 {
		return errors.New("minimum market cap must not be negative")
	}
	if p.ShortTermWindow < 2 {
		return errors.New("short-term window must be at least 2")
	}
	if p.DrawdownWindow < 2 {
		return errors.New("drawdown window must be at least 2")
	}
	return nil
}
