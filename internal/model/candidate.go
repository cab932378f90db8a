package model

import "time"

// Stage identifies one step of the screening pipeline.
type Stage string

const (
	StageMomentum         Stage = "momentum"
	StageCapitalization   Stage = "capitalization"
	StageRelativeStrength Stage = "relative_strength"
	StageNoDrawdown       Stage = "no_drawdown"
)

// Reason explains why a ticker left the pipeline.
type Reason string

const (
	ReasonMissingSeries        Reason = "missing_series"
	ReasonInsufficientHistory  Reason = "insufficient_history"
	ReasonUndefinedReturn      Reason = "undefined_return"
	ReasonOutOfBand            Reason = "out_of_band"
	ReasonMarketCapUnavailable Reason = "market_cap_unavailable"
	ReasonMarketCapLookup      Reason = "market_cap_lookup_failed"
	ReasonBelowCapFloor        Reason = "below_cap_floor"
	ReasonNotUnderperforming   Reason = "not_underperforming"
	ReasonDrawdown             Reason = "drawdown"
)

// Candidate is a ticker that passed the momentum stage. Optional fields are
// set by the later stages it survives.
type Candidate struct {
	Ticker           string
	QuarterlyReturn  float64
	SemiannualReturn float64
	MarketCap        *float64
	ShortTermReturn  *float64
}

// Exclusion records the stage and reason a ticker was dropped.
type Exclusion struct {
	Ticker string
	Stage  Stage
	Reason Reason
	Detail string
}

// StageSummary counts tickers entering and leaving a stage.
type StageSummary struct {
	Stage Stage
	In    int
	Out   int
}

// ScanResult is the final output of one screening run.
type ScanResult struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Analyzed        int
	BenchmarkSymbol string
	BenchmarkReturn *float64
	// Degraded is set when the benchmark return was unavailable and the run
	// stopped after the capitalization stage.
	Degraded   bool
	Stages     []StageSummary
	Survivors  []*Candidate
	Exclusions []Exclusion
}

// ExclusionsAt returns the exclusions recorded by the given stage.
func (r *ScanResult) ExclusionsAt(stage Stage) []Exclusion {
	var out []Exclusion
	for _, e := range r.Exclusions {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
