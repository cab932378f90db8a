package screener

import (
	"context"
	"errors"
	"fmt"
	"math"

	"MomentumScreener/internal/calculator"
	"MomentumScreener/internal/collector"
	"MomentumScreener/internal/model"
)

func exclude(ticker string, stage model.Stage, reason model.Reason, detail string) *model.Exclusion {
	return &model.Exclusion{Ticker: ticker, Stage: stage, Reason: reason, Detail: detail}
}

// reasonFor maps a calculator error to an exclusion reason.
func reasonFor(err error) model.Reason {
	if errors.Is(err, calculator.ErrInsufficientData) {
		return model.ReasonInsufficientHistory
	}
	return model.ReasonUndefinedReturn
}

// evalMomentum computes quarter and half-year returns and checks both bands.
func (s *Screener) evalMomentum(ticker string, series model.PriceSeries, found bool) (*model.Candidate, *model.Exclusion) {
	if !found {
		return nil, exclude(ticker, model.StageMomentum, model.ReasonMissingSeries, "no price series")
	}
	closes := series.Closes()
	if len(closes) < s.Params.MinHistory() {
		return nil, exclude(ticker, model.StageMomentum, model.ReasonInsufficientHistory,
			fmt.Sprintf("have %d closes, need %d", len(closes), s.Params.MinHistory()))
	}

	quarterly, err := calculator.PercentChange(closes, s.Params.QuarterWindow)
	if err != nil {
		return nil, exclude(ticker, model.StageMomentum, reasonFor(err), err.Error())
	}
	semiannual, err := calculator.PercentChange(closes, s.Params.HalfYearWindow)
	if err != nil {
		return nil, exclude(ticker, model.StageMomentum, reasonFor(err), err.Error())
	}

	if !calculator.InBand(quarterly, s.Params.QuarterlyMin, s.Params.QuarterlyMax) ||
		!calculator.InBand(semiannual, s.Params.SemiannualMin, s.Params.SemiannualMax) {
		return nil, exclude(ticker, model.StageMomentum, model.ReasonOutOfBand,
			fmt.Sprintf("quarterly %+.2f%%, semiannual %+.2f%%", quarterly, semiannual))
	}

	return &model.Candidate{
		Ticker:           ticker,
		QuarterlyReturn:  quarterly,
		SemiannualReturn: semiannual,
	}, nil
}

// evalCapitalization looks up the market cap and checks the floor.
func (s *Screener) evalCapitalization(ctx context.Context, c *model.Candidate) (float64, *model.Exclusion) {
	marketCap, err := s.Caps.FetchMarketCap(ctx, c.Ticker)
	switch {
	case errors.Is(err, collector.ErrNoMarketCap):
		return 0, exclude(c.Ticker, model.StageCapitalization, model.ReasonMarketCapUnavailable, err.Error())
	case err != nil:
		return 0, exclude(c.Ticker, model.StageCapitalization, model.ReasonMarketCapLookup, err.Error())
	case math.IsNaN(marketCap) || math.IsInf(marketCap, 0) || marketCap <= 0:
		return 0, exclude(c.Ticker, model.StageCapitalization, model.ReasonMarketCapUnavailable,
			fmt.Sprintf("market cap %v", marketCap))
	case marketCap <= s.Params.MinMarketCap:
		return 0, exclude(c.Ticker, model.StageCapitalization, model.ReasonBelowCapFloor,
			fmt.Sprintf("market cap %.0f <= %.0f", marketCap, s.Params.MinMarketCap))
	}
	return marketCap, nil
}

// evalRelativeStrength keeps tickers whose short-term return lags the benchmark.
func (s *Screener) evalRelativeStrength(c *model.Candidate, series model.PriceSeries, benchmark float64) (float64, *model.Exclusion) {
	shortTerm, err := calculator.PercentChange(series.Closes(), s.Params.ShortTermWindow)
	if err != nil {
		return 0, exclude(c.Ticker, model.StageRelativeStrength, reasonFor(err), err.Error())
	}
	if !(shortTerm < benchmark) {
		return 0, exclude(c.Ticker, model.StageRelativeStrength, model.ReasonNotUnderperforming,
			fmt.Sprintf("short-term %+.2f%% >= benchmark %+.2f%%", shortTerm, benchmark))
	}
	return shortTerm, nil
}

// evalNoDrawdown keeps tickers whose latest close is not below closes[-DrawdownWindow].
func (s *Screener) evalNoDrawdown(c *model.Candidate, series model.PriceSeries) *model.Exclusion {
	ok, err := calculator.NotBelow(series.Closes(), s.Params.DrawdownWindow)
	if err != nil {
		return exclude(c.Ticker, model.StageNoDrawdown, reasonFor(err), err.Error())
	}
	if !ok {
		return exclude(c.Ticker, model.StageNoDrawdown, model.ReasonDrawdown,
			fmt.Sprintf("close below the close %d sessions ago", s.Params.DrawdownWindow-1))
	}
	return nil
}
