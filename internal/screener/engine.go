package screener

import (
	"context"
	"time"

	"go.uber.org/zap"

	"MomentumScreener/internal/calculator"
	"MomentumScreener/internal/model"
)

// MarketCapSource looks up one ticker's market capitalization.
type MarketCapSource interface {
	FetchMarketCap(ctx context.Context, symbol string) (float64, error)
}

// Screener runs the four filter stages in fixed order.
type Screener struct {
	Params Params
	Caps   MarketCapSource
	Logger *zap.Logger

	now func() time.Time
}

// New creates a Screener. A nil logger discards output.
func New(params Params, caps MarketCapSource, logger *zap.Logger) *Screener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screener{Params: params, Caps: caps, Logger: logger, now: time.Now}
}

// BenchmarkReturn computes the benchmark's short-term percent return.
func BenchmarkReturn(series model.PriceSeries, window int) (float64, error) {
	return calculator.PercentChange(series.Closes(), window)
}

// Momentum is stage 1. Candidates keep the order of tickers.
func (s *Screener) Momentum(tickers []string, universe map[string]model.PriceSeries) ([]*model.Candidate, []model.Exclusion) {
	var kept []*model.Candidate
	var dropped []model.Exclusion
	for _, t := range tickers {
		series, found := universe[t]
		c, ex := s.evalMomentum(t, series, found)
		if ex != nil {
			dropped = append(dropped, *ex)
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

// Capitalization is stage 2. It performs one lookup per candidate.
func (s *Screener) Capitalization(ctx context.Context, cands []*model.Candidate) ([]*model.Candidate, []model.Exclusion, error) {
	var kept []*model.Candidate
	var dropped []model.Exclusion
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		marketCap, ex := s.evalCapitalization(ctx, c)
		if ex != nil {
			dropped = append(dropped, *ex)
			continue
		}
		c.MarketCap = &marketCap
		kept = append(kept, c)
	}
	return kept, dropped, nil
}

// RelativeStrength is stage 3. It reuses the already fetched series.
func (s *Screener) RelativeStrength(cands []*model.Candidate, universe map[string]model.PriceSeries, benchmark float64) ([]*model.Candidate, []model.Exclusion) {
	var kept []*model.Candidate
	var dropped []model.Exclusion
	for _, c := range cands {
		shortTerm, ex := s.evalRelativeStrength(c, universe[c.Ticker], benchmark)
		if ex != nil {
			dropped = append(dropped, *ex)
			continue
		}
		c.ShortTermReturn = &shortTerm
		kept = append(kept, c)
	}
	return kept, dropped
}

// NoDrawdown is stage 4.
func (s *Screener) NoDrawdown(cands []*model.Candidate, universe map[string]model.PriceSeries) ([]*model.Candidate, []model.Exclusion) {
	var kept []*model.Candidate
	var dropped []model.Exclusion
	for _, c := range cands {
		if ex := s.evalNoDrawdown(c, universe[c.Ticker]); ex != nil {
			dropped = append(dropped, *ex)
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

// Run executes every stage. A nil benchmark stops the run after the
// capitalization stage and marks the result degraded. The only error is
// context cancellation.
func (s *Screener) Run(ctx context.Context, tickers []string, universe map[string]model.PriceSeries, benchmark *float64) (*model.ScanResult, error) {
	res := &model.ScanResult{
		StartedAt:       s.now(),
		Analyzed:        len(tickers),
		BenchmarkReturn: benchmark,
	}

	cands, dropped := s.Momentum(tickers, universe)
	s.record(res, model.StageMomentum, len(tickers), cands, dropped)

	in := len(cands)
	cands, dropped, err := s.Capitalization(ctx, cands)
	if err != nil {
		return nil, err
	}
	s.record(res, model.StageCapitalization, in, cands, dropped)

	if benchmark == nil {
		s.Logger.Warn("benchmark return unavailable, skipping relative-strength and drawdown stages")
		res.Degraded = true
		res.Survivors = cands
		res.FinishedAt = s.now()
		return res, nil
	}

	in = len(cands)
	cands, dropped = s.RelativeStrength(cands, universe, *benchmark)
	s.record(res, model.StageRelativeStrength, in, cands, dropped)

	in = len(cands)
	cands, dropped = s.NoDrawdown(cands, universe)
	s.record(res, model.StageNoDrawdown, in, cands, dropped)

	res.Survivors = cands
	res.FinishedAt = s.now()
	return res, nil
}

func (s *Screener) record(res *model.ScanResult, stage model.Stage, in int, kept []*model.Candidate, dropped []model.Exclusion) {
	res.Stages = append(res.Stages, model.StageSummary{Stage: stage, In: in, Out: len(kept)})
	res.Exclusions = append(res.Exclusions, dropped...)
	for _, ex := range dropped {
		s.Logger.Debug("ticker excluded",
			zap.String("ticker", ex.Ticker),
			zap.String("stage", string(ex.Stage)),
			zap.String("reason", string(ex.Reason)),
			zap.String("detail", ex.Detail))
	}
	s.Logger.Info("stage complete", zap.String("stage", string(stage)), zap.Int("in", in), zap.Int("out", len(kept)))
}
