package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"MomentumScreener/internal/collector"
	"MomentumScreener/internal/model"
	"MomentumScreener/internal/recorder"
	"MomentumScreener/internal/report"
	"MomentumScreener/internal/screener"
)

// Sender delivers a finished report somewhere outside the process.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Scheduler runs scans on demand or on a cron schedule.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Screener  *screener.Screener
	Recorder  recorder.Recorder
	Notifier  Sender // nil disables delivery
	Out       io.Writer
	Limit     int
	Logger    *zap.Logger
	Ctx       context.Context

	newRunID func() string
	job      cron.Job // the scan task behind SkipIfStillRunning; shared by cron and Trigger
	wg       sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, scr *screener.Screener, rec recorder.Recorder, notifier Sender, out io.Writer, limit int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLogger(cl)),
		Collector: col,
		Screener:  scr,
		Recorder:  rec,
		Notifier:  notifier,
		Out:       out,
		Limit:     limit,
		Logger:    logger,
		Ctx:       ctx,
		newRunID:  func() string { return uuid.NewString() },
	}
	s.job = cron.SkipIfStillRunning(cl)(cron.FuncJob(s.scanTask))
	return s
}

// Register schedules the scan task with a six-field cron spec or a descriptor such as "@daily".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddJob(spec, s.job); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Trigger starts a scan in the background. It is skipped when another scan,
// scheduled or triggered, is still running.
func (s *Scheduler) Trigger() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
}

// Stop stops the cron scheduler and waits for running scans to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.Logger.Info("scheduler stopped")
}

func (s *Scheduler) scanTask() {
	if _, err := s.RunNow(); err != nil {
		s.Logger.Error("scheduled scan failed", zap.Error(err))
	}
}

// RunNow executes one scan end to end: universe, benchmark, series, the four
// stages, then report, result file and notification. A result is returned
// whenever the stages ran, even if saving it failed.
func (s *Scheduler) RunNow() (*model.ScanResult, error) {
	start := time.Now()
	runID := s.newRunID()
	log := s.Logger.With(zap.String("run_id", runID))
	log.Info("scan started", zap.Int("limit", s.Limit))

	tickers, err := s.Collector.Tickers(s.Ctx, s.Limit)
	if err != nil {
		s.reportNoData(log, err)
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	log.Info("analyzing tickers", zap.Int("count", len(tickers)))

	benchmark := s.benchmarkReturn(log)

	universe, err := s.Collector.LoadUniverse(s.Ctx, tickers)
	if err != nil {
		s.reportNoData(log, err)
		return nil, fmt.Errorf("load universe: %w", err)
	}

	res, err := s.Screener.Run(s.Ctx, tickers, universe, benchmark)
	if err != nil {
		return nil, fmt.Errorf("screen: %w", err)
	}
	res.RunID = runID
	res.BenchmarkSymbol = s.Collector.BenchmarkSymbol

	if err := report.Table(s.Out, res); err != nil {
		log.Error("print report failed", zap.Error(err))
	}

	var saveErr error
	if err := s.Recorder.Record(res); err != nil {
		log.Error("save results failed", zap.Error(err))
		fmt.Fprintf(s.Out, "Could not save results: %v\n", err)
		saveErr = fmt.Errorf("save results: %w", err)
	}

	if s.Notifier != nil {
		if err := s.Notifier.Send(s.Ctx, report.Text(res)); err != nil {
			log.Error("send report failed", zap.Error(err))
		}
	}

	log.Info("scan finished",
		zap.Int("survivors", len(res.Survivors)),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("elapsed", time.Since(start)))
	return res, saveErr
}

// benchmarkReturn returns nil when the benchmark cannot be loaded or has too
// little history; the run then continues degraded.
func (s *Scheduler) benchmarkReturn(log *zap.Logger) *float64 {
	series, err := s.Collector.LoadBenchmark(s.Ctx)
	if err != nil {
		log.Warn("benchmark fetch failed", zap.Error(err))
		return nil
	}
	r, err := screener.BenchmarkReturn(series, s.Screener.Params.ShortTermWindow)
	if err != nil {
		log.Warn("benchmark return unavailable", zap.String("symbol", series.Symbol), zap.Error(err))
		return nil
	}
	log.Info("benchmark return", zap.String("symbol", s.Collector.BenchmarkSymbol), zap.Float64("pct", r))
	return &r
}

func (s *Scheduler) reportNoData(log *zap.Logger, err error) {
	if errors.Is(err, collector.ErrNoData) {
		log.Error("no data, scan aborted", zap.Error(err))
		fmt.Fprintln(s.Out, "No data available for analysis.")
		return
	}
	log.Error("scan aborted", zap.Error(err))
	fmt.Fprintf(s.Out, "Scan aborted: %v\n", err)
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
