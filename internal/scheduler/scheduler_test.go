package scheduler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"MomentumScreener/internal/collector"
	"MomentumScreener/internal/model"
	"MomentumScreener/internal/recorder"
	"MomentumScreener/internal/screener"
)

// passing: q=+25%, h=+42.86%, short-term +5.26%, no drawdown.
func passing() []float64 {
	out := make([]float64, 0, 130)
	for i := 0; i < 67; i++ {
		out = append(out, 70)
	}
	for len(out) < 123 {
		out = append(out, 80)
	}
	return append(out, 95, 96, 97, 95, 98, 99, 100)
}

func flat() []float64 {
	out := make([]float64, 130)
	for i := range out {
		out[i] = 50
	}
	return out
}

type fakeSender struct {
	texts []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(*model.ScanResult) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingRecorder) Close() error { return nil }

func newTestScheduler(t *testing.T, f *collector.MockFetcher, symbols []string, rec recorder.Recorder, sender Sender) (*Scheduler, *bytes.Buffer) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	col := collector.NewCollector(f, collector.StaticUniverse(symbols), "SP500", 7, 10, logger)
	scr := screener.New(screener.DefaultParams(), f, logger)
	out := &bytes.Buffer{}
	s := NewScheduler(context.Background(), col, scr, rec, sender, out, 0, logger)
	s.newRunID = func() string { return "run-1" }
	return s, out
}

func fullFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{
		Series: map[string]model.PriceSeries{
			"SP500": collector.SeriesFromCloses("SP500", []float64{100, 100, 100, 106}),
			"PASS":  collector.SeriesFromCloses("PASS", passing()),
			"FLAT":  collector.SeriesFromCloses("FLAT", flat()),
		},
		MarketCaps: map[string]float64{"PASS": 2.5e9},
	}
}

func TestRunNow_FullRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.txt")
	sender := &fakeSender{}
	s, out := newTestScheduler(t, fullFetcher(), []string{"PASS", "FLAT"}, recorder.NewFileRecorder(path, zaptest.NewLogger(t)), sender)

	res, err := s.RunNow()
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "SP500", res.BenchmarkSymbol)
	assert.False(t, res.Degraded)
	require.Len(t, res.Survivors, 1)
	assert.Equal(t, "PASS", res.Survivors[0].Ticker)

	assert.Contains(t, out.String(), "PASS")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{"PASS, 25.00, 42.86, 5.26", "SP500, 6.00"}, lines)

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "PASS")
}

func TestRunNow_EmptyUniverseStopsEarly(t *testing.T) {
	f := fullFetcher()
	rec := &failingRecorder{}
	s, out := newTestScheduler(t, f, nil, rec, nil)

	res, err := s.RunNow()
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, collector.ErrNoData))
	assert.Contains(t, out.String(), "No data")
	assert.Empty(t, f.CapCalls)
	assert.Zero(t, rec.calls)
}

func TestRunNow_NoSeriesStopsEarly(t *testing.T) {
	f := &collector.MockFetcher{
		Series: map[string]model.PriceSeries{
			"SP500": collector.SeriesFromCloses("SP500", []float64{100, 100, 100, 106}),
		},
	}
	path := filepath.Join(t.TempDir(), "results.txt")
	s, out := newTestScheduler(t, f, []string{"GONE", "MISSING"}, recorder.NewFileRecorder(path, nil), nil)

	_, err := s.RunNow()
	require.ErrorIs(t, err, collector.ErrNoData)
	assert.Contains(t, out.String(), "No data")
	assert.Empty(t, f.CapCalls)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no result file on a no-data run")
}

func TestRunNow_MissingBenchmarkDegrades(t *testing.T) {
	f := fullFetcher()
	delete(f.Series, "SP500")
	path := filepath.Join(t.TempDir(), "results.txt")
	s, out := newTestScheduler(t, f, []string{"PASS", "FLAT"}, recorder.NewFileRecorder(path, nil), nil)

	res, err := s.RunNow()
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Nil(t, res.BenchmarkReturn)
	require.Len(t, res.Survivors, 1)
	assert.Nil(t, res.Survivors[0].ShortTermReturn)
	assert.Len(t, res.Stages, 2)
	assert.Contains(t, out.String(), "stages skipped")
}

func TestRunNow_SaveFailureKeepsReport(t *testing.T) {
	rec := &failingRecorder{}
	s, out := newTestScheduler(t, fullFetcher(), []string{"PASS"}, rec, nil)

	res, err := s.RunNow()
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, rec.calls)
	assert.Contains(t, out.String(), "PASS")
	assert.Contains(t, out.String(), "Could not save results")
}

func TestRunNow_NotifierFailureIsNotFatal(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	s, _ := newTestScheduler(t, fullFetcher(), []string{"PASS"}, recorder.NewNoopRecorder(), sender)

	res, err := s.RunNow()
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, sender.texts, 1)
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, fullFetcher(), []string{"PASS"}, recorder.NewNoopRecorder(), nil)

	assert.NoError(t, s.Register("0 30 21 * * MON-FRI"))
	assert.NoError(t, s.Register("@daily"))
	assert.Error(t, s.Register("not a cron"))
	assert.Len(t, s.Cron.Entries(), 2)

	s.Start()
	s.Stop()
}

// blockingFetcher holds the first series fetch until release is closed.
type blockingFetcher struct {
	*collector.MockFetcher
	started chan struct{}
	release chan struct{}
	once    atomic.Bool
}

func (b *blockingFetcher) FetchDailyCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	if b.once.CompareAndSwap(false, true) {
		close(b.started)
		<-b.release
	}
	return b.MockFetcher.FetchDailyCloses(ctx, symbol, from, to)
}

type countingRecorder struct{ calls atomic.Int32 }

func (c *countingRecorder) Record(*model.ScanResult) error {
	c.calls.Add(1)
	return nil
}

func (c *countingRecorder) Close() error { return nil }

func TestTrigger_SkipsOverlappingScanAndStopWaits(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mock := fullFetcher()
	f := &blockingFetcher{MockFetcher: mock, started: make(chan struct{}), release: make(chan struct{})}
	col := collector.NewCollector(f, collector.StaticUniverse{"PASS"}, "SP500", 7, 10, logger)
	rec := &countingRecorder{}
	s := NewScheduler(context.Background(), col, screener.New(screener.DefaultParams(), mock, logger), rec, nil, &bytes.Buffer{}, 0, logger)

	s.Trigger()
	<-f.started

	// A second run of the guarded job while the first is busy returns at once.
	s.job.Run()
	assert.Zero(t, rec.calls.Load())

	close(f.release)
	s.Stop()
	assert.Equal(t, int32(1), rec.calls.Load(), "Stop waits for the triggered scan")
}
