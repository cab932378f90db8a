package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"MomentumScreener/internal/collector"
	"MomentumScreener/internal/config"
	"MomentumScreener/internal/notifier"
	"MomentumScreener/internal/recorder"
	"MomentumScreener/internal/scheduler"
	"MomentumScreener/internal/screener"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("screener failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	params := screener.Params{
		QuarterWindow:   cfg.Screener.QuarterWindow,
		HalfYearWindow:  cfg.Screener.HalfYearWindow,
		QuarterlyMin:    cfg.Screener.QuarterlyMin,
		QuarterlyMax:    cfg.Screener.QuarterlyMax,
		SemiannualMin:   cfg.Screener.SemiannualMin,
		SemiannualMax:   cfg.Screener.SemiannualMax,
		MinMarketCap:    cfg.Screener.MinMarketCap,
		ShortTermWindow: cfg.Screener.ShortTermWindow,
		DrawdownWindow:  cfg.Screener.DrawdownWindow,
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("screener params: %w", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewGatewayFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}

	var universe collector.UniverseSource
	if len(cfg.DataSource.Symbols) > 0 {
		universe = collector.StaticUniverse(cfg.DataSource.Symbols)
	} else {
		universe = collector.NewNasdaqDirectory(cfg.DataSource.UniverseURL, cfg.Proxy)
	}
	logger.Info("data sources", zap.String("prices", fetcher.Name()), zap.String("universe", universe.Name()))

	col := collector.NewCollector(fetcher, universe, cfg.DataSource.BenchmarkSymbol,
		cfg.DataSource.LookbackMonths, cfg.DataSource.BenchmarkLookbackDays, logger.Named("collector"))
	scr := screener.New(params, fetcher, logger.Named("screener"))

	var rec recorder.Recorder
	if cfg.Output.ResultFile != "" {
		rec = recorder.NewFileRecorder(cfg.Output.ResultFile, logger.Named("recorder"))
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		sender = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, col, scr, rec, sender, os.Stdout, cfg.Screener.Limit, logger)

	if cfg.Schedule.Cron == "" {
		_, err := sched.RunNow()
		return err
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing scan now")
		sched.Trigger()
	}

	logger.Info("screener scheduled", zap.String("cron", cfg.Schedule.Cron))
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	return nil
}

func newLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	// stdout carries the report
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
