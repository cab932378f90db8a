package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL               string   `yaml:"base_url"`
		APIKey                string   `yaml:"api_key"`
		UniverseURL           string   `yaml:"universe_url"`
		Symbols               []string `yaml:"symbols"`
		BenchmarkSymbol       string   `yaml:"benchmark_symbol"`
		LookbackMonths        int      `yaml:"lookback_months"`
		BenchmarkLookbackDays int      `yaml:"benchmark_lookback_days"`
	} `yaml:"data_source"`
	Screener struct {
		Limit           int     `yaml:"limit"`
		QuarterWindow   int     `yaml:"quarter_window"`
		HalfYearWindow  int     `yaml:"half_year_window"`
		QuarterlyMin    float64 `yaml:"quarterly_min"`
		QuarterlyMax    float64 `yaml:"quarterly_max"`
		SemiannualMin   float64 `yaml:"semiannual_min"`
		SemiannualMax   float64 `yaml:"semiannual_max"`
		MinMarketCap    float64 `yaml:"min_market_cap"`
		ShortTermWindow int     `yaml:"short_term_window"`
		DrawdownWindow  int     `yaml:"drawdown_window"`
	} `yaml:"screener"`
	Output struct {
		ResultFile string `yaml:"result_file"`
	} `yaml:"output"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("SCREENER_SYMBOLS"); v != "" {
		cfg.DataSource.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("SCREENER_LIMIT"); v != "" {
		var limit int
		if _, err := fmt.Sscanf(v, "%d", &limit); err == nil {
			cfg.Screener.Limit = limit
		}
	}
	if v := os.Getenv("RESULT_FILE"); v != "" {
		cfg.Output.ResultFile = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.BenchmarkSymbol == "" {
		cfg.DataSource.BenchmarkSymbol = "SP500"
	}
	if cfg.DataSource.LookbackMonths == 0 {
		cfg.DataSource.LookbackMonths = 7
	}
	if cfg.DataSource.BenchmarkLookbackDays == 0 {
		cfg.DataSource.BenchmarkLookbackDays = 10
	}
	s := &cfg.Screener
	if s.Limit == 0 {
		s.Limit = 300
	}
	if s.QuarterWindow == 0 {
		s.QuarterWindow = 63
	}
	if s.HalfYearWindow == 0 {
		s.HalfYearWindow = 126
	}
	// An all-zero band means the section was left out.
	if s.QuarterlyMin == 0 && s.QuarterlyMax == 0 {
		s.QuarterlyMin, s.QuarterlyMax = 15, 80
	}
	if s.SemiannualMin == 0 && s.SemiannualMax == 0 {
		s.SemiannualMin, s.SemiannualMax = 25, 100
	}
	if s.MinMarketCap == 0 {
		s.MinMarketCap = 100_000_000
	}
	if s.ShortTermWindow == 0 {
		s.ShortTermWindow = 4
	}
	if s.DrawdownWindow == 0 {
		s.DrawdownWindow = 7
	}
	if cfg.Output.ResultFile == "" {
		cfg.Output.ResultFile = "data/results.txt"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Screener.Limit < 0 {
		return fmt.Errorf("screener.limit must not be negative")
	}
	if c.DataSource.LookbackMonths < 0 {
		return fmt.Errorf("data_source.lookback_months must not be negative")
	}
	if c.DataSource.BenchmarkLookbackDays < 0 {
		return fmt.Errorf("data_source.benchmark_lookback_days must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether report delivery to Telegram is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
