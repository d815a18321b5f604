package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/afdelacruz/stock-finder/internal/cache"
	"github.com/afdelacruz/stock-finder/internal/collector"
	"github.com/afdelacruz/stock-finder/internal/scanner"
)

// Config holds all application configuration.
type Config struct {
	Scan struct {
		MinGainPct    float64 `yaml:"min_gain_pct"`
		LookbackYears int     `yaml:"lookback_years"`
	} `yaml:"scan"`
	Cache struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		TTLHours      int    `yaml:"ttl_hours"`
		MaxSizeBytes  int64  `yaml:"max_size_bytes"`
		DeleteCorrupt bool   `yaml:"delete_corrupt"`
	} `yaml:"cache"`
	Parallel struct {
		Enabled    bool `yaml:"enabled"`
		MaxWorkers int  `yaml:"max_workers"`
	} `yaml:"parallel"`
	DataSource struct {
		Provider        string        `yaml:"provider"` // "yahoo" or "rest"
		BaseURL         string        `yaml:"base_url"`
		APIKey          string        `yaml:"api_key"`
		RateLimitRPS    float64       `yaml:"rate_limit_rps"`
		Burst           int           `yaml:"burst"`
		Timeout         time.Duration `yaml:"timeout"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"data_source"`
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" or "postgres"
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Schedule struct {
		ScanCron     string `yaml:"scan_cron"`
		UniverseFile string `yaml:"universe_file"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Scan.MinGainPct = 500
	cfg.Scan.LookbackYears = 3
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = "data/cache"
	cfg.Cache.TTLHours = 24
	cfg.Cache.MaxSizeBytes = 2 << 30
	cfg.Cache.DeleteCorrupt = true
	cfg.Parallel.Enabled = true
	cfg.Parallel.MaxWorkers = 10
	cfg.DataSource.Provider = "yahoo"
	cfg.DataSource.RateLimitRPS = 10
	cfg.DataSource.Burst = 5
	cfg.DataSource.Timeout = 30 * time.Second
	cfg.DataSource.BreakerFailures = 5
	cfg.DataSource.BreakerCooldown = time.Minute
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "data/stock_finder.db"
	cfg.Schedule.ScanCron = "0 30 22 * * 1-5"
	cfg.Telegram.TopN = 10
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("STOCKFINDER_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("STOCKFINDER_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("STOCKFINDER_MAX_WORKERS: %w", err)
		}
		cfg.Parallel.MaxWorkers = n
	}
	if v := os.Getenv("STOCKFINDER_MIN_GAIN"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("STOCKFINDER_MIN_GAIN: %w", err)
		}
		cfg.Scan.MinGainPct = f
	}
	if v := os.Getenv("STOCKFINDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REST_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("REST_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		cfg.Schedule.ScanCron = v
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Scan.LookbackYears <= 0 {
		return fmt.Errorf("scan.lookback_years must be positive")
	}
	if c.Scan.MinGainPct < 0 {
		return fmt.Errorf("scan.min_gain_pct must not be negative")
	}
	if c.Parallel.MaxWorkers < 1 {
		return fmt.Errorf("parallel.max_workers must be at least 1")
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required when the cache is enabled")
	}
	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// TelegramEnabled reports whether both bot token and chat ID are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// CacheConfig projects the cache section.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Enabled:       c.Cache.Enabled,
		Dir:           c.Cache.Dir,
		TTLHours:      c.Cache.TTLHours,
		MaxSizeBytes:  c.Cache.MaxSizeBytes,
		DeleteCorrupt: c.Cache.DeleteCorrupt,
	}
}

// ScanConfig projects the scan and parallel sections.
func (c *Config) ScanConfig() scanner.Config {
	return scanner.Config{
		MinGainPct:    c.Scan.MinGainPct,
		LookbackYears: c.Scan.LookbackYears,
		Parallel: scanner.ParallelConfig{
			Enabled:    c.Parallel.Enabled,
			MaxWorkers: c.Parallel.MaxWorkers,
		},
	}
}

// GuardConfig projects the provider protection settings.
func (c *Config) GuardConfig() collector.GuardConfig {
	return collector.GuardConfig{
		RateLimitRPS:    c.DataSource.RateLimitRPS,
		Burst:           c.DataSource.Burst,
		Timeout:         c.DataSource.Timeout,
		BreakerFailures: c.DataSource.BreakerFailures,
		BreakerCooldown: c.DataSource.BreakerCooldown,
	}
}

// NewProvider builds the configured data provider wrapped in a Guard.
func (c *Config) NewProvider() collector.DataProvider {
	var p collector.DataProvider
	switch c.DataSource.Provider {
	case "rest":
		p = collector.NewRESTProvider(c.DataSource.BaseURL, c.DataSource.APIKey, c.Proxy, c.DataSource.Timeout)
	default:
		p = collector.NewYahooProvider(c.Proxy, c.DataSource.Timeout)
	}
	return collector.NewGuard(p, c.GuardConfig())
}
