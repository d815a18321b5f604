package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/afdelacruz/stock-finder/internal/cache"
	"github.com/afdelacruz/stock-finder/internal/collector"
	"github.com/afdelacruz/stock-finder/internal/config"
	"github.com/afdelacruz/stock-finder/internal/recorder"
	"github.com/afdelacruz/stock-finder/internal/tickers"
)

const version = "v0.4.0"

var (
	configPath string
	verbose    bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "stockfinder",
		Short:         "Scan ticker universes for large historical gains",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to YAML config")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(scanCmd(), checkCmd(), resultsCmd(), cacheCmd(), daemonCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// newFetcher builds the guarded provider behind the disk cache.
func newFetcher(cfg *config.Config, noCache bool) (*collector.CachingFetcher, error) {
	cc := cfg.CacheConfig()
	if noCache {
		cc.Enabled = false
	}
	store, err := cache.New(cc)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	provider := cfg.NewProvider()
	log.Debug().Str("provider", provider.Name()).Bool("cache", cc.Enabled).Str("dir", cc.Dir).Msg("data source ready")
	return collector.NewCachingFetcher(provider, store), nil
}

func openRecorder(cfg *config.Config) (*recorder.SQLRecorder, error) {
	return recorder.Open(cfg.Database.Driver, cfg.Database.DSN)
}

// loadUniverse resolves the ticker list: explicit tickers, then a file,
// then the configured universe file, then the demo list.
func loadUniverse(list, file string, cfg *config.Config) ([]string, string, error) {
	switch {
	case list != "":
		return tickers.Parse(list), "cli", nil
	case file != "":
		t, err := tickers.LoadCSV(file)
		return t, file, err
	case cfg.Schedule.UniverseFile != "":
		t, err := tickers.LoadCSV(cfg.Schedule.UniverseFile)
		return t, cfg.Schedule.UniverseFile, err
	default:
		return tickers.Default(), "default", nil
	}
}

// progressPrinter renders a one-line progress counter when stderr is a terminal.
func progressPrinter() func(done, total int) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r  scanned %d/%d (%.0f%%)", done, total, float64(done)/float64(total)*100)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
