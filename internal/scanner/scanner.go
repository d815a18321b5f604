// Package scanner runs gain detection across a ticker universe.
package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afdelacruz/stock-finder/internal/calculator"
	"github.com/afdelacruz/stock-finder/internal/metrics"
	"github.com/afdelacruz/stock-finder/internal/model"
	"github.com/afdelacruz/stock-finder/internal/parallel"
)

// Fetcher returns daily bars for a ticker. A nil series with a nil error
// means the ticker has no data.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string, start, end time.Time, bypass bool) (*model.PriceSeries, error)
}

// ParallelConfig controls fan-out of a scan.
type ParallelConfig struct {
	Enabled    bool
	MaxWorkers int
}

// Config holds scan parameters.
type Config struct {
	MinGainPct    float64
	LookbackYears int
	Parallel      ParallelConfig
	Bypass        bool // skip cache reads
	Now           func() time.Time
}

// TickerError records a ticker that could not be scanned.
type TickerError struct {
	Ticker string
	Err    error
}

// Summary is the outcome of ScanAll.
type Summary struct {
	Results  []model.ScanResult // sorted by GainPct, largest first
	Scanned  int
	Errors   []TickerError
	Duration time.Duration
}

// Scanner evaluates tickers against the gain threshold.
type Scanner struct {
	fetcher Fetcher
	cfg     Config
}

// New creates a Scanner. Missing values fall back to defaults.
func New(fetcher Fetcher, cfg Config) *Scanner {
	if cfg.LookbackYears < 1 {
		cfg.LookbackYears = 3
	}
	if cfg.Parallel.MaxWorkers < 1 {
		cfg.Parallel.MaxWorkers = parallel.DefaultWorkers
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scanner{fetcher: fetcher, cfg: cfg}
}

// Config returns the effective configuration.
func (s *Scanner) Config() Config { return s.cfg }

// DateRange returns the lookback window ending today.
func (s *Scanner) DateRange() (time.Time, time.Time) {
	end := model.Day(s.cfg.Now())
	return end.AddDate(0, 0, -s.cfg.LookbackYears*365), end
}

// ScanOne fetches one ticker and runs gain detection. It returns nil when
// the ticker has no data or no qualifying gain.
func (s *Scanner) ScanOne(ctx context.Context, ticker string) (*model.ScanResult, error) {
	start, end := s.DateRange()
	series, err := s.fetcher.Fetch(ctx, ticker, start, end, s.cfg.Bypass)
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		log.Debug().Str("ticker", ticker).Msg("no data")
		return nil, nil
	}

	result := calculator.DetectMaxGain(series, s.cfg.MinGainPct)
	if result != nil {
		log.Info().Str("ticker", result.Ticker).Float64("gain_pct", result.GainPct).
			Str("low_date", result.LowDate.Format(model.DateLayout)).
			Str("high_date", result.HighDate.Format(model.DateLayout)).
			Msg("found gainer")
	}
	return result, nil
}

// ScanAll scans every ticker, in parallel when enabled. onResult fires once
// per qualifying ticker as soon as it is found; onProgress after every
// ticker. Both are called from a single goroutine and may be nil.
// Failed tickers are logged and reported in Summary.Errors.
func (s *Scanner) ScanAll(ctx context.Context, tickers []string, onResult func(model.ScanResult), onProgress func(done, total int)) Summary {
	started := time.Now()
	start, end := s.DateRange()
	workers := 1
	if s.cfg.Parallel.Enabled {
		workers = s.cfg.Parallel.MaxWorkers
	}
	log.Info().Int("tickers", len(tickers)).Int("workers", workers).
		Str("start", start.Format(model.DateLayout)).Str("end", end.Format(model.DateLayout)).
		Float64("min_gain", s.cfg.MinGainPct).Msg("starting scan")

	var summary Summary
	record := func(ticker string, result *model.ScanResult, err error) {
		summary.Scanned++
		switch {
		case err != nil:
			log.Warn().Err(err).Str("ticker", ticker).Msg("scan failed")
			summary.Errors = append(summary.Errors, TickerError{Ticker: ticker, Err: err})
			metrics.TickersScanned.WithLabelValues("error").Inc()
		case result != nil:
			summary.Results = append(summary.Results, *result)
			metrics.TickersScanned.WithLabelValues("found").Inc()
			if onResult != nil {
				onResult(*result)
			}
		default:
			metrics.TickersScanned.WithLabelValues("none").Inc()
		}
	}

	// A disabled parallel config still runs through the executor, with one worker.
	parallel.Execute(ctx, parallel.New(workers), s.ScanOne, tickers, parallel.Options[string, *model.ScanResult]{
		OnResult: func(res parallel.TaskResult[string, *model.ScanResult]) {
			record(res.Item, res.Result, res.Err)
		},
		OnProgress: func(done, total int, _ string, _ parallel.TaskResult[string, *model.ScanResult]) {
			if onProgress != nil {
				onProgress(done, total)
			}
		},
	})

	sort.SliceStable(summary.Results, func(i, j int) bool {
		return summary.Results[i].GainPct > summary.Results[j].GainPct
	})
	summary.Duration = time.Since(started)
	metrics.ScanDuration.Observe(summary.Duration.Seconds())

	log.Info().Int("scanned", summary.Scanned).Int("found", len(summary.Results)).
		Int("errors", len(summary.Errors)).Dur("elapsed", summary.Duration).Msg("scan complete")
	return summary
}
