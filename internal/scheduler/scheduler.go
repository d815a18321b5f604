// Package scheduler runs recurring scans on a cron schedule and answers
// chat commands about them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/afdelacruz/stock-finder/internal/collector"
	"github.com/afdelacruz/stock-finder/internal/model"
	"github.com/afdelacruz/stock-finder/internal/notifier"
	"github.com/afdelacruz/stock-finder/internal/recorder"
	"github.com/afdelacruz/stock-finder/internal/scanner"
)

// ErrScanRunning is returned when a scan is requested while one is in progress.
var ErrScanRunning = errors.New("a scan is already running")

// Sender delivers notifications.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// UniverseFunc returns the tickers to scan.
type UniverseFunc func() ([]string, error)

// LastScan describes the most recent finished scan.
type LastScan struct {
	RunID      int64
	FinishedAt time.Time
	Summary    scanner.Summary
}

// Scheduler manages the recurring scan and its notifications.
type Scheduler struct {
	Cron      *cron.Cron
	Scanner   *scanner.Scanner
	Inspector *collector.Inspector
	Recorder  recorder.Recorder
	Notifier  Sender // nil disables notifications
	Universe  UniverseFunc
	Label     string // universe name stored with each run
	TopN      int
	Ctx       context.Context

	mu      sync.Mutex
	running bool
	last    *LastScan
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, rec recorder.Recorder, universe UniverseFunc) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cron.PrintfLogger(&log.Logger))),
		Scanner:  sc,
		Recorder: rec,
		Universe: universe,
		TopN:     10,
		Ctx:      ctx,
	}
}

// RegisterScan registers the recurring scan.
func (s *Scheduler) RegisterScan(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Last returns the most recent finished scan, or nil.
func (s *Scheduler) Last() *LastScan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunScanNow executes a scan immediately (manual trigger / run on start).
func (s *Scheduler) RunScanNow() (*LastScan, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrScanRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	tickers, err := s.Universe()
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe is empty")
	}

	cfg := s.Scanner.Config()
	run := &recorder.ScanRun{
		MinGainPct:    cfg.MinGainPct,
		LookbackYears: cfg.LookbackYears,
		Universe:      s.Label,
		TickerCount:   len(tickers),
	}
	if err := s.Recorder.StartRun(s.Ctx, run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	summary := s.Scanner.ScanAll(s.Ctx, tickers, func(r model.ScanResult) {
		if err := s.Recorder.AddResult(s.Ctx, run.ID, r); err != nil {
			log.Error().Err(err).Str("ticker", r.Ticker).Msg("record result")
		}
	}, nil)

	status := recorder.StatusCompleted
	if s.Ctx.Err() != nil {
		status = recorder.StatusCancelled
	}
	// The run context may already be cancelled; the status update must still land.
	if err := s.Recorder.CompleteRun(context.Background(), run.ID, status); err != nil {
		log.Error().Err(err).Int64("scan_run_id", run.ID).Msg("complete run")
	}

	last := &LastScan{RunID: run.ID, FinishedAt: time.Now(), Summary: summary}
	s.mu.Lock()
	s.last = last
	s.mu.Unlock()

	if status == recorder.StatusCompleted {
		s.trySend(notifier.FormatScanSummary(notifier.ScanReport{
			RunID:      run.RunID.String(),
			Scanned:    summary.Scanned,
			Errors:     len(summary.Errors),
			MinGainPct: cfg.MinGainPct,
			Elapsed:    summary.Duration,
			Results:    summary.Results,
		}, s.TopN))
	}
	return last, nil
}

func (s *Scheduler) scanTask() {
	log.Info().Msg("running scheduled scan")
	if _, err := s.RunScanNow(); err != nil {
		log.Error().Err(err).Msg("scheduled scan")
		if !errors.Is(err, ErrScanRunning) {
			s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
		}
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help()
	}

	switch strings.ToLower(fields[0]) {
	case "/scan":
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			return "⏳ " + ErrScanRunning.Error()
		}
		go s.scanTask()
		return "🔄 Scan started"

	case "/top":
		n := s.TopN
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		stored, err := s.Recorder.TopGainers(ctx, n)
		if err != nil {
			log.Error().Err(err).Msg("query top gainers")
			return "❌ Could not load results"
		}
		results := make([]model.ScanResult, len(stored))
		for i, r := range stored {
			results[i] = r.ScanResult
		}
		return notifier.FormatTopGainers("🏆 <b>Top gainers (all runs)</b>", results, n)

	case "/status":
		last := s.Last()
		if last == nil {
			return "No scan has finished since startup."
		}
		return notifier.FormatScanSummary(notifier.ScanReport{
			Scanned:    last.Summary.Scanned,
			Errors:     len(last.Summary.Errors),
			MinGainPct: s.Scanner.Config().MinGainPct,
			Elapsed:    last.Summary.Duration,
			Results:    last.Summary.Results,
		}, s.TopN)

	case "/check":
		if len(fields) < 2 {
			return "Usage: /check TICKER"
		}
		if s.Inspector == nil {
			return "Ticker checks are not available."
		}
		snap, err := s.Inspector.Inspect(ctx, fields[1], s.Scanner.Config().LookbackYears, false)
		if err != nil {
			return fmt.Sprintf("❌ %s: %v", model.NormalizeTicker(fields[1]), err)
		}
		return notifier.FormatSnapshot(snap)

	default:
		return help()
	}
}

func help() string {
	return "Available commands:\n• /scan - run a scan now\n• /top [n] - best gainers across runs\n• /status - last scan summary\n• /check TICKER - indicators for one ticker"
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
