package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/afdelacruz/stock-finder/internal/model"
	"github.com/afdelacruz/stock-finder/internal/recorder"
	"github.com/afdelacruz/stock-finder/internal/report"
	"github.com/afdelacruz/stock-finder/internal/scanner"
)

func scanCmd() *cobra.Command {
	var (
		list, file, format, out     string
		minGain                     float64
		years, workers              int
		sequential, noCache, noSave bool
		refresh                     bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan tickers for gains above the threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("min-gain") {
				cfg.Scan.MinGainPct = minGain
			}
			if cmd.Flags().Changed("years") {
				cfg.Scan.LookbackYears = years
			}
			if cmd.Flags().Changed("workers") {
				cfg.Parallel.MaxWorkers = workers
			}
			if sequential {
				cfg.Parallel.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			format, err = report.ParseFormat(format)
			if err != nil {
				return err
			}

			universe, label, err := loadUniverse(list, file, cfg)
			if err != nil {
				return err
			}
			if len(universe) == 0 {
				return fmt.Errorf("no tickers to scan")
			}

			fetcher, err := newFetcher(cfg, noCache)
			if err != nil {
				return err
			}
			sc := cfg.ScanConfig()
			sc.Bypass = refresh
			s := scanner.New(fetcher, sc)

			var rec recorder.Recorder = recorder.NewNoopRecorder()
			if !noSave {
				sr, err := openRecorder(cfg)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer sr.Close()
				rec = sr
			}

			ctx := cmd.Context()
			run := &recorder.ScanRun{
				MinGainPct:    cfg.Scan.MinGainPct,
				LookbackYears: cfg.Scan.LookbackYears,
				Universe:      label,
				TickerCount:   len(universe),
			}
			if err := rec.StartRun(ctx, run); err != nil {
				return err
			}

			summary := s.ScanAll(ctx, universe, func(r model.ScanResult) {
				if err := rec.AddResult(ctx, run.ID, r); err != nil {
					log.Error().Err(err).Str("ticker", r.Ticker).Msg("save result")
				}
			}, progressPrinter())

			status := recorder.StatusCompleted
			if ctx.Err() != nil {
				status = recorder.StatusCancelled
			}
			if err := rec.CompleteRun(context.Background(), run.ID, status); err != nil {
				log.Error().Err(err).Msg("complete run")
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := report.Write(w, format, summary.Results); err != nil {
				return err
			}
			if !noSave {
				log.Info().Int64("scan_run_id", run.ID).Str("status", status).Msg("results saved")
			}
			if len(summary.Errors) > 0 {
				log.Warn().Int("count", len(summary.Errors)).Msg("some tickers failed")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&list, "tickers", "", "Comma-separated tickers")
	f.StringVar(&file, "file", "", "CSV file with a ticker or symbol column")
	f.Float64Var(&minGain, "min-gain", 500, "Minimum gain percentage")
	f.IntVar(&years, "years", 3, "Lookback period in years")
	f.IntVar(&workers, "workers", 10, "Parallel workers")
	f.BoolVar(&sequential, "sequential", false, "Scan one ticker at a time")
	f.BoolVar(&noCache, "no-cache", false, "Disable the disk cache")
	f.BoolVar(&refresh, "refresh", false, "Ignore cached data but store fresh fetches")
	f.StringVar(&format, "format", "table", "Output format (table|csv|json)")
	f.StringVar(&out, "out", "", "Write output to a file instead of stdout")
	f.BoolVar(&noSave, "no-save", false, "Do not persist the run")
	cmd.MarkFlagsMutuallyExclusive("tickers", "file")
	return cmd
}
