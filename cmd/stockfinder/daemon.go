package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/afdelacruz/stock-finder/internal/collector"
	"github.com/afdelacruz/stock-finder/internal/metrics"
	"github.com/afdelacruz/stock-finder/internal/notifier"
	"github.com/afdelacruz/stock-finder/internal/recorder"
	"github.com/afdelacruz/stock-finder/internal/scanner"
	"github.com/afdelacruz/stock-finder/internal/scheduler"
	"github.com/afdelacruz/stock-finder/internal/tickers"
)

func daemonCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled scans with Telegram notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info().Str("version", version).Msg("stockfinder daemon starting")

			fetcher, err := newFetcher(cfg, false)
			if err != nil {
				return err
			}
			log.Info().Str("source", fetcher.Name()).Msg("data source")
			sc := scanner.New(fetcher, cfg.ScanConfig())

			var rec recorder.Recorder
			if sr, err := openRecorder(cfg); err != nil {
				log.Warn().Err(err).Msg("init recorder failed, using noop")
				rec = recorder.NewNoopRecorder()
			} else {
				rec = sr
				defer sr.Close()
			}

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			universeFile := cfg.Schedule.UniverseFile
			sched := scheduler.NewScheduler(ctx, sc, rec, func() ([]string, error) {
				if universeFile == "" {
					return tickers.Default(), nil
				}
				return tickers.LoadCSV(universeFile)
			})
			sched.Label = "default"
			if universeFile != "" {
				sched.Label = universeFile
			}
			sched.TopN = cfg.Telegram.TopN
			sched.Inspector = collector.NewInspector(fetcher)

			if cfg.TelegramEnabled() {
				tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				sched.Notifier = tn
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			} else {
				log.Info().Msg("telegram not configured, notifications disabled")
			}

			if err := sched.RegisterScan(cfg.Schedule.ScanCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if cfg.Metrics.Addr != "" {
				srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("metrics server")
					}
				}()
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					srv.Shutdown(shutdownCtx)
				}()
			}

			if runNow || os.Getenv("RUN_ON_START") == "true" {
				log.Info().Msg("running scan on start")
				go func() {
					if _, err := sched.RunScanNow(); err != nil {
						log.Error().Err(err).Msg("startup scan")
					}
				}()
			}

			log.Info().Str("cron", cfg.Schedule.ScanCron).Msg("stockfinder is running, press Ctrl+C to stop")
			<-ctx.Done()
			log.Info().Msg("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run a scan immediately on start")
	return cmd
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
