package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/afdelacruz/stock-finder/internal/model"
	"github.com/afdelacruz/stock-finder/internal/recorder"
	"github.com/afdelacruz/stock-finder/internal/report"
)

func resultsCmd() *cobra.Command {
	var (
		runID   int64
		minGain float64
		limit   int
		format  string
		runs    bool
		top     bool
	)
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List saved scan results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			format, err = report.ParseFormat(format)
			if err != nil {
				return err
			}
			rec, err := openRecorder(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer rec.Close()
			ctx := cmd.Context()

			if runs {
				list, err := rec.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				printRuns(list)
				return nil
			}

			var stored []recorder.StoredResult
			if top {
				stored, err = rec.TopGainers(ctx, limit)
			} else {
				stored, err = rec.ListResults(ctx, recorder.ResultQuery{RunID: runID, MinGain: minGain, Limit: limit})
			}
			if err != nil {
				return err
			}
			out := make([]model.ScanResult, len(stored))
			for i, r := range stored {
				out[i] = r.ScanResult
			}
			return report.Write(os.Stdout, format, out)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&runID, "run", 0, "Only results of this scan run ID")
	f.Float64Var(&minGain, "min-gain", 0, "Minimum gain percentage")
	f.IntVar(&limit, "limit", 50, "Maximum rows (0 = all)")
	f.StringVar(&format, "format", "table", "Output format (table|csv|json)")
	f.BoolVar(&runs, "runs", false, "List scan runs instead of results")
	f.BoolVar(&top, "top", false, "Best result per ticker across all runs")
	return cmd
}

func printRuns(runs []recorder.ScanRun) {
	if len(runs) == 0 {
		fmt.Println("No scan runs.")
		return
	}
	fmt.Printf("%-6s %-19s %-10s %8s %6s %8s %8s  %s\n", "ID", "STARTED", "STATUS", "MIN GAIN", "YEARS", "TICKERS", "RESULTS", "UNIVERSE")
	for _, r := range runs {
		fmt.Printf("%-6d %-19s %-10s %7.0f%% %6d %8d %8d  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.MinGainPct,
			r.LookbackYears, r.TickerCount, r.ResultsCount, r.Universe)
	}
}
