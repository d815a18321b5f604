package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/afdelacruz/stock-finder/internal/collector"
	"github.com/afdelacruz/stock-finder/internal/report"
)

func checkCmd() *cobra.Command {
	var (
		years   int
		noCache bool
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "check TICKER",
		Short: "Show indicators and the largest gain window for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fetcher, err := newFetcher(cfg, noCache)
			if err != nil {
				return err
			}
			snap, err := collector.NewInspector(fetcher).Inspect(cmd.Context(), args[0], years, refresh)
			if err != nil {
				return err
			}
			return report.WriteSnapshot(os.Stdout, snap)
		},
	}
	cmd.Flags().IntVar(&years, "years", 3, "Lookback period in years")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the disk cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached data but store fresh fetches")
	return cmd
}
