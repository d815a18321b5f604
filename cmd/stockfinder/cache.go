package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afdelacruz/stock-finder/internal/cache"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the price data cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := cache.New(cfg.CacheConfig())
			if err != nil {
				return err
			}
			st := store.Stats()
			fmt.Printf("Enabled:   %v\n", st.Enabled)
			fmt.Printf("Directory: %s\n", st.Dir)
			fmt.Printf("TTL:       %dh (ranges ending over a year ago never expire)\n", cfg.Cache.TTLHours)
			fmt.Printf("Entries:   %d\n", st.EntryCount)
			fmt.Printf("Size:      %s / %s\n", humanBytes(st.TotalBytes), humanBytes(cfg.Cache.MaxSizeBytes))
			if st.EntryCount > 0 {
				fmt.Printf("Oldest:    %s\n", st.Oldest.Format("2006-01-02 15:04"))
				fmt.Printf("Newest:    %s\n", st.Newest.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [TICKER]",
		Short: "Delete cached data for one ticker or everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := cache.New(cfg.CacheConfig())
			if err != nil {
				return err
			}
			ticker := ""
			if len(args) == 1 {
				ticker = args[0]
			}
			n := store.Clear(ticker)
			fmt.Printf("Removed %d cache entries\n", n)
			return nil
		},
	}

	cmd.AddCommand(stats, clearCmd)
	return cmd
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
