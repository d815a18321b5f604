package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// ScanReport is what a finished scan hands to the formatter.
type ScanReport struct {
	RunID      string
	Scanned    int
	Errors     int
	MinGainPct float64
	Elapsed    time.Duration
	Results    []model.ScanResult // sorted, largest gain first
}

// FormatScanSummary formats a finished scan with its top n gainers.
func FormatScanSummary(r ScanReport, n int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Stock Finder scan</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Scanned: %d tickers in %s\n", r.Scanned, r.Elapsed.Round(time.Second)))
	b.WriteString(fmt.Sprintf("Threshold: %.0f%%\n", r.MinGainPct))
	b.WriteString(fmt.Sprintf("Found: %d", len(r.Results)))
	if r.Errors > 0 {
		b.WriteString(fmt.Sprintf(" | Errors: %d", r.Errors))
	}
	b.WriteString("\n")
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", r.RunID))
	}

	if len(r.Results) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatTopGainers("🚀 <b>Top gainers</b>", r.Results, n))
	}
	return b.String()
}

// FormatTopGainers lists up to n results, one per line.
func FormatTopGainers(title string, results []model.ScanResult, n int) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	if len(results) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}
	if n <= 0 || n > len(results) {
		n = len(results)
	}
	for i, r := range results[:n] {
		b.WriteString(fmt.Sprintf("%2d. <b>%s</b> +%.0f%% (%.2f → %.2f, %s → %s, %dd)\n",
			i+1, html.EscapeString(r.Ticker), r.GainPct, r.LowPrice, r.HighPrice,
			r.LowDate.Format(model.DateLayout), r.HighDate.Format(model.DateLayout), r.DaysToPeak))
	}
	if n < len(results) {
		b.WriteString(fmt.Sprintf("  ... and %d more\n", len(results)-n))
	}
	return b.String()
}

// FormatSnapshot formats a single-ticker indicator snapshot.
func FormatSnapshot(s *model.TickerSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b>\n\n", html.EscapeString(s.Ticker)))

	// Price and MAs
	b.WriteString(fmt.Sprintf("Price: %.2f\n", s.CurrentPrice))
	ma200Dev := 0.0
	if s.MA200 > 0 {
		ma200Dev = (s.CurrentPrice - s.MA200) / s.MA200 * 100
	}
	b.WriteString(fmt.Sprintf("MA200: %.2f (%+.1f%%)\n", s.MA200, ma200Dev))
	b.WriteString(fmt.Sprintf("MA20w: %.2f | MA50w: %.2f\n", s.MA20w, s.MA50w))
	b.WriteString(fmt.Sprintf("RSI(14): daily %.1f | weekly %.1f\n", s.DailyRSI, s.WeeklyRSI))
	b.WriteString(fmt.Sprintf("52w: %.2f - %.2f (position %.0f%%)\n", s.Low52w, s.High52w, s.Position52w*100))

	if g := s.Gain; g != nil {
		b.WriteString(fmt.Sprintf("\n📈 <b>Max gain:</b> +%.1f%%\n", g.GainPct))
		b.WriteString(fmt.Sprintf("  Low:  %.2f on %s\n", g.LowPrice, g.LowDate.Format(model.DateLayout)))
		b.WriteString(fmt.Sprintf("  High: %.2f on %s (%d trading days)\n", g.HighPrice, g.HighDate.Format(model.DateLayout), g.DaysToPeak))
		b.WriteString(fmt.Sprintf("  Off high: %.1f%%\n", g.DrawdownFromHigh()))
	} else {
		b.WriteString("\nNo rising window in range.\n")
	}
	return b.String()
}
