package report

import (
	"fmt"
	"io"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// WriteSnapshot prints a single-ticker indicator snapshot.
func WriteSnapshot(w io.Writer, s *model.TickerSnapshot) error {
	header.Fprintf(w, "%s\n", s.Ticker)
	ma200Dev := 0.0
	if s.MA200 > 0 {
		ma200Dev = (s.CurrentPrice - s.MA200) / s.MA200 * 100
	}
	lines := []struct {
		label string
		value string
	}{
		{"Bars", fmt.Sprintf("%d", s.Bars)},
		{"Current", fmt.Sprintf("%.2f", s.CurrentPrice)},
		{"MA200", fmt.Sprintf("%.2f (%+.1f%%)", s.MA200, ma200Dev)},
		{"MA20w / MA50w", fmt.Sprintf("%.2f / %.2f", s.MA20w, s.MA50w)},
		{"RSI daily / weekly", fmt.Sprintf("%.1f / %.1f", s.DailyRSI, s.WeeklyRSI)},
		{"52w low / high", fmt.Sprintf("%.2f / %.2f", s.Low52w, s.High52w)},
		{"52w position", fmt.Sprintf("%.0f%%", s.Position52w*100)},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "  %-20s %s\n", l.label, l.value); err != nil {
			return err
		}
	}

	g := s.Gain
	if g == nil {
		_, err := fmt.Fprintln(w, muted.Sprint("  No rising window in range."))
		return err
	}
	gain := fmt.Sprintf("%.1f%%", g.GainPct)
	if g.GainPct >= 500 {
		gain = large.Sprint(gain)
	}
	_, err := fmt.Fprintf(w, "  %-20s %s\n  %-20s %.2f on %s\n  %-20s %.2f on %s\n  %-20s %d\n  %-20s %.1f%%\n",
		"Max gain", gain,
		"Low", g.LowPrice, g.LowDate.Format(model.DateLayout),
		"High", g.HighPrice, g.HighDate.Format(model.DateLayout),
		"Days to peak", g.DaysToPeak,
		"Off high", g.DrawdownFromHigh())
	return err
}
