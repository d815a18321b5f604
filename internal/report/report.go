// Package report renders scan results as a terminal table, CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

var (
	header  = color.New(color.Bold)
	huge    = color.New(color.FgMagenta, color.Bold)
	large   = color.New(color.FgGreen)
	normal  = color.New(color.FgYellow)
	muted   = color.New(color.Faint)
	csvCols = []string{"ticker", "gain_pct", "low_date", "low_price", "high_date", "high_price", "current_price", "days_to_peak", "off_high_pct"}
)

// ParseFormat validates a format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, csv or json)", s)
	}
}

// Write renders results in the given format.
func Write(w io.Writer, format string, results []model.ScanResult) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatJSON:
		return WriteJSON(w, results)
	default:
		return WriteTable(w, results)
	}
}

// WriteTable prints an aligned table with gains colored by size.
func WriteTable(w io.Writer, results []model.ScanResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, muted.Sprint("No results."))
		return err
	}

	header.Fprintf(w, "%-4s %-8s %10s %12s %10s %12s %10s %10s %6s %8s\n",
		"#", "TICKER", "GAIN", "LOW DATE", "LOW", "HIGH DATE", "HIGH", "CURRENT", "DAYS", "OFF HIGH")
	for i, r := range results {
		gain := fmt.Sprintf("%9.1f%%", r.GainPct)
		switch {
		case r.GainPct >= 1000:
			gain = huge.Sprint(gain)
		case r.GainPct >= 500:
			gain = large.Sprint(gain)
		default:
			gain = normal.Sprint(gain)
		}
		_, err := fmt.Fprintf(w, "%-4d %-8s %s %12s %10.2f %12s %10.2f %10.2f %6d %7.1f%%\n",
			i+1, r.Ticker, gain,
			r.LowDate.Format(model.DateLayout), r.LowPrice,
			r.HighDate.Format(model.DateLayout), r.HighPrice,
			r.CurrentPrice, r.DaysToPeak, r.DrawdownFromHigh())
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, muted.Sprintf("%d result(s)", len(results)))
	return err
}

// WriteCSV writes results with a header row.
func WriteCSV(w io.Writer, results []model.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvCols); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, r := range results {
		rec := []string{
			r.Ticker, f(r.GainPct),
			r.LowDate.Format(model.DateLayout), f(r.LowPrice),
			r.HighDate.Format(model.DateLayout), f(r.HighPrice),
			f(r.CurrentPrice), strconv.Itoa(r.DaysToPeak), f(r.DrawdownFromHigh()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonResult adds the derived drawdown and date-only fields.
type jsonResult struct {
	Ticker       string  `json:"ticker"`
	GainPct      float64 `json:"gain_pct"`
	LowDate      string  `json:"low_date"`
	LowPrice     float64 `json:"low_price"`
	HighDate     string  `json:"high_date"`
	HighPrice    float64 `json:"high_price"`
	CurrentPrice float64 `json:"current_price"`
	DaysToPeak   int     `json:"days_to_peak"`
	OffHighPct   float64 `json:"off_high_pct"`
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []model.ScanResult) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{
			Ticker:       r.Ticker,
			GainPct:      r.GainPct,
			LowDate:      r.LowDate.Format(model.DateLayout),
			LowPrice:     r.LowPrice,
			HighDate:     r.HighDate.Format(model.DateLayout),
			HighPrice:    r.HighPrice,
			CurrentPrice: r.CurrentPrice,
			DaysToPeak:   r.DaysToPeak,
			OffHighPct:   r.DrawdownFromHigh(),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
