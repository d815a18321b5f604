package model

import (
	"strings"
	"time"
)

// DateLayout is the ISO date format used for cache keys and persisted dates.
const DateLayout = "2006-01-02"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds chronologically ordered bars for one ticker.
// A series is never modified after construction; Between and Weekly
// return new series.
type PriceSeries struct {
	Ticker string
	Bars   []OHLCV
}

// NewPriceSeries builds a series, normalising the ticker symbol.
func NewPriceSeries(ticker string, bars []OHLCV) *PriceSeries {
	return &PriceSeries{Ticker: NormalizeTicker(ticker), Bars: bars}
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty reports whether the series holds no bars.
func (s *PriceSeries) Empty() bool { return s.Len() == 0 }

// First returns the date of the first bar.
func (s *PriceSeries) First() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Bars[0].Time
}

// Last returns the date of the last bar.
func (s *PriceSeries) Last() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Time
}

// Between returns a new series holding the bars whose calendar date lies
// in [start, end], inclusive on both ends.
func (s *PriceSeries) Between(start, end time.Time) *PriceSeries {
	from, to := Day(start), Day(end)
	out := &PriceSeries{Ticker: s.Ticker}
	for _, b := range s.Bars {
		d := Day(b.Time)
		if d.Before(from) || d.After(to) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// Weekly resamples daily bars into ISO-week bars (open of the first day,
// close of the last, extreme high/low, summed volume).
func (s *PriceSeries) Weekly() *PriceSeries {
	out := &PriceSeries{Ticker: s.Ticker}
	if s.Empty() {
		return out
	}
	var week OHLCV
	var weekKey int
	for i, d := range s.Bars {
		year, isoWeek := d.Time.ISOWeek()
		key := year*100 + isoWeek
		if i == 0 || key != weekKey {
			if i > 0 {
				out.Bars = append(out.Bars, week)
			}
			week = d
			weekKey = key
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	out.Bars = append(out.Bars, week)
	return out
}

// Closes extracts the close prices in bar order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
