package model

import "time"

// ScanResult is a qualifying gain window found for one ticker.
type ScanResult struct {
	Ticker       string    `json:"ticker" db:"ticker"`
	GainPct      float64   `json:"gain_pct" db:"gain_pct"`
	LowDate      time.Time `json:"low_date" db:"low_date"`
	LowPrice     float64   `json:"low_price" db:"low_price"`
	HighDate     time.Time `json:"high_date" db:"high_date"`
	HighPrice    float64   `json:"high_price" db:"high_price"`
	CurrentPrice float64   `json:"current_price" db:"current_price"`
	DaysToPeak   int       `json:"days_to_peak" db:"days_to_peak"` // trading bars from low to high
}

// DrawdownFromHigh returns how far the current price sits below the peak, in percent.
func (r ScanResult) DrawdownFromHigh() float64 {
	if r.HighPrice == 0 {
		return 0
	}
	return (r.HighPrice - r.CurrentPrice) / r.HighPrice * 100
}

// TickerSnapshot holds the indicators computed for a single ticker check.
type TickerSnapshot struct {
	Ticker       string
	CurrentPrice float64
	MA200        float64
	MA20w        float64
	MA50w        float64
	WeeklyRSI    float64
	DailyRSI     float64
	High52w      float64
	Low52w       float64
	Position52w  float64 // 0.0 ~ 1.0
	Bars         int
	Gain         *ScanResult
}
