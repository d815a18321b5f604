package calculator

import (
	"math"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// DefaultMinGainPct is the gain threshold used when none is configured.
const DefaultMinGainPct = 500.0

// DetectMaxGain finds the lowest-close to later-highest-close window with the
// largest percentage gain (the maximum drawup) in a single pass. It returns
// nil when the series has fewer than two usable closes, when no rise exists,
// or when the best gain is below minGainPct.
//
// The optimal entry for any exit is the minimum close seen before it, so only
// the running minimum needs tracking.
func DetectMaxGain(s *model.PriceSeries, minGainPct float64) *model.ScanResult {
	bars := usableBars(s)
	if len(bars) < 2 {
		return nil
	}

	minIdx := 0
	bestGain := 0.0
	lowIdx, highIdx := -1, -1

	for i := 1; i < len(bars); i++ {
		price := bars[i].Close
		if price < bars[minIdx].Close {
			minIdx = i
			continue
		}
		gain := (price - bars[minIdx].Close) / bars[minIdx].Close * 100
		if gain > bestGain {
			bestGain = gain
			lowIdx, highIdx = minIdx, i
		}
	}

	if lowIdx < 0 || bestGain < minGainPct {
		return nil
	}

	return &model.ScanResult{
		Ticker:       s.Ticker,
		GainPct:      bestGain,
		LowDate:      bars[lowIdx].Time,
		LowPrice:     bars[lowIdx].Close,
		HighDate:     bars[highIdx].Time,
		HighPrice:    bars[highIdx].Close,
		CurrentPrice: bars[len(bars)-1].Close,
		DaysToPeak:   highIdx - lowIdx,
	}
}

// usableBars drops bars without a positive, finite close.
func usableBars(s *model.PriceSeries) []model.OHLCV {
	if s.Empty() {
		return nil
	}
	out := make([]model.OHLCV, 0, s.Len())
	for _, b := range s.Bars {
		if b.Close > 0 && !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0) {
			out = append(out, b)
		}
	}
	return out
}
