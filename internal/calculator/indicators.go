package calculator

import (
	"errors"
	"math"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// Trading-day windows used by the range indicators.
const (
	TradingDaysPerYear  = 252
	TradingDaysPerMonth = 22
)

var errNoBars = errors.New("no bars provided")

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period), nil
}

// SeriesSMA is SMA over the close prices of a series.
func SeriesSMA(s *model.PriceSeries, period int) (float64, error) {
	return SMA(s.Closes(), period)
}

// RSI computes the Wilder-smoothed RSI over the given period.
// Returns 50 when fewer than period+1 closes are available.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 50.0, nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// Range returns the highest high and lowest low over the trailing window bars.
// A window <= 0 covers the whole series.
func Range(s *model.PriceSeries, window int) (high, low float64, err error) {
	if s.Empty() {
		return 0, 0, errNoBars
	}
	start := 0
	if window > 0 && s.Len() > window {
		start = s.Len() - window
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range s.Bars[start:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Min(1, math.Max(0, pos)), nil
}
