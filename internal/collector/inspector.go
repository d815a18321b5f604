package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afdelacruz/stock-finder/internal/calculator"
	"github.com/afdelacruz/stock-finder/internal/model"
)

// Inspector fetches one ticker and computes its indicator snapshot.
type Inspector struct {
	Fetcher *CachingFetcher
	Now     func() time.Time
}

// NewInspector creates a new Inspector.
func NewInspector(fetcher *CachingFetcher) *Inspector {
	return &Inspector{Fetcher: fetcher, Now: time.Now}
}

// Inspect fetches lookbackYears of history for ticker and computes all
// indicators. The gain window is reported regardless of size.
func (in *Inspector) Inspect(ctx context.Context, ticker string, lookbackYears int, bypass bool) (*model.TickerSnapshot, error) {
	if lookbackYears < 1 {
		lookbackYears = 1
	}
	end := model.Day(in.Now())
	start := end.AddDate(0, 0, -lookbackYears*365)

	daily, err := in.Fetcher.Fetch(ctx, ticker, start, end, bypass)
	if err != nil {
		return nil, err
	}
	if daily.Empty() {
		return nil, fmt.Errorf("%s: %w", model.NormalizeTicker(ticker), ErrNoData)
	}
	weekly := daily.Weekly()
	current := daily.Bars[daily.Len()-1].Close

	snap := &model.TickerSnapshot{
		Ticker:       daily.Ticker,
		CurrentPrice: current,
		Bars:         daily.Len(),
		Gain:         calculator.DetectMaxGain(daily, 0),
	}

	// MA200
	if ma, err := calculator.SeriesSMA(daily, 200); err != nil {
		log.Debug().Err(err).Str("ticker", snap.Ticker).Msg("MA200 unavailable, using current price")
		snap.MA200 = current
	} else {
		snap.MA200 = ma
	}

	// MA20w
	if ma, err := calculator.SeriesSMA(weekly, 20); err != nil {
		log.Debug().Err(err).Str("ticker", snap.Ticker).Msg("MA20w unavailable, using current price")
		snap.MA20w = current
	} else {
		snap.MA20w = ma
	}

	// MA50w
	if ma, err := calculator.SeriesSMA(weekly, 50); err != nil {
		log.Debug().Err(err).Str("ticker", snap.Ticker).Msg("MA50w unavailable, using current price")
		snap.MA50w = current
	} else {
		snap.MA50w = ma
	}

	snap.WeeklyRSI, _ = calculator.RSI(weekly.Closes(), 14)
	snap.DailyRSI, _ = calculator.RSI(daily.Closes(), 14)

	// 52-week range
	if h, l, err := calculator.Range(daily, calculator.TradingDaysPerYear); err != nil {
		snap.High52w, snap.Low52w = current, current
	} else {
		snap.High52w, snap.Low52w = h, l
	}
	if pos, err := calculator.RangePosition(current, snap.High52w, snap.Low52w); err != nil {
		snap.Position52w = 0.5
	} else {
		snap.Position52w = pos
	}

	return snap, nil
}
