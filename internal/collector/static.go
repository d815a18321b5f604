package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// StaticProvider serves series from memory. Used in tests and offline runs.
type StaticProvider struct {
	// Synthetic generates a gently rising series for unknown tickers when set.
	Synthetic bool
	// Delay is slept before answering, honoring ctx.
	Delay time.Duration

	mu     sync.Mutex
	series map[string]*model.PriceSeries
	errs   map[string]error
	calls  map[string]int
}

// NewStaticProvider creates an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		series: make(map[string]*model.PriceSeries),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (p *StaticProvider) Name() string { return "static" }

// Add registers the series served for its ticker.
func (p *StaticProvider) Add(s *model.PriceSeries) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[model.NormalizeTicker(s.Ticker)] = s
	return p
}

// Fail makes every request for ticker return err.
func (p *StaticProvider) Fail(ticker string, err error) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[model.NormalizeTicker(ticker)] = err
	return p
}

// Calls returns how many requests were made for ticker.
func (p *StaticProvider) Calls(ticker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[model.NormalizeTicker(ticker)]
}

// TotalCalls returns the number of requests across all tickers.
func (p *StaticProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *StaticProvider) GetHistorical(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error) {
	ticker = model.NormalizeTicker(ticker)

	p.mu.Lock()
	p.calls[ticker]++
	s, ok := p.series[ticker]
	err := p.errs[ticker]
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		if !p.Synthetic {
			return nil, fmt.Errorf("static %s: %w", ticker, ErrNoData)
		}
		s = syntheticSeries(ticker, start, end, 100)
	}

	out := s.Between(start, end)
	if out.Empty() {
		return nil, fmt.Errorf("static %s: %w", ticker, ErrNoData)
	}
	return out, nil
}

// syntheticSeries builds weekday bars drifting upward around basePrice.
func syntheticSeries(ticker string, start, end time.Time, basePrice float64) *model.PriceSeries {
	var bars []model.OHLCV
	i := 0
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return model.NewPriceSeries(ticker, bars)
}
