package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afdelacruz/stock-finder/internal/cache"
	"github.com/afdelacruz/stock-finder/internal/model"
)

// CachingFetcher serves historical data from the disk cache and falls back
// to the provider on a miss, caching what it fetched.
type CachingFetcher struct {
	provider DataProvider
	store    *cache.Store
}

// NewCachingFetcher wraps provider with store.
func NewCachingFetcher(provider DataProvider, store *cache.Store) *CachingFetcher {
	return &CachingFetcher{provider: provider, store: store}
}

// Name reports the wrapped provider.
func (f *CachingFetcher) Name() string {
	return fmt.Sprintf("cached(%s)", f.provider.Name())
}

// Store returns the underlying cache.
func (f *CachingFetcher) Store() *cache.Store { return f.store }

// Fetch returns daily bars for [start, end]. With bypass the cache is not
// read, but fresh data is still written. A (nil, nil) return means the
// provider has no data for the ticker.
func (f *CachingFetcher) Fetch(ctx context.Context, ticker string, start, end time.Time, bypass bool) (*model.PriceSeries, error) {
	if !bypass {
		if s, ok := f.store.Get(ticker, start, end); ok {
			return s, nil
		}
	}

	log.Debug().Str("ticker", ticker).Str("start", start.Format(model.DateLayout)).Str("end", end.Format(model.DateLayout)).Str("provider", f.provider.Name()).Msg("fetching from provider")
	s, err := f.provider.GetHistorical(ctx, ticker, start, end)
	if errors.Is(err, ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if s.Empty() {
		return nil, nil
	}

	f.store.Set(ticker, start, end, s)
	return s, nil
}

// GetHistorical makes CachingFetcher a DataProvider itself.
func (f *CachingFetcher) GetHistorical(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error) {
	s, err := f.Fetch(ctx, ticker, start, end, false)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	return s, nil
}
