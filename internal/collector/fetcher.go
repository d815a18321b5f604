package collector

import (
	"context"
	"errors"
	"time"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// ErrNoData is returned by providers that have no bars for a request.
var ErrNoData = errors.New("no data returned")

// DataProvider fetches historical daily bars for a ticker over [start, end].
type DataProvider interface {
	GetHistorical(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error)
	Name() string
}
