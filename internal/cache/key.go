package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/afdelacruz/stock-finder/internal/model"
)

const fileExt = ".json.gz"

// Key identifies one cached range for one ticker.
type Key struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

// NewKey derives a key from request parameters. Dates are truncated to
// calendar days, so identical arguments always give identical keys.
func NewKey(ticker string, start, end time.Time) Key {
	return Key{
		Ticker: fileTicker(ticker),
		Start:  model.Day(start),
		End:    model.Day(end),
	}
}

// FileName is the artifact name for the key, e.g. AAPL_2023-01-01_2023-12-31.json.gz.
func (k Key) FileName() string {
	return fmt.Sprintf("%s_%s_%s%s", k.Ticker, k.Start.Format(model.DateLayout), k.End.Format(model.DateLayout), fileExt)
}

// Contains reports whether k's range covers [start, end].
func (k Key) Contains(start, end time.Time) bool {
	return !k.Start.After(model.Day(start)) && !k.End.Before(model.Day(end))
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s..%s", k.Ticker, k.Start.Format(model.DateLayout), k.End.Format(model.DateLayout))
}

// parseFileName recovers a key from an artifact name. The two dates are
// taken from the right so tickers may themselves contain underscores.
func parseFileName(name string) (Key, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return Key{}, false
	}
	stem := strings.TrimSuffix(name, fileExt)

	i := strings.LastIndexByte(stem, '_')
	if i <= 0 {
		return Key{}, false
	}
	end, err := time.Parse(model.DateLayout, stem[i+1:])
	if err != nil {
		return Key{}, false
	}
	stem = stem[:i]

	j := strings.LastIndexByte(stem, '_')
	if j <= 0 {
		return Key{}, false
	}
	start, err := time.Parse(model.DateLayout, stem[j+1:])
	if err != nil {
		return Key{}, false
	}
	return Key{Ticker: stem[:j], Start: start, End: end}, true
}

// fileTicker normalises a ticker and strips path separators.
func fileTicker(ticker string) string {
	t := model.NormalizeTicker(ticker)
	return strings.NewReplacer("/", "-", "\\", "-").Replace(t)
}
