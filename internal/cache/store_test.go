package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afdelacruz/stock-finder/internal/model"
)

func newTestStore(t *testing.T, ttlHours int, maxBytes int64) *Store {
	t.Helper()
	s, err := New(Config{
		Enabled:       true,
		Dir:           t.TempDir(),
		TTLHours:      ttlHours,
		MaxSizeBytes:  maxBytes,
		DeleteCorrupt: true,
	})
	require.NoError(t, err)
	return s
}

// makeSeries builds one bar per calendar day over [start, end].
func makeSeries(ticker string, start, end time.Time) *model.PriceSeries {
	var bars []model.OHLCV
	p := 10.0
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		bars = append(bars, model.OHLCV{Time: d, Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 1e6})
		p += 0.25
	}
	return model.NewPriceSeries(ticker, bars)
}

func recentRange() (time.Time, time.Time) {
	end := model.Day(time.Now()).AddDate(0, 0, -5)
	return end.AddDate(0, 0, -60), end
}

func historicalRange() (time.Time, time.Time) {
	end := model.Day(time.Now()).AddDate(-2, 0, 0)
	return end.AddDate(0, 0, -60), end
}

func TestKey_Deterministic(t *testing.T) {
	start := time.Date(2023, 1, 1, 15, 4, 5, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	a := NewKey("aapl", start, end)
	b := NewKey("AAPL ", start, end)
	assert.Equal(t, a, b)
	assert.Equal(t, "AAPL_2023-01-01_2023-12-31.json.gz", a.FileName())
}

func TestParseFileName(t *testing.T) {
	start := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, ticker := range []string{"AAPL", "BRK_B", "BF/B"} {
		k := NewKey(ticker, start, end)
		got, ok := parseFileName(k.FileName())
		require.True(t, ok, ticker)
		assert.Equal(t, k, got)
	}

	for _, name := range []string{"AAPL.json.gz", "AAPL_2022-05-01.json.gz", "AAPL_x_y.json.gz", "AAPL_2022-05-01_2023-05-01.parquet"} {
		_, ok := parseFileName(name)
		assert.False(t, ok, name)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t, 24, 0)
	start, end := recentRange()
	series := makeSeries("AAPL", start, end)

	s.Set("AAPL", start, end, series)

	got, ok := s.Get("AAPL", start, end)
	require.True(t, ok)
	assert.Equal(t, series, got)
	assert.True(t, s.Exists("AAPL", start, end))
}

func TestStore_SupersetServing(t *testing.T) {
	s := newTestStore(t, 24, 0)
	start, end := recentRange()
	series := makeSeries("MSFT", start, end)
	s.Set("MSFT", start, end, series)

	subStart, subEnd := start.AddDate(0, 0, 10), end.AddDate(0, 0, -10)
	got, ok := s.Get("MSFT", subStart, subEnd)
	require.True(t, ok)
	assert.Equal(t, series.Between(subStart, subEnd), got)
	assert.Equal(t, subStart, got.First())
	assert.Equal(t, subEnd, got.Last())
	assert.True(t, s.Exists("MSFT", subStart, subEnd))

	_, ok = s.Get("MSFT", start.AddDate(0, 0, -1), end)
	assert.False(t, ok, "range starting before the cached one is not covered")
	_, ok = s.Get("MSFTX", subStart, subEnd)
	assert.False(t, ok, "other tickers sharing a prefix are not served")
}

func TestStore_TTLZeroExpiresRecentData(t *testing.T) {
	s := newTestStore(t, 0, 0)
	start, end := recentRange()
	s.Set("NVDA", start, end, makeSeries("NVDA", start, end))

	_, ok := s.Get("NVDA", start, end)
	assert.False(t, ok)

	_, err := os.Stat(filepath.Join(s.cfg.Dir, NewKey("NVDA", start, end).FileName()))
	assert.True(t, os.IsNotExist(err), "expired entry is deleted")
}

func TestStore_HistoricalNeverExpires(t *testing.T) {
	s := newTestStore(t, 0, 0)
	start, end := historicalRange()
	series := makeSeries("IBM", start, end)
	s.Set("IBM", start, end, series)

	got, ok := s.Get("IBM", start, end)
	require.True(t, ok)
	assert.Equal(t, series, got)
}

func TestStore_TTLUsesFileMtime(t *testing.T) {
	s := newTestStore(t, 1, 0)
	start, end := recentRange()
	s.Set("AMD", start, end, makeSeries("AMD", start, end))

	_, ok := s.Get("AMD", start, end)
	require.True(t, ok)

	path := filepath.Join(s.cfg.Dir, NewKey("AMD", start, end).FileName())
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	_, ok = s.Get("AMD", start, end)
	assert.False(t, ok)
	assert.False(t, s.Exists("AMD", start, end))
}

func TestStore_ExpiredSupersetIsSkipped(t *testing.T) {
	s := newTestStore(t, 1, 0)
	start, end := recentRange()
	s.Set("TSLA", start, end, makeSeries("TSLA", start, end))

	path := filepath.Join(s.cfg.Dir, NewKey("TSLA", start, end).FileName())
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	_, ok := s.Get("TSLA", start.AddDate(0, 0, 1), end.AddDate(0, 0, -1))
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_LRUEviction(t *testing.T) {
	s := newTestStore(t, 24, 0)
	start, end := recentRange()

	tickers := []string{"AAA", "BBB", "CCC"}
	for i, ticker := range tickers {
		s.Set(ticker, start, end, makeSeries(ticker, start, end))
		path := filepath.Join(s.cfg.Dir, NewKey(ticker, start, end).FileName())
		mt := time.Now().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, os.Chtimes(path, mt, mt))
	}

	sizeOf := func(ticker string) int64 {
		info, err := os.Stat(filepath.Join(s.cfg.Dir, NewKey(ticker, start, end).FileName()))
		require.NoError(t, err)
		return info.Size()
	}
	incoming := makeSeries("DDD", start, end)
	data, err := encode(NewKey("DDD", start, end), incoming)
	require.NoError(t, err)

	// Room for exactly CCC plus the new entry: AAA then BBB must go.
	s.cfg.MaxSizeBytes = sizeOf("CCC") + int64(len(data))
	s.Set("DDD", start, end, incoming)

	assert.False(t, s.Exists("AAA", start, end))
	assert.False(t, s.Exists("BBB", start, end))
	assert.True(t, s.Exists("CCC", start, end))
	assert.True(t, s.Exists("DDD", start, end))

	st := s.Stats()
	assert.Equal(t, 2, st.EntryCount)
	assert.LessOrEqual(t, st.TotalBytes, s.cfg.MaxSizeBytes)
}

func TestStore_OverwriteDoesNotEvictItself(t *testing.T) {
	s := newTestStore(t, 24, 0)
	start, end := recentRange()
	series := makeSeries("ORCL", start, end)
	s.Set("ORCL", start, end, series)

	s.cfg.MaxSizeBytes = s.Stats().TotalBytes
	s.Set("ORCL", start, end, series)

	got, ok := s.Get("ORCL", start, end)
	require.True(t, ok)
	assert.Equal(t, series, got)
	assert.Equal(t, 1, s.Stats().EntryCount)
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	for _, deleteCorrupt := range []bool{true, false} {
		s := newTestStore(t, 24, 0)
		s.cfg.DeleteCorrupt = deleteCorrupt
		start, end := recentRange()

		path := filepath.Join(s.cfg.Dir, NewKey("BAD", start, end).FileName())
		require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

		_, ok := s.Get("BAD", start, end)
		assert.False(t, ok)

		_, err := os.Stat(path)
		assert.Equal(t, deleteCorrupt, os.IsNotExist(err))
	}
}

func TestStore_CorruptSupersetFallsThroughToNextCandidate(t *testing.T) {
	for _, deleteCorrupt := range []bool{true, false} {
		s := newTestStore(t, 24, 0)
		s.cfg.DeleteCorrupt = deleteCorrupt
		start, end := recentRange()

		// The corrupt entry sorts first in the directory listing.
		badPath := filepath.Join(s.cfg.Dir, NewKey("QQQ", start.AddDate(0, 0, -20), end).FileName())
		require.NoError(t, os.WriteFile(badPath, []byte("not gzip"), 0o644))
		good := makeSeries("QQQ", start.AddDate(0, 0, -10), end)
		s.Set("QQQ", start.AddDate(0, 0, -10), end, good)

		got, ok := s.Get("QQQ", start, end)
		require.True(t, ok)
		assert.Equal(t, good.Between(start, end), got)

		_, err := os.Stat(badPath)
		assert.Equal(t, deleteCorrupt, os.IsNotExist(err))
	}
}

func TestStore_ClearAndStats(t *testing.T) {
	s := newTestStore(t, 24, 0)
	start, end := recentRange()
	s.Set("AAPL", start, end, makeSeries("AAPL", start, end))
	s.Set("AAPL", start.AddDate(0, 0, 1), end, makeSeries("AAPL", start.AddDate(0, 0, 1), end))
	s.Set("MSFT", start, end, makeSeries("MSFT", start, end))

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Dir, "notes.txt"), []byte("x"), 0o644))

	st := s.Stats()
	assert.Equal(t, 3, st.EntryCount)
	assert.Greater(t, st.TotalBytes, int64(0))
	assert.False(t, st.Oldest.After(st.Newest))

	assert.Equal(t, 2, s.Clear("aapl"))
	assert.Equal(t, 1, s.Stats().EntryCount)
	assert.Equal(t, 1, s.Clear(""))
	assert.Equal(t, 0, s.Stats().EntryCount)
}

func TestStore_Disabled(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{Enabled: false, Dir: dir, TTLHours: 24})
	require.NoError(t, err)
	start, end := recentRange()

	s.Set("AAPL", start, end, makeSeries("AAPL", start, end))
	_, ok := s.Get("AAPL", start, end)
	assert.False(t, ok)
	assert.False(t, s.Exists("AAPL", start, end))
	assert.Equal(t, 0, s.Clear(""))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}
