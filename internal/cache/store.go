// Package cache stores fetched price series on disk, one file per
// (ticker, start, end) range.
//
// Lookups are served from an exact key or from any fresh entry of the same
// ticker whose range covers the request. Entries whose range ended more than
// a year ago never expire; recent ones expire after the configured TTL.
// Total size is capped by deleting the oldest files first.
package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afdelacruz/stock-finder/internal/metrics"
	"github.com/afdelacruz/stock-finder/internal/model"
)

// HistoricalThreshold is the age of a range end date beyond which an entry
// is treated as immutable history.
const HistoricalThreshold = 365 * 24 * time.Hour

// Config controls a Store. It is fixed for the life of the Store.
type Config struct {
	Enabled       bool
	Dir           string
	TTLHours      int
	MaxSizeBytes  int64
	DeleteCorrupt bool // remove entries that fail to decode
}

// Stats summarises the cache directory.
type Stats struct {
	Enabled    bool
	Dir        string
	EntryCount int
	TotalBytes int64
	Oldest     time.Time
	Newest     time.Time
}

// Store is a disk-backed price series cache.
type Store struct {
	cfg Config
	now func() time.Time
}

// entry is a cache file found on disk.
type entry struct {
	key   Key
	path  string
	size  int64
	mtime time.Time
}

// New creates a Store, creating the cache directory when enabled.
func New(cfg Config) (*Store, error) {
	if cfg.Enabled {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("cache dir is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &Store{cfg: cfg, now: time.Now}, nil
}

// Config returns the store's configuration.
func (s *Store) Config() Config { return s.cfg }

// Key derives the cache key for a request.
func (s *Store) Key(ticker string, start, end time.Time) Key {
	return NewKey(ticker, start, end)
}

// Get returns the cached series for the range, or false on a miss.
func (s *Store) Get(ticker string, start, end time.Time) (*model.PriceSeries, bool) {
	if !s.cfg.Enabled {
		return nil, false
	}
	key := NewKey(ticker, start, end)

	var (
		e      entry
		exact  bool
		series *model.PriceSeries
	)
	skip := map[string]bool{}
	for {
		var ok bool
		e, exact, ok = s.lookup(key, skip)
		if !ok {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			log.Debug().Str("ticker", key.Ticker).Str("range", key.String()).Msg("cache miss")
			return nil, false
		}
		var err error
		series, err = s.read(e, model.NormalizeTicker(ticker))
		if err == nil {
			break
		}
		log.Warn().Err(err).Str("ticker", key.Ticker).Str("file", e.path).Msg("failed to read cache entry")
		if s.cfg.DeleteCorrupt {
			s.remove(e, "corrupt")
		}
		skip[e.path] = true
	}

	if exact {
		metrics.CacheLookups.WithLabelValues("exact").Inc()
		log.Debug().Str("ticker", key.Ticker).Str("range", key.String()).Msg("cache hit")
		return series, true
	}
	metrics.CacheLookups.WithLabelValues("superset").Inc()
	log.Debug().Str("ticker", key.Ticker).Str("range", key.String()).Str("from", e.key.String()).Msg("cache hit (subset)")
	return series.Between(key.Start, key.End), true
}

// Exists reports whether Get would hit, without decoding the payload.
func (s *Store) Exists(ticker string, start, end time.Time) bool {
	if !s.cfg.Enabled {
		return false
	}
	_, _, ok := s.lookup(NewKey(ticker, start, end), nil)
	return ok
}

// Set writes the series under the exact key, replacing any previous entry.
// Failures are logged; the value is then simply not cached.
func (s *Store) Set(ticker string, start, end time.Time, series *model.PriceSeries) {
	if !s.cfg.Enabled || series == nil {
		return
	}
	key := NewKey(ticker, start, end)

	data, err := encode(key, series)
	if err != nil {
		metrics.CacheWriteErrors.Inc()
		log.Warn().Err(err).Str("ticker", key.Ticker).Msg("failed to cache series")
		return
	}

	s.enforceSizeLimit(key, int64(len(data)))

	if err := s.write(key, data); err != nil {
		metrics.CacheWriteErrors.Inc()
		log.Warn().Err(err).Str("ticker", key.Ticker).Msg("failed to cache series")
		return
	}
	log.Debug().Str("ticker", key.Ticker).Str("range", key.String()).Int("bars", series.Len()).Msg("cached series")
}

// Clear deletes every entry, or only those of ticker when it is non-empty.
// It returns the number of entries removed.
func (s *Store) Clear(ticker string) int {
	if !s.cfg.Enabled {
		return 0
	}
	want := ""
	if ticker != "" {
		want = fileTicker(ticker)
	}

	count := 0
	for _, e := range s.entries() {
		if want != "" && e.key.Ticker != want {
			continue
		}
		if err := os.Remove(e.path); err != nil {
			log.Warn().Err(err).Str("file", e.path).Msg("failed to delete cache file")
			continue
		}
		count++
	}
	log.Info().Int("count", count).Str("ticker", want).Msg("cleared cache entries")
	return count
}

// Stats reports entry count, total size and the mtime span of the cache.
func (s *Store) Stats() Stats {
	st := Stats{Enabled: s.cfg.Enabled, Dir: s.cfg.Dir}
	if !s.cfg.Enabled {
		return st
	}
	for _, e := range s.entries() {
		st.EntryCount++
		st.TotalBytes += e.size
		if st.Oldest.IsZero() || e.mtime.Before(st.Oldest) {
			st.Oldest = e.mtime
		}
		if e.mtime.After(st.Newest) {
			st.Newest = e.mtime
		}
	}
	return st
}

// lookup finds a fresh entry for key: the exact file first, then any
// superset range of the same ticker. Expired candidates are deleted and
// paths in skip are passed over.
func (s *Store) lookup(key Key, skip map[string]bool) (entry, bool, bool) {
	path := filepath.Join(s.cfg.Dir, key.FileName())
	if info, err := os.Stat(path); err == nil && !skip[path] {
		e := entry{key: key, path: path, size: info.Size(), mtime: info.ModTime()}
		if !s.expired(e) {
			return e, true, true
		}
		log.Debug().Str("ticker", key.Ticker).Str("range", key.String()).Msg("cache entry expired")
		s.remove(e, "expired")
	}

	for _, e := range s.tickerEntries(key.Ticker) {
		if skip[e.path] || e.key.Ticker != key.Ticker || !e.key.Contains(key.Start, key.End) {
			continue
		}
		if s.expired(e) {
			log.Debug().Str("ticker", key.Ticker).Str("range", e.key.String()).Msg("superset cache entry expired")
			s.remove(e, "expired")
			continue
		}
		return e, e.key == key, true
	}
	return entry{}, false, false
}

// historical reports whether a range ending at end is old enough to never expire.
func (s *Store) historical(end time.Time) bool {
	threshold := model.Day(s.now()).Add(-HistoricalThreshold)
	return end.Before(threshold)
}

func (s *Store) expired(e entry) bool {
	if s.historical(e.key.End) {
		return false
	}
	if s.cfg.TTLHours <= 0 {
		return true
	}
	return s.now().Sub(e.mtime) > time.Duration(s.cfg.TTLHours)*time.Hour
}

func (s *Store) read(e entry, ticker string) (*model.PriceSeries, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil, err
	}
	return decode(bytes.NewReader(data), ticker)
}

// write replaces the key's file atomically via a temp file and rename.
func (s *Store) write(key Key, data []byte) error {
	tmp, err := os.CreateTemp(s.cfg.Dir, key.FileName()+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.cfg.Dir, key.FileName())); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// enforceSizeLimit deletes the oldest entries until the cache plus an
// incoming payload of size bytes fits under MaxSizeBytes, or nothing is
// left to delete. The entry about to be overwritten does not count.
func (s *Store) enforceSizeLimit(incoming Key, size int64) {
	if s.cfg.MaxSizeBytes <= 0 {
		return
	}

	var candidates []entry
	var total int64
	for _, e := range s.entries() {
		if e.key == incoming {
			continue
		}
		candidates = append(candidates, e)
		total += e.size
	}
	if total+size <= s.cfg.MaxSizeBytes {
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mtime.Equal(candidates[j].mtime) {
			return candidates[i].path < candidates[j].path
		}
		return candidates[i].mtime.Before(candidates[j].mtime)
	})

	for _, e := range candidates {
		if total+size <= s.cfg.MaxSizeBytes {
			break
		}
		if err := os.Remove(e.path); err != nil {
			log.Warn().Err(err).Str("file", e.path).Msg("failed to evict cache file")
			continue
		}
		total -= e.size
		metrics.CacheRemovals.WithLabelValues("evicted").Inc()
		log.Debug().Str("file", filepath.Base(e.path)).Msg("evicted cache entry (LRU)")
	}
}

func (s *Store) remove(e entry, reason string) {
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", e.path).Str("reason", reason).Msg("failed to delete cache file")
		return
	}
	metrics.CacheRemovals.WithLabelValues(reason).Inc()
}

// entries lists every cache file in the directory.
func (s *Store) entries() []entry {
	return s.scan(func(string) bool { return true })
}

// tickerEntries lists the cache files belonging to one ticker.
func (s *Store) tickerEntries(ticker string) []entry {
	prefix := ticker + "_"
	return s.scan(func(name string) bool { return strings.HasPrefix(name, prefix) })
}

func (s *Store) scan(match func(name string) bool) []entry {
	dirEntries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", s.cfg.Dir).Msg("failed to list cache dir")
		}
		return nil
	}

	var out []entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !match(name) {
			continue
		}
		key, ok := parseFileName(name)
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		out = append(out, entry{
			key:   key,
			path:  filepath.Join(s.cfg.Dir, name),
			size:  info.Size(),
			mtime: info.ModTime(),
		})
	}
	return out
}
