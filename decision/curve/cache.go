package curve

import (
	"sync"

	"github.com/rs/zerolog"
)

// CachedLoader memoises Loader results by the content hash of both snapshots.
// Inputs are immutable for a given hash, so entries never expire.
type CachedLoader struct {
	loader *Loader
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]loadedPair
	hits    int
	misses  int
}

type loadedPair struct {
	base    []PeriodEntry
	compare []PeriodEntry
}

// NewCachedLoader wraps a loader.
func NewCachedLoader(loader *Loader) *CachedLoader {
	return &CachedLoader{
		loader:  loader,
		logger:  zerolog.Nop(),
		entries: make(map[string]loadedPair),
	}
}

// WithLogger attaches a logger.
func (c *CachedLoader) WithLogger(logger zerolog.Logger) *CachedLoader {
	c.logger = logger
	return c
}

// Config returns the wrapped loader's configuration.
func (c *CachedLoader) Config() Config {
	return c.loader.Config()
}

// Load returns the period entries of both snapshots, extracting them at most once per content pair.
func (c *CachedLoader) Load(base, compare *Snapshot) ([]PeriodEntry, []PeriodEntry) {
	key := snapshotHash(base) + ":" + snapshotHash(compare) + ":" + c.loader.cfg.key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if pair, ok := c.entries[key]; ok {
		c.hits++
		c.logger.Debug().Str("base", base.Meta.Label).Str("compare", compare.Meta.Label).Msg("Loader cache hit")
		return pair.base, pair.compare
	}
	c.misses++
	b, cmp := c.loader.Load(base.Table, compare.Table)
	c.entries[key] = loadedPair{base: b, compare: cmp}
	return b, cmp
}

// Stats returns cache hit and miss counts.
func (c *CachedLoader) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func snapshotHash(s *Snapshot) string {
	if s.Hash != "" {
		return s.Hash
	}
	return HashTable(s.Table)
}
