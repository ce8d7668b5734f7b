package collections

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/browniellc/emojitools/internal/stats"
	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

// slot pairs a parsed file with the stat fingerprint it was read under. The
// parse is valid only while both the modification time and the size still
// match the file on disk.
type slot struct {
	modTime time.Time
	size    int64
	file    *File
}

// Cache revalidates parsed collection files by mtime on every access. Load
// and parse failures are returned to the caller and never cached, so the
// next access retries from scratch.
type Cache struct {
	slots   *lru.Cache[string, slot]
	enabled atomic.Bool
	stats   *stats.Collector
	logger  *slog.Logger
}

// NewCache creates a Cache holding at most maxSlots paths.
func NewCache(maxSlots int, collector *stats.Collector) (*Cache, error) {
	if maxSlots <= 0 {
		maxSlots = 1
	}
	slots, err := lru.New[string, slot](maxSlots)
	if err != nil {
		return nil, fmt.Errorf("creating collection cache: %w", err)
	}
	c := &Cache{
		slots:  slots,
		stats:  collector,
		logger: slog.Default().With("component", "collection-cache"),
	}
	c.enabled.Store(true)
	return c, nil
}

// Get returns the parsed collections for path, re-reading the file whenever
// its modification time or size changed since the cached parse.
func (c *Cache) Get(path string) (*File, error) {
	if !c.enabled.Load() {
		return parseFile(path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, &pkgerrors.CollectionError{Path: path, Err: err}
	}

	if s, ok := c.slots.Get(path); ok {
		if s.modTime.Equal(fi.ModTime()) && s.size == fi.Size() {
			c.stats.CollectionHit()
			return s.file, nil
		}
		c.logger.Debug("collection file changed on disk", "path", path)
	}

	f, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	c.slots.Add(path, slot{modTime: fi.ModTime(), size: fi.Size(), file: f})
	c.stats.CollectionMiss()
	return f, nil
}

// Invalidate drops the slot for one path.
func (c *Cache) Invalidate(path string) {
	c.slots.Remove(path)
}

// Purge drops every slot.
func (c *Cache) Purge() {
	c.slots.Purge()
}

// SetEnabled toggles caching at runtime. Disabled means every Get re-reads
// and re-parses the file; existing slots are dropped.
func (c *Cache) SetEnabled(enabled bool) {
	was := c.enabled.Swap(enabled)
	if was && !enabled {
		c.slots.Purge()
	}
}

// SetMaxSlots resizes the cache, evicting the oldest slots when shrinking.
func (c *Cache) SetMaxSlots(maxSlots int) {
	if maxSlots <= 0 {
		maxSlots = 1
	}
	if evicted := c.slots.Resize(maxSlots); evicted > 0 {
		c.logger.Debug("collection cache resized", "max_slots", maxSlots, "evicted", evicted)
	}
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	return c.slots.Len()
}
