// Package cache implements the in-memory query-result cache: an LRU bounded
// by entry count with a lazy per-entry TTL. Entries are keyed by a uint64
// hash of the normalized query (the engine folds the dataset version into
// the hash, so entries from an old snapshot are unreachable after a reload
// even before InvalidateAll runs).
//
// The LRU is an arena: a slice of entries linked into an access-order list
// by index, plus a map from key to slot. Get, Put, and eviction are all
// O(1) amortized; no background sweeper runs, expiry is checked on read.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/internal/stats"
)

const noSlot = -1

type entry struct {
	key            uint64
	ids            []emoji.ID
	insertedAt     time.Time
	lastAccessedAt time.Time
	prev, next     int
}

// QueryCache is safe for concurrent use. Callers must not modify the id
// slices they put in or get out.
type QueryCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration

	entries []entry
	free    []int
	index   map[uint64]int
	head    int // most recently used
	tail    int // least recently used

	stats  *stats.Collector
	logger *slog.Logger
	now    func() time.Time
}

// New creates a QueryCache. maxSize <= 0 disables caching entirely: every
// Get misses and Put is a no-op. ttl <= 0 means entries never expire.
func New(maxSize int, ttl time.Duration, collector *stats.Collector) *QueryCache {
	return &QueryCache{
		maxSize: maxSize,
		ttl:     ttl,
		index:   make(map[uint64]int),
		head:    noSlot,
		tail:    noSlot,
		stats:   collector,
		logger:  slog.Default().With("component", "query-cache"),
		now:     time.Now,
	}
}

// Get returns the cached ids for key. An entry older than the TTL is
// removed and reported as a miss.
func (c *QueryCache) Get(key uint64) ([]emoji.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		c.stats.QueryMiss()
		return nil, false
	}
	now := c.now()
	if c.ttl > 0 && now.Sub(c.entries[i].insertedAt) > c.ttl {
		c.removeLocked(i)
		c.stats.QueryMiss()
		return nil, false
	}
	c.entries[i].lastAccessedAt = now
	c.moveToFrontLocked(i)
	c.stats.QueryHit()
	return c.entries[i].ids, true
}

// Put inserts or overwrites the entry for key. Overwriting refreshes both
// timestamps. Inserting a new key into a full cache first evicts the entry
// with the oldest lastAccessedAt (ties broken by oldest insertedAt).
func (c *QueryCache) Put(key uint64, ids []emoji.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 {
		return
	}
	now := c.now()
	if i, ok := c.index[key]; ok {
		c.entries[i].ids = ids
		c.entries[i].insertedAt = now
		c.entries[i].lastAccessedAt = now
		c.moveToFrontLocked(i)
		return
	}
	for len(c.index) >= c.maxSize && c.tail != noSlot {
		c.evictLocked()
	}
	i := c.allocLocked()
	c.entries[i] = entry{
		key:            key,
		ids:            ids,
		insertedAt:     now,
		lastAccessedAt: now,
		prev:           noSlot,
		next:           noSlot,
	}
	c.index[key] = i
	c.pushFrontLocked(i)
}

// InvalidateAll discards every entry. Stats counters are not touched.
func (c *QueryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.index)
	c.entries = c.entries[:0]
	c.free = c.free[:0]
	c.index = make(map[uint64]int)
	c.head = noSlot
	c.tail = noSlot
	if n > 0 {
		c.logger.Debug("query cache invalidated", "entries_dropped", n)
	}
}

// Len returns the current number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// MaxSize returns the current capacity bound.
func (c *QueryCache) MaxSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// TTL returns the current per-entry TTL.
func (c *QueryCache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

// SetMaxSize applies a new capacity bound. Shrinking below the current size
// evicts immediately, oldest first, counting each eviction.
func (c *QueryCache) SetMaxSize(maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	for len(c.index) > c.maxSize && c.tail != noSlot {
		c.evictLocked()
	}
}

// SetTTL applies a new TTL. Existing entries are re-judged against it on
// their next Get.
func (c *QueryCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// evictLocked removes the least recently used entry and counts the
// eviction.
func (c *QueryCache) evictLocked() {
	i := c.tail
	c.removeLocked(i)
	c.stats.QueryEviction()
}

// removeLocked unlinks slot i and returns it to the free list. No counters.
func (c *QueryCache) removeLocked(i int) {
	delete(c.index, c.entries[i].key)
	c.unlinkLocked(i)
	c.entries[i].ids = nil
	c.free = append(c.free, i)
}

func (c *QueryCache) allocLocked() int {
	if n := len(c.free); n > 0 {
		i := c.free[n-1]
		c.free = c.free[:n-1]
		return i
	}
	c.entries = append(c.entries, entry{})
	return len(c.entries) - 1
}

func (c *QueryCache) pushFrontLocked(i int) {
	c.entries[i].prev = noSlot
	c.entries[i].next = c.head
	if c.head != noSlot {
		c.entries[c.head].prev = i
	}
	c.head = i
	if c.tail == noSlot {
		c.tail = i
	}
}

func (c *QueryCache) unlinkLocked(i int) {
	prev, next := c.entries[i].prev, c.entries[i].next
	if prev != noSlot {
		c.entries[prev].next = next
	} else {
		c.head = next
	}
	if next != noSlot {
		c.entries[next].prev = prev
	} else {
		c.tail = prev
	}
	c.entries[i].prev = noSlot
	c.entries[i].next = noSlot
}

func (c *QueryCache) moveToFrontLocked(i int) {
	if c.head == i {
		return
	}
	c.unlinkLocked(i)
	c.pushFrontLocked(i)
}
