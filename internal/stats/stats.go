// Package stats tracks hit, miss, and eviction counters for every cache in
// the engine. Counters are monotonic for the life of the process except for
// an explicit Reset, which zeroes them without touching cached data.
package stats

import (
	"sync/atomic"

	"github.com/browniellc/emojitools/pkg/metrics"
)

// Collector is the single sink for cache and index counters. The optional
// Metrics instance receives the same increments; Prometheus counters are not
// affected by Reset.
type Collector struct {
	m *metrics.Metrics

	queryHits      atomic.Int64
	queryMisses    atomic.Int64
	queryEvictions atomic.Int64
	collectionHits atomic.Int64
	collectionMiss atomic.Int64
	indexBuilds    atomic.Int64
	warmupFailures atomic.Int64
	recordsSkipped atomic.Int64
}

// CacheStats is the per-cache slice of a Snapshot.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// HitRate returns hits / (hits + misses), or 0 when the cache is untouched.
func (c CacheStats) HitRate() float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.Hits) / float64(total)
}

// Snapshot is a point-in-time, read-only copy of all counters.
type Snapshot struct {
	QueryCache      CacheStats `json:"query_cache"`
	CollectionCache CacheStats `json:"collection_cache"`
	IndexBuilds     int64      `json:"index_builds"`
	WarmupFailures  int64      `json:"warmup_failures"`
	RecordsSkipped  int64      `json:"records_skipped"`
}

// NewCollector creates a Collector. m may be nil when Prometheus export is
// not wanted (most tests).
func NewCollector(m *metrics.Metrics) *Collector {
	return &Collector{m: m}
}

func (c *Collector) QueryHit() {
	c.queryHits.Add(1)
	if c.m != nil {
		c.m.CacheHitsTotal.WithLabelValues("query").Inc()
	}
}

func (c *Collector) QueryMiss() {
	c.queryMisses.Add(1)
	if c.m != nil {
		c.m.CacheMissesTotal.WithLabelValues("query").Inc()
	}
}

func (c *Collector) QueryEviction() {
	c.queryEvictions.Add(1)
	if c.m != nil {
		c.m.CacheEvictionsTotal.Inc()
	}
}

func (c *Collector) CollectionHit() {
	c.collectionHits.Add(1)
	if c.m != nil {
		c.m.CacheHitsTotal.WithLabelValues("collection").Inc()
	}
}

func (c *Collector) CollectionMiss() {
	c.collectionMiss.Add(1)
	if c.m != nil {
		c.m.CacheMissesTotal.WithLabelValues("collection").Inc()
	}
}

func (c *Collector) IndexBuild() {
	c.indexBuilds.Add(1)
	if c.m != nil {
		c.m.IndexBuildsTotal.Inc()
	}
}

func (c *Collector) WarmupFailure() {
	c.warmupFailures.Add(1)
	if c.m != nil {
		c.m.WarmupQueriesTotal.WithLabelValues("error").Inc()
	}
}

func (c *Collector) WarmupSuccess() {
	if c.m != nil {
		c.m.WarmupQueriesTotal.WithLabelValues("ok").Inc()
	}
}

func (c *Collector) RecordSkipped() {
	c.recordsSkipped.Add(1)
}

// Snapshot returns a consistent-enough copy of all counters. Counters are
// read individually; a snapshot taken while traffic is flowing may be off by
// in-flight increments, which is acceptable for an observability surface.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		QueryCache: CacheStats{
			Hits:      c.queryHits.Load(),
			Misses:    c.queryMisses.Load(),
			Evictions: c.queryEvictions.Load(),
		},
		CollectionCache: CacheStats{
			Hits:   c.collectionHits.Load(),
			Misses: c.collectionMiss.Load(),
		},
		IndexBuilds:    c.indexBuilds.Load(),
		WarmupFailures: c.warmupFailures.Load(),
		RecordsSkipped: c.recordsSkipped.Load(),
	}
}

// Reset zeroes all counters. Cached data and Prometheus counters are left
// alone.
func (c *Collector) Reset() {
	c.queryHits.Store(0)
	c.queryMisses.Store(0)
	c.queryEvictions.Store(0)
	c.collectionHits.Store(0)
	c.collectionMiss.Store(0)
	c.indexBuilds.Store(0)
	c.warmupFailures.Store(0)
	c.recordsSkipped.Store(0)
}
