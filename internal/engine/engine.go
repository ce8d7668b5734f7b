// Package engine ties the dataset snapshot, the inverted indices, and the
// two caches together behind one search API. A reload swaps the snapshot,
// the indices, and the cache generation in a single publish so readers
// never observe a half-updated state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/browniellc/emojitools/internal/cache"
	"github.com/browniellc/emojitools/internal/collections"
	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/internal/index"
	"github.com/browniellc/emojitools/internal/stats"
	"github.com/browniellc/emojitools/internal/store"
	"github.com/browniellc/emojitools/pkg/config"
	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
	"github.com/browniellc/emojitools/pkg/metrics"
)

// state is one published generation: a snapshot and the indices built from
// it. Swapped atomically as a unit.
type state struct {
	snap *emoji.Snapshot
	idx  *index.Indices
}

// options holds the hot-swappable settings read on every search.
type options struct {
	collectionsPath   string
	indexCacheEnabled bool
	warmupEnabled     bool
	warmupQueries     []string
	warmupConcurrency int
}

// Engine is the in-process search engine over the emoji dataset. Reads are
// lock-free; Reload, ClearAll, and ApplyConfig serialize on an internal
// mutex.
type Engine struct {
	mu    sync.Mutex
	state atomic.Pointer[state]
	opts  atomic.Pointer[options]

	store   *store.Store
	builder *index.Builder
	queries *cache.QueryCache
	colls   *collections.Cache
	stats   *stats.Collector
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger

	warmupMu      sync.Mutex
	warmupRunning bool
	warmupCancel  context.CancelFunc
	warmupDone    chan struct{}
}

// New builds an Engine from config. m may be nil; stats are then kept in
// counters only.
func New(cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	collector := stats.NewCollector(m)
	colls, err := collections.NewCache(cfg.Cache.CollectionCacheMaxSlots, collector)
	if err != nil {
		return nil, fmt.Errorf("creating collection cache: %w", err)
	}
	colls.SetEnabled(cfg.Cache.CollectionCacheEnabled)

	e := &Engine{
		store:   store.New(),
		builder: index.NewBuilder(collector),
		queries: cache.New(cfg.Cache.QueryCacheMaxSize, cfg.Cache.QueryCacheTTL, collector),
		colls:   colls,
		stats:   collector,
		metrics: m,
		logger:  slog.Default().With("component", "engine"),
	}
	e.state.Store(&state{snap: e.store.Current(), idx: &index.Indices{}})
	e.opts.Store(optionsFrom(cfg))
	return e, nil
}

func optionsFrom(cfg *config.Config) *options {
	return &options{
		collectionsPath:   cfg.Collections.Path,
		indexCacheEnabled: cfg.Cache.IndexCacheEnabled,
		warmupEnabled:     cfg.Warmup.Enabled,
		warmupQueries:     cfg.Warmup.Queries,
		warmupConcurrency: cfg.Warmup.Concurrency,
	}
}

// Reload swaps in a new dataset generation: new snapshot, fresh indices,
// empty query cache. Searches running concurrently keep the generation they
// started with.
func (e *Engine) Reload(records []emoji.Record) *emoji.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	snap := e.store.Swap(records)
	idx := e.builder.Build(snap)
	e.state.Store(&state{snap: snap, idx: idx})
	e.queries.InvalidateAll()

	took := time.Since(start)
	if e.metrics != nil {
		e.metrics.IndexBuildDuration.Observe(took.Seconds())
		e.metrics.DatasetRecords.Set(float64(snap.Len()))
		e.metrics.DatasetVersion.Set(float64(snap.Version))
	}
	e.logger.Info("dataset reloaded",
		"version", snap.Version,
		"records", snap.Len(),
		"took", took,
	)
	return snap
}

// ClearAll drops both caches. With rebuild set it also rebuilds the indices
// from the current snapshot; the dataset version does not change.
func (e *Engine) ClearAll(rebuild bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rebuild {
		start := time.Now()
		st := e.state.Load()
		idx := e.builder.Build(st.snap)
		e.state.Store(&state{snap: st.snap, idx: idx})
		if e.metrics != nil {
			e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
		}
	}
	e.queries.InvalidateAll()
	e.colls.Purge()
	e.logger.Info("caches cleared", "rebuilt_indices", rebuild)
}

// ApplyConfig applies the hot-swappable settings from cfg. Shrinking the
// query cache evicts immediately.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queries.SetMaxSize(cfg.Cache.QueryCacheMaxSize)
	e.queries.SetTTL(cfg.Cache.QueryCacheTTL)
	e.colls.SetEnabled(cfg.Cache.CollectionCacheEnabled)
	e.colls.SetMaxSlots(cfg.Cache.CollectionCacheMaxSlots)
	e.opts.Store(optionsFrom(cfg))
	e.logger.Debug("config applied",
		"query_cache_max_size", cfg.Cache.QueryCacheMaxSize,
		"query_cache_ttl", cfg.Cache.QueryCacheTTL,
		"index_cache_enabled", cfg.Cache.IndexCacheEnabled,
	)
}

// GetByCategory returns every record in a category, case-insensitively.
func (e *Engine) GetByCategory(category string) ([]emoji.Record, error) {
	st := e.state.Load()
	ids := st.idx.LookupCategory(category)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrCategoryNotFound, category)
	}
	return st.snap.Resolve(ids), nil
}

// GetByCharacter returns the record for a literal emoji character.
func (e *Engine) GetByCharacter(character string) (emoji.Record, error) {
	st := e.state.Load()
	recs := st.snap.Resolve(st.idx.LookupCharacter(character))
	if len(recs) == 0 {
		return emoji.Record{}, fmt.Errorf("%w: %q", pkgerrors.ErrEmojiNotFound, character)
	}
	return recs[0], nil
}

// Categories lists the known categories in their original casing, sorted.
func (e *Engine) Categories() []string {
	st := e.state.Load()
	out := make([]string, len(st.idx.CategoryNames))
	copy(out, st.idx.CategoryNames)
	return out
}

// Collections returns the parsed collections file, going through the
// collection cache.
func (e *Engine) Collections() (*collections.File, error) {
	o := e.opts.Load()
	if o.collectionsPath == "" {
		return nil, pkgerrors.ErrNoCollectionsFile
	}
	return e.colls.Get(o.collectionsPath)
}

// Snapshot returns the current dataset generation.
func (e *Engine) Snapshot() *emoji.Snapshot {
	return e.state.Load().snap
}

// Version returns the current dataset version.
func (e *Engine) Version() uint64 {
	return e.state.Load().snap.Version
}

// Stats returns a point-in-time copy of the engine counters.
func (e *Engine) Stats() stats.Snapshot {
	return e.stats.Snapshot()
}

// ResetStats zeroes the engine counters. Prometheus series, being
// monotonic, are not touched.
func (e *Engine) ResetStats() {
	e.stats.Reset()
}

// CacheInfo reports the live cache dimensions for introspection surfaces.
type CacheInfo struct {
	QueryLen        int           `json:"query_entries"`
	QueryMaxSize    int           `json:"query_max_size"`
	QueryTTL        time.Duration `json:"query_ttl"`
	CollectionSlots int           `json:"collection_slots"`
}

// CacheInfo returns the current cache dimensions.
func (e *Engine) CacheInfo() CacheInfo {
	return CacheInfo{
		QueryLen:        e.queries.Len(),
		QueryMaxSize:    e.queries.MaxSize(),
		QueryTTL:        e.queries.TTL(),
		CollectionSlots: e.colls.Len(),
	}
}

// InvalidateCollection drops the cached slot for one collections file.
func (e *Engine) InvalidateCollection(path string) {
	e.colls.Invalidate(path)
}

// Close stops background work. A running warmup is cancelled and awaited.
func (e *Engine) Close() {
	e.warmupMu.Lock()
	cancel, done := e.warmupCancel, e.warmupDone
	e.warmupMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
