// Package e2e exercises the fully assembled server over real HTTP: dataset
// download, search and cache behavior, reload invalidation, and collection
// files, with no component mocked.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/browniellc/emojitools/internal/dataset"
	"github.com/browniellc/emojitools/internal/engine"
	"github.com/browniellc/emojitools/internal/server"
	"github.com/browniellc/emojitools/pkg/config"
	"github.com/browniellc/emojitools/pkg/health"
	"github.com/browniellc/emojitools/pkg/metrics"
)

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

// datasetSource is a swappable upstream serving gemoji-style JSON, standing
// in for the real dataset host.
type datasetSource struct {
	mu      sync.Mutex
	payload []byte
	srv     *httptest.Server
}

type gemojiEntry struct {
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Aliases     []string `json:"aliases"`
	Tags        []string `json:"tags"`
}

func newDatasetSource(t *testing.T, entries []gemojiEntry) *datasetSource {
	t.Helper()
	s := &datasetSource{}
	s.set(t, entries)
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.payload)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *datasetSource) set(t *testing.T, entries []gemojiEntry) {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshaling dataset: %v", err)
	}
	s.mu.Lock()
	s.payload = data
	s.mu.Unlock()
}

func baseEntries() []gemojiEntry {
	return []gemojiEntry{
		{Emoji: "❤️", Description: "red heart", Category: "Smileys & Emotion", Aliases: []string{"heart"}, Tags: []string{"love"}},
		{Emoji: "💔", Description: "broken heart", Category: "Smileys & Emotion", Aliases: []string{"broken_heart"}, Tags: []string{"sad"}},
		{Emoji: "🔥", Description: "fire", Category: "Travel & Places", Aliases: []string{"fire"}, Tags: []string{"hot", "burn"}},
		{Emoji: "🚀", Description: "rocket", Category: "Travel & Places", Aliases: []string{"rocket"}, Tags: []string{"space", "launch"}},
		{Emoji: "✅", Description: "check mark button", Category: "Symbols", Aliases: []string{"white_check_mark"}, Tags: []string{"done"}},
	}
}

func writeCollections(t *testing.T, path string, colls map[string][]string) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"collections": colls})
	if err != nil {
		t.Fatalf("marshaling collections: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing collections file: %v", err)
	}
}

// harness is one fully wired server: upstream dataset source, loader,
// engine, collections file, and the API with its whole middleware chain.
type harness struct {
	api      *httptest.Server
	source   *datasetSource
	collPath string
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()

	dir := t.TempDir()
	source := newDatasetSource(t, baseEntries())
	collPath := filepath.Join(dir, "collections.json")
	writeCollections(t, collPath, map[string][]string{"faves": {"🔥", "🚀"}})

	cfg := &config.Config{
		Dataset: config.DatasetConfig{
			SourceURL:      source.srv.URL,
			LocalPath:      filepath.Join(dir, "emoji.json"),
			Format:         "json",
			MaxAge:         time.Hour,
			RequestTimeout: 5 * time.Second,
		},
		Cache: config.CacheConfig{
			QueryCacheMaxSize:       64,
			QueryCacheTTL:           time.Minute,
			CollectionCacheEnabled:  true,
			CollectionCacheMaxSlots: 4,
			IndexCacheEnabled:       true,
		},
		Collections: config.CollectionsConfig{Path: collPath},
		Server: config.ServerConfig{
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	m := metrics.New()
	eng, err := engine.New(cfg, m)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(eng.Close)

	loader := dataset.NewLoader(cfg.Dataset)
	records, err := loader.Load(t.Context())
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	eng.Reload(records)

	checker := health.NewChecker()
	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		if eng.Snapshot().Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no records loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(eng, loader, nil)
	api := httptest.NewServer(server.NewServer(cfg.Server, h, checker, m).Handler())
	t.Cleanup(api.Close)

	return &harness{api: api, source: source, collPath: collPath}
}

type searchResult struct {
	Query   string `json:"query"`
	Count   int    `json:"count"`
	Results []struct {
		Character string `json:"character"`
		Name      string `json:"name"`
		Category  string `json:"category"`
	} `json:"results"`
}

func (h *harness) search(t *testing.T, rawQuery string) searchResult {
	t.Helper()
	resp, err := http.Get(h.api.URL + "/api/v1/search?" + rawQuery)
	if err != nil {
		t.Fatalf("search request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("search status = %d: %s", resp.StatusCode, body)
	}
	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	return result
}

type cacheStats struct {
	Stats struct {
		QueryCache struct {
			Hits      int64 `json:"hits"`
			Misses    int64 `json:"misses"`
			Evictions int64 `json:"evictions"`
		} `json:"query_cache"`
		CollectionCache struct {
			Hits   int64 `json:"hits"`
			Misses int64 `json:"misses"`
		} `json:"collection_cache"`
	} `json:"stats"`
	Version uint64 `json:"version"`
	Records int    `json:"records"`
}

func (h *harness) stats(t *testing.T) cacheStats {
	t.Helper()
	resp, err := http.Get(h.api.URL + "/api/v1/cache/stats")
	if err != nil {
		t.Fatalf("stats request: %v", err)
	}
	defer resp.Body.Close()
	var s cacheStats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	return s
}

func (h *harness) post(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(h.api.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

// TestSearchMissThenHit verifies the first search computes and the repeat is
// served from cache with an identical result set.
func TestSearchMissThenHit(t *testing.T) {
	h := newHarness(t, nil)

	before := h.stats(t)
	first := h.search(t, "q=rocket")
	if first.Count != 1 || first.Results[0].Name != "rocket" {
		t.Fatalf("first search = %+v, want the rocket record", first)
	}

	second := h.search(t, "q=rocket")
	if second.Count != first.Count || second.Results[0].Character != first.Results[0].Character {
		t.Errorf("repeat search = %+v, want identical results", second)
	}

	after := h.stats(t)
	if got := after.Stats.QueryCache.Misses - before.Stats.QueryCache.Misses; got != 1 {
		t.Errorf("misses delta = %d, want 1", got)
	}
	if got := after.Stats.QueryCache.Hits - before.Stats.QueryCache.Hits; got != 1 {
		t.Errorf("hits delta = %d, want 1", got)
	}
}

// TestEvictionDropsColdestQuery verifies a capacity-2 cache evicts the first
// of three distinct queries, so repeating it misses again.
func TestEvictionDropsColdestQuery(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Cache.QueryCacheMaxSize = 2
	})

	h.search(t, "q=heart")
	h.search(t, "q=fire")
	h.search(t, "q=rocket")

	before := h.stats(t)
	if before.Stats.QueryCache.Evictions == 0 {
		t.Error("no evictions counted after overflowing a capacity-2 cache")
	}

	h.search(t, "q=heart")
	after := h.stats(t)
	if got := after.Stats.QueryCache.Misses - before.Stats.QueryCache.Misses; got != 1 {
		t.Errorf("misses delta = %d repeating the evicted query, want 1", got)
	}
	if got := after.Stats.QueryCache.Hits - before.Stats.QueryCache.Hits; got != 0 {
		t.Errorf("hits delta = %d repeating the evicted query, want 0", got)
	}
}

// TestTTLExpiryForcesRecomputation verifies an entry past its TTL is a miss,
// not a hit.
func TestTTLExpiryForcesRecomputation(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Cache.QueryCacheTTL = 100 * time.Millisecond
	})

	h.search(t, "q=rocket")
	time.Sleep(250 * time.Millisecond)

	before := h.stats(t)
	h.search(t, "q=rocket")
	after := h.stats(t)

	if got := after.Stats.QueryCache.Misses - before.Stats.QueryCache.Misses; got != 1 {
		t.Errorf("misses delta = %d after TTL expiry, want 1", got)
	}
	if got := after.Stats.QueryCache.Hits - before.Stats.QueryCache.Hits; got != 0 {
		t.Errorf("hits delta = %d after TTL expiry, want 0", got)
	}
}

// TestDatasetReloadInvalidates verifies a reload swaps in the new dataset
// generation: the same query reflects the added record instead of the stale
// cached list.
func TestDatasetReloadInvalidates(t *testing.T) {
	h := newHarness(t, nil)

	first := h.search(t, "q=heart")
	if first.Count != 2 {
		t.Fatalf("pre-reload heart count = %d, want 2", first.Count)
	}
	// Confirm the hit path before reloading.
	h.search(t, "q=heart")
	preReload := h.stats(t)
	if preReload.Stats.QueryCache.Hits == 0 {
		t.Fatal("repeat search did not hit the cache")
	}

	h.source.set(t, append(baseEntries(), gemojiEntry{
		Emoji:       "❤️‍🔥",
		Description: "heart on fire",
		Category:    "Smileys & Emotion",
		Aliases:     []string{"heart_on_fire"},
	}))

	status, body := h.post(t, "/api/v1/dataset/reload")
	if status != http.StatusOK {
		t.Fatalf("reload status = %d: %s", status, body)
	}

	after := h.search(t, "q=heart")
	if after.Count != 3 {
		t.Errorf("post-reload heart count = %d, want 3", after.Count)
	}
	var foundNew bool
	for _, r := range after.Results {
		if r.Name == "heart on fire" {
			foundNew = true
		}
	}
	if !foundNew {
		t.Error("post-reload results missing the added record")
	}

	postReload := h.stats(t)
	if postReload.Version <= preReload.Version {
		t.Errorf("version = %d after reload, want > %d", postReload.Version, preReload.Version)
	}
	if postReload.Records != 6 {
		t.Errorf("records = %d after reload, want 6", postReload.Records)
	}
}

// TestCollectionFileEditVisible verifies an edited collections file is
// re-parsed on next use instead of served from the stale cached parse.
func TestCollectionFileEditVisible(t *testing.T) {
	h := newHarness(t, nil)

	scoped := h.search(t, "q=fire&collection=faves")
	if scoped.Count != 1 || scoped.Results[0].Character != "🔥" {
		t.Fatalf("scoped search = %+v, want just the fire record", scoped)
	}

	// Shrink the collection and push the mtime forward so the change is
	// unambiguous even on coarse filesystem timestamps.
	writeCollections(t, h.collPath, map[string][]string{"faves": {"🚀"}})
	future := time.Now().Add(10 * time.Second)
	if err := os.Chtimes(h.collPath, future, future); err != nil {
		t.Fatalf("bumping collections mtime: %v", err)
	}

	// A query not cached before forces scope resolution against the file.
	burned := h.search(t, "q=burn&collection=faves")
	if burned.Count != 0 {
		t.Errorf("scoped search after edit = %+v, want no results (fire removed from faves)", burned)
	}
	still := h.search(t, "q=rocket&collection=faves")
	if still.Count != 1 || still.Results[0].Character != "🚀" {
		t.Errorf("scoped rocket search = %+v, want the rocket record", still)
	}
}

// TestHealthAndMetrics verifies the operational endpoints on the assembled
// server.
func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)
	h.search(t, "q=rocket")

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(h.api.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(h.api.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "searches_total") {
		t.Error("metrics scrape missing searches_total")
	}
}
