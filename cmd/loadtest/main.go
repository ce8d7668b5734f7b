// Command loadtest drives a running emojitools server with a weighted mix
// of search, lookup, and category traffic, then reports latency per route
// and how the run landed against the server's query cache.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// A mix of hot repeats, multi-token queries, and a deliberate miss, so the
// run exercises both cache paths.
var searchQueries = []string{
	"heart",
	"fire",
	"rocket",
	"smiling face",
	"thumbs up",
	"red heart",
	"cat face",
	"party popper",
	"check mark",
	"crying laughing",
	"sun",
	"rain cloud",
	"pizza",
	"zanzibar copal",
	"sparkles",
}

var lookupCharacters = []string{"❤️", "🔥", "🚀", "😂", "👍", "✨"}

var categories = []string{"Smileys & Emotion", "Travel & Places", "Food & Drink"}

// op is one kind of request. Weight is its share in a 20-slot round-robin
// schedule, so runs are reproducible without a random source.
type op struct {
	name   string
	weight int
	url    func(base string, i int) string
}

var ops = []op{
	{"search", 13, func(base string, i int) string {
		q := searchQueries[i%len(searchQueries)]
		return fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", base, url.QueryEscape(q))
	}},
	{"search_exact", 3, func(base string, i int) string {
		q := searchQueries[i%len(searchQueries)]
		return fmt.Sprintf("%s/api/v1/search?q=%s&exact=true", base, url.QueryEscape(q))
	}},
	{"emoji_lookup", 2, func(base string, i int) string {
		ch := lookupCharacters[i%len(lookupCharacters)]
		return fmt.Sprintf("%s/api/v1/emoji/%s", base, url.PathEscape(ch))
	}},
	{"categories", 1, func(base string, i int) string {
		return base + "/api/v1/categories"
	}},
	{"category_detail", 1, func(base string, i int) string {
		c := categories[i%len(categories)]
		return fmt.Sprintf("%s/api/v1/categories/%s", base, url.PathEscape(c))
	}},
}

// schedule expands the op weights into a flat rotation.
func schedule() []*op {
	var sched []*op
	for i := range ops {
		for n := 0; n < ops[i].weight; n++ {
			sched = append(sched, &ops[i])
		}
	}
	return sched
}

type opStats struct {
	count     atomic.Int64
	latencies []time.Duration
	mu        sync.Mutex
}

func (o *opStats) record(d time.Duration) {
	o.count.Add(1)
	o.mu.Lock()
	o.latencies = append(o.latencies, d)
	o.mu.Unlock()
}

func (o *opStats) sorted() []time.Duration {
	o.mu.Lock()
	out := make([]time.Duration, len(o.latencies))
	copy(out, o.latencies)
	o.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type stats struct {
	total       atomic.Int64
	success     atomic.Int64
	failures    atomic.Int64
	perOp       map[string]*opStats
	statusCodes map[int]*atomic.Int64
	statusMu    sync.Mutex
}

func newStats() *stats {
	per := make(map[string]*opStats, len(ops))
	for i := range ops {
		per[ops[i].name] = &opStats{}
	}
	return &stats{perOp: per, statusCodes: make(map[int]*atomic.Int64)}
}

func (s *stats) record(opName string, d time.Duration, statusCode int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failures.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.success.Add(1)
	} else {
		s.failures.Add(1)
	}
	s.perOp[opName].record(d)

	s.statusMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusMu.Unlock()
}

// cacheCounters is the slice of /api/v1/cache/stats this tool reads.
type cacheCounters struct {
	Stats struct {
		QueryCache struct {
			Hits      int64 `json:"hits"`
			Misses    int64 `json:"misses"`
			Evictions int64 `json:"evictions"`
		} `json:"query_cache"`
	} `json:"stats"`
	Version uint64 `json:"version"`
	Records int    `json:"records"`
}

func fetchCacheCounters(client *http.Client, baseURL string) (cacheCounters, error) {
	var c cacheCounters
	resp, err := client.Get(baseURL + "/api/v1/cache/stats")
	if err != nil {
		return c, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c, fmt.Errorf("cache stats: unexpected status %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&c)
	return c, err
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the emoji search API")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *concurrency * 2,
			MaxIdleConnsPerHost: *concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Println("=== Emoji Search Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d unique, %d routes\n", len(searchQueries), len(ops))
	fmt.Println()

	before, beforeErr := fetchCacheCounters(client, *baseURL)
	if beforeErr != nil {
		fmt.Printf("WARNING: could not read cache stats before the run: %v\n\n", beforeErr)
	}

	st := run(client, *baseURL, *concurrency, *duration)
	report(st, *duration)

	if beforeErr == nil {
		if after, err := fetchCacheCounters(client, *baseURL); err == nil {
			reportCacheDelta(before, after)
		}
	}
}

func run(client *http.Client, baseURL string, concurrency int, duration time.Duration) *stats {
	st := newStats()
	sched := schedule()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Offset per worker so hot queries overlap across workers
			// while the rotation still covers every route.
			i := workerID

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				o := sched[i%len(sched)]
				reqURL := o.url(baseURL, i)
				i++

				start := time.Now()
				resp, err := client.Do(mustNewRequest(ctx, reqURL))
				took := time.Since(start)

				if err != nil {
					st.record(o.name, took, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				st.record(o.name, took, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return st
}

func mustNewRequest(ctx context.Context, rawURL string) *http.Request {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	return req
}

func report(st *stats, duration time.Duration) {
	total := st.total.Load()
	success := st.success.Load()
	failures := st.failures.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Failures:        %d\n", failures)
	if total > 0 {
		fmt.Printf("Failure Rate:    %.2f%%\n", float64(failures)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	fmt.Println()
	fmt.Println("=== Latency by Route ===")
	fmt.Printf("%-16s %9s %9s %9s %9s %9s %9s\n",
		"route", "count", "min", "p50", "p95", "p99", "max")
	for i := range ops {
		name := ops[i].name
		lat := st.perOp[name].sorted()
		if len(lat) == 0 {
			continue
		}
		fmt.Printf("%-16s %9d %9s %9s %9s %9s %9s\n",
			name, len(lat),
			round(lat[0]), round(percentile(lat, 50)), round(percentile(lat, 95)),
			round(percentile(lat, 99)), round(lat[len(lat)-1]))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	st.statusMu.Lock()
	codes := make([]int, 0, len(st.statusCodes))
	for code := range st.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, st.statusCodes[code].Load())
	}
	st.statusMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the server running?")
		os.Exit(1)
	}
}

// reportCacheDelta shows what the run did to the server's query cache.
func reportCacheDelta(before, after cacheCounters) {
	hits := after.Stats.QueryCache.Hits - before.Stats.QueryCache.Hits
	misses := after.Stats.QueryCache.Misses - before.Stats.QueryCache.Misses
	evictions := after.Stats.QueryCache.Evictions - before.Stats.QueryCache.Evictions

	fmt.Println()
	fmt.Println("=== Query Cache (this run) ===")
	fmt.Printf("Hits:      %d\n", hits)
	fmt.Printf("Misses:    %d\n", misses)
	fmt.Printf("Evictions: %d\n", evictions)
	if hits+misses > 0 {
		fmt.Printf("Hit Rate:  %.2f%%\n", float64(hits)/float64(hits+misses)*100)
	}
	fmt.Printf("Dataset:   version %d, %d records\n", after.Version, after.Records)
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Second:
		return d.Round(time.Millisecond)
	case d > time.Millisecond:
		return d.Round(10 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
