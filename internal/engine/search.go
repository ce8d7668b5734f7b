package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/internal/index"
	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

// SearchOptions narrows a search. Collection names a collection from the
// configured collections file; Exact disables the substring fallback.
type SearchOptions struct {
	Exact      bool
	Collection string
}

// Search finds records matching query. Tokens are matched against the name
// and keyword indices and ANDed; an empty result falls back to a substring
// scan unless Exact is set. Results come back in snapshot order.
//
// Identical searches racing each other share one computation; the cache
// key folds in the dataset version, so results computed against an old
// generation can never serve a new one.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]emoji.Record, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, pkgerrors.ErrInvalidQuery
	}

	start := time.Now()
	st := e.state.Load()
	o := e.opts.Load()
	key := queryKey(st.idx.Version, opts.Exact, opts.Collection, normalized)

	if ids, ok := e.queries.Get(key); ok {
		e.observeSearch("hit", time.Since(start))
		return st.snap.Resolve(ids), nil
	}

	v, err, _ := e.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		ids, err := e.compute(st, o, normalized, opts)
		if err != nil {
			return nil, err
		}
		e.queries.Put(key, ids)
		return ids, nil
	})
	if err != nil {
		e.observeSearch("error", time.Since(start))
		return nil, err
	}
	e.observeSearch("miss", time.Since(start))
	return st.snap.Resolve(v.([]emoji.ID)), nil
}

// compute runs the uncached search pipeline against one generation. The
// returned ids are sorted ascending; every step below preserves that.
func (e *Engine) compute(st *state, o *options, normalized string, opts SearchOptions) ([]emoji.ID, error) {
	tokens := index.Tokenize(normalized)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no searchable tokens in %q", pkgerrors.ErrInvalidQuery, normalized)
	}

	var ids []emoji.ID
	if o.indexCacheEnabled {
		ids = e.lookupTokens(st.idx, tokens)
	} else {
		ids = scanTokens(st.snap, tokens)
	}
	if len(ids) == 0 && !opts.Exact {
		ids = scanSubstring(st.snap, normalized)
	}

	if opts.Collection != "" {
		scopeIDs, err := e.resolveScope(st.idx, o.collectionsPath, opts.Collection)
		if err != nil {
			return nil, err
		}
		ids = index.Intersect(ids, scopeIDs)
	}
	return ids, nil
}

// lookupTokens ANDs the per-token posting unions. Single-token queries
// degenerate to the plain union.
func (e *Engine) lookupTokens(idx *index.Indices, tokens []string) []emoji.ID {
	ids := idx.LookupToken(tokens[0])
	for _, tok := range tokens[1:] {
		if len(ids) == 0 {
			return nil
		}
		ids = index.Intersect(ids, idx.LookupToken(tok))
	}
	return ids
}

// resolveScope maps a collection's member characters to ids in the current
// generation. Members naming characters absent from the dataset contribute
// nothing.
func (e *Engine) resolveScope(idx *index.Indices, path, collection string) ([]emoji.ID, error) {
	if path == "" {
		return nil, pkgerrors.ErrNoCollectionsFile
	}
	file, err := e.colls.Get(path)
	if err != nil {
		return nil, err
	}
	members, err := file.Members(collection)
	if err != nil {
		return nil, err
	}
	var ids []emoji.ID
	for _, ch := range members {
		ids = index.Union(ids, idx.LookupCharacter(ch))
	}
	return ids, nil
}

// scanTokens is the index-free equivalent of lookupTokens: a record matches
// when every query token appears among its name or keyword tokens.
func scanTokens(snap *emoji.Snapshot, tokens []string) []emoji.ID {
	var ids []emoji.ID
	for _, rec := range snap.Records {
		if recordHasAllTokens(rec, tokens) {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

func recordHasAllTokens(rec emoji.Record, tokens []string) bool {
	for _, tok := range tokens {
		if !recordHasToken(rec, tok) {
			return false
		}
	}
	return true
}

func recordHasToken(rec emoji.Record, token string) bool {
	for _, t := range index.Tokenize(rec.Name) {
		if t == token {
			return true
		}
	}
	for _, kw := range rec.Keywords {
		for _, t := range index.Tokenize(kw) {
			if t == token {
				return true
			}
		}
	}
	return false
}

// scanSubstring matches the normalized query as a substring of a record's
// lowercased name or keywords.
func scanSubstring(snap *emoji.Snapshot, normalized string) []emoji.ID {
	var ids []emoji.ID
	for _, rec := range snap.Records {
		if recordContains(rec, normalized) {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

func recordContains(rec emoji.Record, normalized string) bool {
	if strings.Contains(strings.ToLower(rec.Name), normalized) {
		return true
	}
	for _, kw := range rec.Keywords {
		if strings.Contains(strings.ToLower(kw), normalized) {
			return true
		}
	}
	return false
}

// queryKey hashes the full search identity: dataset version, exact flag,
// collection scope, and normalized query text.
func queryKey(version uint64, exact bool, collection, normalized string) uint64 {
	var h xxhash.Digest
	h.Reset()

	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(version >> (8 * i))
	}
	h.Write(buf[:])
	if exact {
		h.WriteString("1")
	} else {
		h.WriteString("0")
	}
	h.WriteString(collection)
	h.WriteString("|")
	h.WriteString(normalized)
	return h.Sum64()
}

func (e *Engine) observeSearch(outcome string, took time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	if outcome != "error" {
		e.metrics.SearchLatency.WithLabelValues(outcome).Observe(took.Seconds())
	}
}
