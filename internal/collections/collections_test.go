package collections

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/browniellc/emojitools/internal/stats"
	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

func writeCollections(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing collections file: %v", err)
	}
}

// touch forces a distinct stat fingerprint so revalidation does not depend
// on filesystem mtime granularity.
func touch(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	next := fi.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(path, next, next); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

// TestGetParsesFile verifies a collections file round-trips through the
// cache with its members intact and names sorted.
func TestGetParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.json")
	writeCollections(t, path, `{"collections": {"office": ["📎", "📠"], "favorites": ["🚀", "❤️"]}}`)

	c, err := NewCache(4, stats.NewCollector(nil))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	f, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	names := f.Names()
	if len(names) != 2 || names[0] != "favorites" || names[1] != "office" {
		t.Errorf("Names() = %v, want [favorites office]", names)
	}

	members, err := f.Members("favorites")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 || members[0] != "🚀" || members[1] != "❤️" {
		t.Errorf("Members(favorites) = %v, want [🚀 ❤️]", members)
	}
}

// TestMembersUnknownCollection verifies the not-found sentinel.
func TestMembersUnknownCollection(t *testing.T) {
	f := &File{Collections: map[string][]string{"favorites": {"🚀"}}}

	_, err := f.Members("nope")
	if !errors.Is(err, pkgerrors.ErrCollectionNotFound) {
		t.Errorf("Members(nope) error = %v, want ErrCollectionNotFound", err)
	}
}

// TestGetCachesByFingerprint verifies the second Get is served from cache
// and that a changed file is re-read.
func TestGetCachesByFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.json")
	writeCollections(t, path, `{"collections": {"favorites": ["🚀"]}}`)

	collector := stats.NewCollector(nil)
	c, err := NewCache(4, collector)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	if _, err := c.Get(path); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if _, err := c.Get(path); err != nil {
		t.Fatalf("second Get: %v", err)
	}

	s := collector.Snapshot().CollectionCache
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats after repeat Get = %+v, want 1 hit, 1 miss", s)
	}

	writeCollections(t, path, `{"collections": {"favorites": ["🚀", "🛸", "🌙"]}}`)
	touch(t, path)

	f, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get after rewrite: %v", err)
	}
	members, _ := f.Members("favorites")
	if len(members) != 3 {
		t.Errorf("members after rewrite = %v, want 3 entries", members)
	}
	if got := collector.Snapshot().CollectionCache.Misses; got != 2 {
		t.Errorf("Misses = %d after rewrite, want 2", got)
	}
}

// TestGetErrorsAreNotCached verifies a failed load retries from scratch on
// the next access instead of pinning the failure.
func TestGetErrorsAreNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.json")

	c, err := NewCache(4, stats.NewCollector(nil))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	var cerr *pkgerrors.CollectionError
	if _, err := c.Get(path); !errors.As(err, &cerr) {
		t.Fatalf("Get on missing file error = %v, want *CollectionError", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed Get, want 0", c.Len())
	}

	writeCollections(t, path, `{"collections"`)
	if _, err := c.Get(path); !errors.As(err, &cerr) {
		t.Fatalf("Get on malformed file error = %v, want *CollectionError", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after parse failure, want 0", c.Len())
	}

	writeCollections(t, path, `{"collections": {"favorites": ["🚀"]}}`)
	touch(t, path)
	if _, err := c.Get(path); err != nil {
		t.Fatalf("Get after repair: %v", err)
	}
}

// TestGetEmptyFile verifies an empty collections object parses to a usable,
// empty File.
func TestGetEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.json")
	writeCollections(t, path, `{}`)

	c, err := NewCache(4, stats.NewCollector(nil))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	f, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(f.Names()) != 0 {
		t.Errorf("Names() = %v, want none", f.Names())
	}
	if _, err := f.Members("any"); !errors.Is(err, pkgerrors.ErrCollectionNotFound) {
		t.Errorf("Members on empty file error = %v, want ErrCollectionNotFound", err)
	}
}

// TestSetEnabledBypassesCache verifies a disabled cache re-reads the file on
// every access and drops existing slots.
func TestSetEnabledBypassesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.json")
	writeCollections(t, path, `{"collections": {"favorites": ["🚀"]}}`)

	c, err := NewCache(4, stats.NewCollector(nil))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if _, err := c.Get(path); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	c.SetEnabled(false)
	if c.Len() != 0 {
		t.Errorf("Len() = %d after disable, want 0", c.Len())
	}

	// Content changes must be visible immediately with no touch help.
	writeCollections(t, path, `{"collections": {"favorites": ["🚀", "🛸"]}}`)
	f, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get while disabled: %v", err)
	}
	members, _ := f.Members("favorites")
	if len(members) != 2 {
		t.Errorf("members while disabled = %v, want 2 entries", members)
	}
}

// TestInvalidate verifies dropping a single path forces a re-read.
func TestInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.json")
	writeCollections(t, path, `{"collections": {"favorites": ["🚀"]}}`)

	collector := stats.NewCollector(nil)
	c, err := NewCache(4, collector)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if _, err := c.Get(path); err != nil {
		t.Fatalf("Get: %v", err)
	}

	c.Invalidate(path)
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate, want 0", c.Len())
	}
	if _, err := c.Get(path); err != nil {
		t.Fatalf("Get after Invalidate: %v", err)
	}
	if got := collector.Snapshot().CollectionCache.Misses; got != 2 {
		t.Errorf("Misses = %d, want 2 (both Gets re-read)", got)
	}
}

// TestSetMaxSlots verifies shrinking evicts down to the new bound and that
// surviving slots still serve hits.
func TestSetMaxSlots(t *testing.T) {
	dir := t.TempDir()
	collector := stats.NewCollector(nil)
	c, err := NewCache(4, collector)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	paths := make([]string, 3)
	for i := range paths {
		paths[i] = filepath.Join(dir, "collections"+string(rune('a'+i))+".json")
		writeCollections(t, paths[i], `{"collections": {"favorites": ["🚀"]}}`)
		if _, err := c.Get(paths[i]); err != nil {
			t.Fatalf("Get %s: %v", paths[i], err)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d after three Gets, want 3", c.Len())
	}

	c.SetMaxSlots(1)
	if c.Len() != 1 {
		t.Errorf("Len() = %d after shrink to 1, want 1", c.Len())
	}

	// The newest path survives and still hits.
	if _, err := c.Get(paths[2]); err != nil {
		t.Fatalf("Get survivor: %v", err)
	}
	if got := collector.Snapshot().CollectionCache.Hits; got != 1 {
		t.Errorf("Hits = %d after surviving Get, want 1", got)
	}
}
