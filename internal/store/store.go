// Package store holds the current dataset snapshot and its version counter.
// It is the leaf dependency of the engine: indices and cache keys are both
// derived from what lives here.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/browniellc/emojitools/internal/emoji"
)

// Store publishes immutable snapshots. Swap is serialized; Current is
// lock-free and safe from any goroutine.
type Store struct {
	mu      sync.Mutex
	version uint64
	current atomic.Pointer[emoji.Snapshot]
}

func New() *Store {
	s := &Store{}
	s.current.Store(emoji.NewSnapshot(0, nil))
	return s
}

// Swap replaces the dataset wholesale, bumping the version, and returns the
// new snapshot.
func (s *Store) Swap(records []emoji.Record) *emoji.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	snap := emoji.NewSnapshot(s.version, records)
	s.current.Store(snap)
	return snap
}

// Current returns the latest published snapshot. Before the first Swap this
// is an empty snapshot with version 0.
func (s *Store) Current() *emoji.Snapshot {
	return s.current.Load()
}

// Version returns the version of the latest published snapshot.
func (s *Store) Version() uint64 {
	return s.Current().Version
}
