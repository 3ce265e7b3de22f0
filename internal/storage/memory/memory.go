// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

// Backend keeps tiles in a map. With a positive capacity the entry with the
// oldest fetch time is dropped when a new key would exceed it.
type Backend struct {
	capacity int
	entries  map[core.TileKey]core.TileEntry
	mu       sync.RWMutex
}

// New creates a new memory backend. capacity <= 0 means unbounded.
func New(capacity int) *Backend {
	return &Backend{
		capacity: capacity,
		entries:  make(map[core.TileKey]core.TileEntry),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return b.Clear()
}

// Load returns a copy of the stored entry.
func (b *Backend) Load(key core.TileKey) (core.TileEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[key]
	if !ok {
		return core.TileEntry{}, core.ErrTileNotFound
	}
	return clone(e), nil
}

// Save stores a copy of e, replacing any entry with the same key.
func (b *Backend) Save(e core.TileEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[e.Key]; !exists && b.capacity > 0 && len(b.entries) >= b.capacity {
		b.evictOldest()
	}
	b.entries[e.Key] = clone(e)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Backend) Delete(key core.TileKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

// ExpiredBefore lists keys fetched before t.
func (b *Backend) ExpiredBefore(t time.Time) ([]core.TileKey, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []core.TileKey
	for k, e := range b.entries {
		if e.FetchedAt.Before(t) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Clear removes every entry.
func (b *Backend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[core.TileKey]core.TileEntry)
	return nil
}

// Len returns the number of stored entries.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// evictOldest must be called with mu held.
func (b *Backend) evictOldest() {
	var (
		oldest core.TileKey
		at     time.Time
		found  bool
	)
	for k, e := range b.entries {
		if !found || e.FetchedAt.Before(at) {
			oldest, at, found = k, e.FetchedAt, true
		}
	}
	if found {
		delete(b.entries, oldest)
	}
}

func clone(e core.TileEntry) core.TileEntry {
	out := e
	out.Data = append([]byte(nil), e.Data...)
	if e.Meta != nil {
		out.Meta = make(map[string]any, len(e.Meta))
		for k, v := range e.Meta {
			out.Meta[k] = v
		}
	}
	return out
}
