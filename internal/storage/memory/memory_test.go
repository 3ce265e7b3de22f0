// internal/storage/memory/memory_test.go
package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

func key(x int) core.TileKey {
	return core.TileKey{Zoom: 5, X: x, Y: 7, Source: "https://tile.example/{z}/{x}/{y}.png"}
}

func TestNew(t *testing.T) {
	b := New(10)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.capacity != 10 {
		t.Errorf("expected capacity=10, got %d", b.capacity)
	}
	if b.entries == nil {
		t.Error("entries map not initialized")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(0)

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Save(core.TileEntry{Key: key(1)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty backend after Close, got %d entries", b.Len())
	}
}

func TestSaveLoad(t *testing.T) {
	b := New(0)
	now := time.Now()
	data := []byte{1, 2, 3}

	if err := b.Save(core.TileEntry{Key: key(1), Data: data, FetchedAt: now, Meta: map[string]any{"a": "b"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// mutating the caller's slice must not affect the stored copy
	data[0] = 9

	e, err := b.Load(key(1))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if e.Data[0] != 1 {
		t.Errorf("expected stored data to be copied, got %v", e.Data)
	}
	if !e.FetchedAt.Equal(now) {
		t.Errorf("expected FetchedAt=%v, got %v", now, e.FetchedAt)
	}
	if e.Meta["a"] != "b" {
		t.Errorf("expected meta to round trip, got %v", e.Meta)
	}
}

func TestLoadMissing(t *testing.T) {
	b := New(0)
	if _, err := b.Load(key(1)); err != core.ErrTileNotFound {
		t.Errorf("expected ErrTileNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	b := New(0)
	_ = b.Save(core.TileEntry{Key: key(1)})

	if err := b.Delete(key(1)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := b.Delete(key(1)); err != nil {
		t.Errorf("deleting a missing key failed: %v", err)
	}
	if _, err := b.Load(key(1)); err != core.ErrTileNotFound {
		t.Errorf("expected ErrTileNotFound after delete, got %v", err)
	}
}

func TestExpiredBefore(t *testing.T) {
	b := New(0)
	now := time.Now()
	_ = b.Save(core.TileEntry{Key: key(1), FetchedAt: now.Add(-2 * time.Hour)})
	_ = b.Save(core.TileEntry{Key: key(2), FetchedAt: now})

	keys, err := b.ExpiredBefore(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ExpiredBefore failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key(1) {
		t.Errorf("expected only key 1, got %v", keys)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	b := New(2)
	now := time.Now()
	_ = b.Save(core.TileEntry{Key: key(1), FetchedAt: now.Add(-time.Minute)})
	_ = b.Save(core.TileEntry{Key: key(2), FetchedAt: now})
	// replacing an existing key does not evict
	_ = b.Save(core.TileEntry{Key: key(2), FetchedAt: now})
	if b.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", b.Len())
	}

	_ = b.Save(core.TileEntry{Key: key(3), FetchedAt: now})
	if b.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", b.Len())
	}
	if _, err := b.Load(key(1)); err != core.ErrTileNotFound {
		t.Error("expected oldest entry to be evicted")
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Save(core.TileEntry{Key: key(i), FetchedAt: time.Now()})
			_, _ = b.Load(key(i))
			_, _ = b.ExpiredBefore(time.Now())
		}(i)
	}
	wg.Wait()

	if b.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", b.Len())
	}
}
