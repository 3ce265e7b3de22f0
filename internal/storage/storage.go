// internal/storage/storage.go
package storage

import (
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

// ErrNotFound is returned by Load for a missing or unreadable entry.
var ErrNotFound = core.ErrTileNotFound

type (
	Key   = core.TileKey
	Entry = core.TileEntry
)

// Backend is the interface all tile stores must satisfy. Implementations are
// safe for concurrent use.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Load returns ErrNotFound when the key is absent or its data cannot be
	// read back intact.
	Load(key Key) (Entry, error)
	Save(e Entry) error
	Delete(key Key) error

	// ExpiredBefore lists keys fetched before t.
	ExpiredBefore(t time.Time) ([]Key, error)
	Clear() error
}
