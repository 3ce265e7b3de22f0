// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/storage/disk"
	"github.com/trackreel/trackreel/internal/storage/memory"
)

// NewBackend creates a tile store based on configuration
func NewBackend(cfg config.TileCacheConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(cfg.MemoryEntries), nil
	case "disk":
		return disk.New(disk.Config{Dir: cfg.Dir, Index: cfg.Index}, log), nil
	default:
		return nil, fmt.Errorf("unknown tile cache backend: %s", cfg.Backend)
	}
}
