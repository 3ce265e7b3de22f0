// internal/storage/storage_test.go
package storage_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/storage"
	"github.com/trackreel/trackreel/internal/storage/disk"
	"github.com/trackreel/trackreel/internal/storage/memory"
)

// Verify every backend implements storage.Backend
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = (*disk.Backend)(nil)
)

func TestKeyString(t *testing.T) {
	k := storage.Key{Zoom: 3, X: 4, Y: 5, Source: "src"}
	assert.Equal(t, "3/4/5@src", k.String())
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TileCacheConfig
		want    any
		wantErr bool
	}{
		{"memory", config.TileCacheConfig{Backend: "memory", MemoryEntries: 4}, &memory.Backend{}, false},
		{"disk", config.TileCacheConfig{Backend: "disk", Dir: t.TempDir(), Index: "sqlite"}, &disk.Backend{}, false},
		{"unknown", config.TileCacheConfig{Backend: "s3"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)

			require.NoError(t, b.Init())
			defer b.Close()

			key := storage.Key{Zoom: 1, X: 0, Y: 1, Source: "src"}
			require.NoError(t, b.Save(storage.Entry{Key: key, Data: []byte("d"), FetchedAt: time.Now()}))
			e, err := b.Load(key)
			require.NoError(t, err)
			assert.Equal(t, []byte("d"), e.Data)
		})
	}
}
