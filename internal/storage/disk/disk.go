// Package disk stores tiles as key-addressed files under a cache directory
// and keeps their fetch times in a GORM index.
package disk

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/trackreel/trackreel/internal/database"
	"github.com/trackreel/trackreel/pkg/core"
)

// IndexFileName is the SQLite index inside the cache directory.
const IndexFileName = "index.db"

// Config holds configuration for the disk backend.
type Config struct {
	Dir   string
	Index string // "sqlite" or "postgres"
}

// Backend implements the tile store on the local file system.
type Backend struct {
	cfg Config
	db  *database.Manager
	log zerolog.Logger
}

// New creates a new disk backend. Nothing touches the disk before Init.
func New(cfg Config, log zerolog.Logger) *Backend {
	log = log.With().Str("component", "tilestore").Logger()
	return &Backend{
		cfg: cfg,
		db:  database.NewManager(log, filepath.Join(cfg.Dir, IndexFileName)),
		log: log,
	}
}

// Init creates the cache directory and opens the index.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tile cache dir: %w", err)
	}
	if err := b.db.Connect(b.cfg.Index); err != nil {
		return err
	}
	return b.db.Setup()
}

// Close closes the index.
func (b *Backend) Close() error {
	return b.db.Close()
}

// relPath returns <sha1(source)>/<z>/<x>/<y>.tile.
func relPath(key core.TileKey) string {
	sum := sha1.Sum([]byte(key.Source))
	return filepath.Join(
		hex.EncodeToString(sum[:]),
		strconv.Itoa(key.Zoom),
		strconv.Itoa(key.X),
		strconv.Itoa(key.Y)+".tile",
	)
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load reads the tile file back and verifies it against the index. Any
// mismatch is reported as core.ErrTileNotFound and the entry is dropped.
func (b *Backend) Load(key core.TileKey) (core.TileEntry, error) {
	rec, err := b.db.FindTile(key.Source, key.Zoom, key.X, key.Y)
	if errors.Is(err, database.ErrNoRecord) {
		return core.TileEntry{}, core.ErrTileNotFound
	}
	if err != nil {
		return core.TileEntry{}, fmt.Errorf("failed to query tile index: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(b.cfg.Dir, rec.Path))
	if err != nil || len(data) != rec.Size || checksum(data) != rec.Checksum {
		b.log.Warn().Err(err).Str("tile", key.String()).Msg("Dropping unreadable cache entry")
		_ = b.Delete(key)
		return core.TileEntry{}, core.ErrTileNotFound
	}

	var meta map[string]any
	if rec.Meta != nil {
		meta = map[string]any(rec.Meta)
	}
	return core.TileEntry{Key: key, Data: data, FetchedAt: rec.FetchedAt, Meta: meta}, nil
}

// Save writes the tile file and then its index row.
func (b *Backend) Save(e core.TileEntry) error {
	rel := relPath(e.Key)
	full := filepath.Join(b.cfg.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create tile dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tile-*")
	if err != nil {
		return fmt.Errorf("failed to create temp tile file: %w", err)
	}
	if _, err := tmp.Write(e.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write tile file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close tile file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move tile file: %w", err)
	}

	rec := &database.TileRecord{
		Source:    e.Key.Source,
		Zoom:      e.Key.Zoom,
		X:         e.Key.X,
		Y:         e.Key.Y,
		Path:      rel,
		Size:      len(e.Data),
		Checksum:  checksum(e.Data),
		FetchedAt: e.FetchedAt.UTC(),
		Meta:      datatypes.JSONMap(e.Meta),
	}
	if err := b.db.UpsertTile(rec); err != nil {
		return fmt.Errorf("failed to index tile: %w", err)
	}
	return nil
}

// Delete removes the tile file and its index row.
func (b *Backend) Delete(key core.TileKey) error {
	err := os.Remove(filepath.Join(b.cfg.Dir, relPath(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove tile file: %w", err)
	}
	return b.db.DeleteTile(key.Source, key.Zoom, key.X, key.Y)
}

// ExpiredBefore lists keys fetched before t.
func (b *Backend) ExpiredBefore(t time.Time) ([]core.TileKey, error) {
	recs, err := b.db.TilesFetchedBefore(t.UTC())
	if err != nil {
		return nil, err
	}
	keys := make([]core.TileKey, len(recs))
	for i, r := range recs {
		keys[i] = core.TileKey{Zoom: r.Zoom, X: r.X, Y: r.Y, Source: r.Source}
	}
	return keys, nil
}

// Clear removes every tile file and index row.
func (b *Backend) Clear() error {
	recs, err := b.db.AllTiles()
	if err != nil {
		return err
	}
	for _, r := range recs {
		err := os.Remove(filepath.Join(b.cfg.Dir, r.Path))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			b.log.Warn().Err(err).Str("path", r.Path).Msg("Failed to remove tile file")
		}
	}
	b.log.Info().Int("tiles", len(recs)).Msg("Cleared tile cache")
	return b.db.DeleteAllTiles()
}
