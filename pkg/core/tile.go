package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrTileNotFound is returned by tile stores for a missing or unreadable
// entry.
var ErrTileNotFound = errors.New("tile not found")

// TileKey addresses one tile of one tile source. Source is the URL template
// the tile was fetched from.
type TileKey struct {
	Zoom   int
	X      int
	Y      int
	Source string
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d@%s", k.Zoom, k.X, k.Y, k.Source)
}

// TileEntry is a stored tile.
type TileEntry struct {
	Key       TileKey
	Data      []byte
	FetchedAt time.Time
	Meta      map[string]any
}
