package database

import (
	"time"

	"gorm.io/datatypes"
)

// TileRecord indexes one tile file in the disk cache.
type TileRecord struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	Source    string            `gorm:"size:1024;uniqueIndex:idx_tile_address" json:"source"`
	Zoom      int               `gorm:"uniqueIndex:idx_tile_address" json:"zoom"`
	X         int               `gorm:"uniqueIndex:idx_tile_address" json:"x"`
	Y         int               `gorm:"uniqueIndex:idx_tile_address" json:"y"`
	Path      string            `gorm:"size:2048" json:"path"`
	Size      int               `json:"size"`
	Checksum  string            `gorm:"size:64" json:"checksum"`
	FetchedAt time.Time         `gorm:"index" json:"fetchedAt"`
	Meta      datatypes.JSONMap `json:"meta"`
}

func (*TileRecord) TableName() string {
	return "tiles"
}
