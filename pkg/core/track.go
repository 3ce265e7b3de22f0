// pkg/core/track.go
package core

import (
	"image"
	"time"
)

// TrackPoint is one timestamped GPS fix.
type TrackPoint struct {
	Time      time.Time
	Lat       float64
	Lon       float64
	Elevation Opt[float64]
}

// Waypoint is a named location, optionally timestamped.
type Waypoint struct {
	Time time.Time
	Lat  float64
	Lon  float64
	Name string
}

// Track is an already-parsed GPS log. Points are expected in ascending time
// order.
type Track struct {
	Name      string
	Points    []TrackPoint
	Waypoints []Waypoint
}

// TrackIcon describes a built-in marker icon. The zero value means no icon.
type TrackIcon struct {
	Key  string
	Name string
}

// IsEmpty reports whether the descriptor selects no icon.
func (i TrackIcon) IsEmpty() bool {
	return i.Key == ""
}

// Photo is an image shown over the animation from its capture time on.
type Photo struct {
	Time  time.Time
	Name  string
	Image image.Image
}
