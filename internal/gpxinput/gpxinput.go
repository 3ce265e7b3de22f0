// Package gpxinput reads GPX files into tracks.
package gpxinput

import (
	"context"
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"
	"golang.org/x/sync/errgroup"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/pkg/core"
)

// maxReaders bounds concurrent file parsing in LoadAll.
const maxReaders = 4

// ReadFile parses the GPX file at path.
func ReadFile(path string) (core.Track, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return core.Track{}, fmt.Errorf("parse gpx %s: %w", path, err)
	}
	return Convert(g), nil
}

// Parse parses GPX content.
func Parse(data []byte) (core.Track, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return core.Track{}, fmt.Errorf("parse gpx: %w", err)
	}
	return Convert(g), nil
}

// Convert flattens every segment of every track, in document order, into one
// point list. Files without tracks fall back to their routes.
func Convert(g *gpx.GPX) core.Track {
	var t core.Track
	for _, trk := range g.Tracks {
		if t.Name == "" {
			t.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			t.Points = appendPoints(t.Points, seg.Points)
		}
	}
	if len(t.Points) == 0 {
		for _, rte := range g.Routes {
			if t.Name == "" {
				t.Name = rte.Name
			}
			t.Points = appendPoints(t.Points, rte.Points)
		}
	}
	if t.Name == "" {
		t.Name = g.Name
	}

	for _, w := range g.Waypoints {
		t.Waypoints = append(t.Waypoints, core.Waypoint{
			Time: w.Timestamp,
			Lat:  w.Latitude,
			Lon:  w.Longitude,
			Name: w.Name,
		})
	}
	return t
}

func appendPoints(dst []core.TrackPoint, pts []gpx.GPXPoint) []core.TrackPoint {
	for i := range pts {
		p := &pts[i]
		tp := core.TrackPoint{Time: p.Timestamp, Lat: p.Latitude, Lon: p.Longitude}
		if p.Elevation.NotNull() {
			tp.Elevation = core.Some(p.Elevation.Value())
		}
		dst = append(dst, tp)
	}
	return dst
}

// LoadAll reads the input of every track configuration. The result is
// aligned by index with cfg.Tracks(). Any unreadable file fails the load.
func LoadAll(ctx context.Context, cfg *animation.Configuration) ([]core.Track, error) {
	tracks := make([]core.Track, cfg.TrackCount())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxReaders)
	for i, tc := range cfg.Tracks() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(tc.Input())
			if err != nil {
				return fmt.Errorf("track %d: %w", i, err)
			}
			tracks[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}
