// Package plugins holds the built-in drawing stages.
package plugins

import (
	"time"

	"github.com/gogpu/gg"

	"github.com/trackreel/trackreel/internal/geo"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/internal/track"
	"github.com/trackreel/trackreel/pkg/core"
)

// Plugin orders. The logo keeps the default order and runs last.
const (
	OrderBackground  = 0
	OrderTileMap     = 100
	OrderPreDraw     = 200
	OrderTrack       = 300
	OrderWaypoint    = 350
	OrderMarker      = 400
	OrderLabel       = 500
	OrderPhoto       = 600
	OrderClock       = 800
	OrderAttribution = 900
)

// Register adds every built-in plugin to reg.
func Register(reg *renderer.Registry) {
	reg.Register("background", newBackground)
	reg.Register("tilemap", newTileMap)
	reg.Register("predraw", newPreDraw)
	reg.Register("track", newTrail)
	reg.Register("waypoint", newWaypoints)
	reg.Register("marker", newMarkers)
	reg.Register("label", newLabels)
	reg.Register("photo", newPhotos)
	reg.Register("clock", newClock)
	reg.Register("attribution", newAttribution)
	reg.Register("logo", newLogo)
}

// window returns the points of t in (from, to], followed by the
// interpolated position at to when the track is between two points.
func window(t *track.Track, from, to time.Time) []core.TrackPoint {
	pts := append([]core.TrackPoint(nil), t.PointsIn(from, to)...)
	pos := t.PositionAt(to)
	if pos.State != track.Active {
		return pts
	}
	if len(pts) == 0 || pts[len(pts)-1].Time.Before(to) {
		pts = append(pts, core.TrackPoint{Time: to, Lat: pos.Lat, Lon: pos.Lon})
	}
	return pts
}

// strokePath draws pts as one polyline.
func strokePath(canvas *gg.Context, proj *geo.Projector, pts []core.TrackPoint, c core.Color, width float64) error {
	if len(pts) < 2 {
		return nil
	}
	xy, err := proj.PixelPath(pts)
	if err != nil {
		return err
	}
	canvas.SetColor(c)
	canvas.SetLineWidth(width)
	canvas.SetLineCap(gg.LineCapRound)
	canvas.SetLineJoin(gg.LineJoinRound)
	canvas.MoveTo(xy[0].X, xy[0].Y)
	for _, p := range xy[1:] {
		canvas.LineTo(p.X, p.Y)
	}
	return canvas.Stroke()
}

// strokeFading draws every segment of pts separately, colored by its age
// relative to now: newest segments get from, segments span old get to.
func strokeFading(canvas *gg.Context, proj *geo.Projector, pts []core.TrackPoint, now time.Time, span time.Duration, from, to core.Color, width float64) error {
	if len(pts) < 2 || span <= 0 {
		return nil
	}
	canvas.SetLineWidth(width)
	canvas.SetLineCap(gg.LineCapRound)
	for i := 1; i < len(pts); i++ {
		age := now.Sub(pts[i].Time)
		c := from.Mix(to, float64(age)/float64(span))
		if c.A() == 0 {
			continue
		}
		x0, y0 := proj.Project(pts[i-1].Lat, pts[i-1].Lon)
		x1, y1 := proj.Project(pts[i].Lat, pts[i].Lon)
		canvas.SetColor(c)
		canvas.MoveTo(x0, y0)
		canvas.LineTo(x1, y1)
		if err := canvas.Stroke(); err != nil {
			return err
		}
	}
	return nil
}
