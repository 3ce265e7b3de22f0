// Package track prepares parsed GPS logs for rendering: it applies the
// per-track time offset and forced point interval, interpolates positions at
// arbitrary instants and maps simulated animation time to real time.
package track

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/pkg/core"
)

// TrackDataError reports a track that cannot be rendered. The track is left
// out of every frame.
type TrackDataError struct {
	Track  int
	Reason string
}

func (e *TrackDataError) Error() string {
	return fmt.Sprintf("track %d: %s", e.Track, e.Reason)
}

// State tells where a track is relative to an instant.
type State int

const (
	NotStarted State = iota
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Position is the interpolated location of one track at one instant.
type Position struct {
	Track int
	State State
	Lat   float64
	Lon   float64
	// West is set when the current segment runs towards decreasing longitude.
	West bool
}

// Track is a prepared, time-shifted track. It is read-only after Prepare.
type Track struct {
	Index     int
	Config    animation.TrackConfiguration
	Points    []core.TrackPoint
	Waypoints []core.Waypoint
}

// Prepare validates raw and applies the configuration's time offset and
// forced point interval. With a forced interval the native timestamps are
// replaced by first+i*interval, which also makes logs without timestamps
// usable.
func Prepare(idx int, tc animation.TrackConfiguration, raw core.Track) (*Track, error) {
	if len(raw.Points) == 0 {
		return nil, &TrackDataError{Track: idx, Reason: "no track points"}
	}

	points := make([]core.TrackPoint, len(raw.Points))
	copy(points, raw.Points)

	if interval, ok := tc.ForcedPointInterval().Get(); ok {
		base := points[0].Time
		for i := range points {
			points[i].Time = base.Add(time.Duration(i) * interval)
		}
	} else {
		for i := range points {
			if points[i].Time.IsZero() {
				return nil, &TrackDataError{Track: idx, Reason: fmt.Sprintf("point %d has no timestamp", i)}
			}
			if i > 0 && points[i].Time.Before(points[i-1].Time) {
				return nil, &TrackDataError{Track: idx, Reason: fmt.Sprintf("point %d is earlier than its predecessor", i)}
			}
		}
	}

	for i, p := range points {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return nil, &TrackDataError{Track: idx, Reason: fmt.Sprintf("point %d is outside WGS84 bounds", i)}
		}
		points[i].Time = p.Time.Add(tc.TimeOffset())
	}

	waypoints := make([]core.Waypoint, len(raw.Waypoints))
	for i, w := range raw.Waypoints {
		waypoints[i] = w
		if !w.Time.IsZero() {
			waypoints[i].Time = w.Time.Add(tc.TimeOffset())
		}
	}

	return &Track{Index: idx, Config: tc, Points: points, Waypoints: waypoints}, nil
}

// Start returns the first shifted timestamp.
func (t *Track) Start() time.Time { return t.Points[0].Time }

// End returns the last shifted timestamp.
func (t *Track) End() time.Time { return t.Points[len(t.Points)-1].Time }

// search returns the index of the first point strictly after at.
func (t *Track) search(at time.Time) int {
	return sort.Search(len(t.Points), func(i int) bool {
		return t.Points[i].Time.After(at)
	})
}

// PositionAt interpolates linearly between the two points bracketing at.
// Instants outside the track yield NotStarted or Finished without
// extrapolation; the coordinates are then the first or last point.
func (t *Track) PositionAt(at time.Time) Position {
	first, last := t.Points[0], t.Points[len(t.Points)-1]
	switch {
	case at.Before(first.Time):
		return Position{Track: t.Index, State: NotStarted, Lat: first.Lat, Lon: first.Lon}
	case at.After(last.Time):
		return Position{Track: t.Index, State: Finished, Lat: last.Lat, Lon: last.Lon, West: t.westAt(len(t.Points) - 1)}
	}

	i := t.search(at)
	if i == len(t.Points) {
		// at equals the last timestamp
		return Position{Track: t.Index, State: Active, Lat: last.Lat, Lon: last.Lon, West: t.westAt(len(t.Points) - 1)}
	}
	a, b := t.Points[i-1], t.Points[i]
	span := b.Time.Sub(a.Time)
	frac := 0.0
	if span > 0 {
		frac = float64(at.Sub(a.Time)) / float64(span)
	}
	return Position{
		Track: t.Index,
		State: Active,
		Lat:   a.Lat + (b.Lat-a.Lat)*frac,
		Lon:   a.Lon + (b.Lon-a.Lon)*frac,
		West:  b.Lon < a.Lon || (b.Lon == a.Lon && t.westAt(i-1)),
	}
}

// westAt reports the direction of the last segment ending at or before i
// that has horizontal movement.
func (t *Track) westAt(i int) bool {
	for j := i; j > 0; j-- {
		if d := t.Points[j].Lon - t.Points[j-1].Lon; d != 0 {
			return d < 0
		}
	}
	return false
}

// PointsIn returns the points with timestamps in (from, to].
func (t *Track) PointsIn(from, to time.Time) []core.TrackPoint {
	lo := t.search(from)
	hi := t.search(to)
	if lo >= hi {
		return nil
	}
	return t.Points[lo:hi]
}

// PathUntil returns the traversed path at instant at: every point up to and
// including at, followed by the interpolated current position when it falls
// between two points.
func (t *Track) PathUntil(at time.Time) []core.TrackPoint {
	hi := t.search(at)
	path := append([]core.TrackPoint(nil), t.Points[:hi]...)
	if hi > 0 && hi < len(t.Points) && t.Points[hi-1].Time.Before(at) {
		p := t.PositionAt(at)
		path = append(path, core.TrackPoint{Time: at, Lat: p.Lat, Lon: p.Lon})
	}
	return path
}

// WaypointsUntil returns waypoints reached by instant at. Waypoints without a
// timestamp are always shown once the track has started.
func (t *Track) WaypointsUntil(at time.Time) []core.Waypoint {
	if at.Before(t.Start()) {
		return nil
	}
	var out []core.Waypoint
	for _, w := range t.Waypoints {
		if w.Time.IsZero() || !w.Time.After(at) {
			out = append(out, w)
		}
	}
	return out
}

// Bounds returns the extent of the track in degrees.
func (t *Track) Bounds() (minLat, minLon, maxLat, maxLon float64) {
	minLat, minLon = math.Inf(1), math.Inf(1)
	maxLat, maxLon = math.Inf(-1), math.Inf(-1)
	for _, p := range t.Points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	return minLat, minLon, maxLat, maxLon
}

// PrepareAll prepares every track against its configuration. Tracks that fail
// are reported through skip and left out of the result.
func PrepareAll(cfg *animation.Configuration, raw []core.Track, skip func(error)) ([]*Track, error) {
	if len(raw) != cfg.TrackCount() {
		return nil, fmt.Errorf("got %d tracks for %d track configurations", len(raw), cfg.TrackCount())
	}
	var out []*Track
	for i, r := range raw {
		t, err := Prepare(i, cfg.Track(i), r)
		if err != nil {
			if skip != nil {
				skip(err)
			}
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
