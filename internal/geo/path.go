package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/trackreel/trackreel/pkg/core"
)

// PathLineString projects track points into a Web Mercator line string.
// A single point is doubled so the result is still a valid line.
func PathLineString(points []core.TrackPoint) (geom.LineString, error) {
	if len(points) == 0 {
		return geom.LineString{}, fmt.Errorf("path must have at least 1 point, got 0")
	}

	flatCoords := make([]float64, 0, len(points)*2+2)
	for i, p := range points {
		x, y, err := Mercator(p.Lat, p.Lon)
		if err != nil {
			return geom.LineString{}, fmt.Errorf("point %d: %w", i, err)
		}
		flatCoords = append(flatCoords, x, y)
	}
	if len(points) == 1 {
		flatCoords = append(flatCoords, flatCoords[0], flatCoords[1])
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// Extent returns the degree bounds covering every path.
func Extent(paths ...[]core.TrackPoint) (Bounds, error) {
	b := Bounds{MinLat: math.Inf(1), MinLon: math.Inf(1), MaxLat: math.Inf(-1), MaxLon: math.Inf(-1)}
	n := 0
	for _, path := range paths {
		for _, p := range path {
			b.MinLat = math.Min(b.MinLat, p.Lat)
			b.MaxLat = math.Max(b.MaxLat, p.Lat)
			b.MinLon = math.Min(b.MinLon, p.Lon)
			b.MaxLon = math.Max(b.MaxLon, p.Lon)
			n++
		}
	}
	if n == 0 || !b.Valid() {
		return Bounds{}, ErrInvalidCoordinates
	}
	return b, nil
}
