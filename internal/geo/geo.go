package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Positions are projected from WGS84 (EPSG:4326) to Web Mercator (EPSG:3857)
// once, then scaled to slippy-map pixels for the chosen zoom level.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// MaxLatitude is the largest latitude representable in Web Mercator.
const MaxLatitude = 85.05112878

var toMercator = wgs84.EPSG().Transform(4326, 3857)

// Coords3857From4326 projects a longitude and latitude to a Web Mercator
// point. Latitudes beyond MaxLatitude are clamped.
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if math.IsNaN(longitude) || math.IsNaN(latitude) ||
		longitude < -180 || longitude > 180 || latitude < -90 || latitude > 90 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	latitude = math.Max(-MaxLatitude, math.Min(MaxLatitude, latitude))
	x, y, _ := toMercator(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
	return point, nil
}

// Mercator returns the EPSG:3857 x and y of a WGS84 position.
func Mercator(lat, lon float64) (x, y float64, err error) {
	p, err := Coords3857From4326(lon, lat)
	if err != nil {
		return 0, 0, err
	}
	c, _ := p.Coordinates()
	return c.X, c.Y, nil
}

// Bounds is a latitude/longitude box in degrees.
type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Valid reports whether the box is non-empty and inside WGS84 limits.
func (b Bounds) Valid() bool {
	return b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}

// ParseBounds parses "minLon,minLat,maxLon,maxLat".
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, ErrInvalidCoordinates
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, ErrInvalidCoordinates
		}
		v[i] = f
	}
	b := Bounds{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if !b.Valid() {
		return Bounds{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}
	return b, nil
}
