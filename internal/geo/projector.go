package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/trackreel/trackreel/pkg/core"
)

const (
	// TileSize is the edge length of a slippy-map tile in pixels.
	TileSize = 256

	// MaxAutoZoom caps the zoom level chosen by Fit.
	MaxAutoZoom = 18

	DefaultWidth  = 800
	DefaultHeight = 600

	earthRadius = 6378137.0
)

var halfCircumference = math.Pi * earthRadius

// WorldPixel scales a Web Mercator position to global pixel coordinates at
// zoom, with the origin at the north-west corner of tile 0/0/0.
func WorldPixel(x, y float64, zoom int) (px, py float64) {
	scale := TileSize * math.Exp2(float64(zoom))
	px = (x + halfCircumference) / (2 * halfCircumference) * scale
	py = (halfCircumference - y) / (2 * halfCircumference) * scale
	return px, py
}

// Options control Fit. Absent sizes are derived from the bounds, an absent
// zoom is the deepest level at which the bounds fit the canvas.
type Options struct {
	Width  core.Opt[int]
	Height core.Opt[int]
	Zoom   core.Opt[int]
	Margin int
	Bounds Bounds
}

// Projector maps positions to canvas pixels for one zoom level.
type Projector struct {
	Zoom    int
	Width   int
	Height  int
	originX float64
	originY float64
}

// Fit centres o.Bounds on a canvas.
func Fit(o Options) (*Projector, error) {
	if !o.Bounds.Valid() {
		return nil, fmt.Errorf("%w: bounds %+v", ErrInvalidCoordinates, o.Bounds)
	}
	x0, y0, err := Mercator(o.Bounds.MaxLat, o.Bounds.MinLon)
	if err != nil {
		return nil, err
	}
	x1, y1, err := Mercator(o.Bounds.MinLat, o.Bounds.MaxLon)
	if err != nil {
		return nil, err
	}

	zoom, ok := o.Zoom.Get()
	if !ok {
		availW := float64(o.Width.Or(DefaultWidth) - 2*o.Margin)
		availH := float64(o.Height.Or(DefaultHeight) - 2*o.Margin)
		zoom = 0
		for z := MaxAutoZoom; z >= 0; z-- {
			ax, ay := WorldPixel(x0, y0, z)
			bx, by := WorldPixel(x1, y1, z)
			if bx-ax <= availW && by-ay <= availH {
				zoom = z
				break
			}
		}
	}

	ax, ay := WorldPixel(x0, y0, zoom)
	bx, by := WorldPixel(x1, y1, zoom)
	width := o.Width.Or(int(math.Ceil(bx-ax)) + 2*o.Margin)
	height := o.Height.Or(int(math.Ceil(by-ay)) + 2*o.Margin)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size %dx%d is not positive", width, height)
	}

	cx, cy := (ax+bx)/2, (ay+by)/2
	return &Projector{
		Zoom:    zoom,
		Width:   width,
		Height:  height,
		originX: cx - float64(width)/2,
		originY: cy - float64(height)/2,
	}, nil
}

// Project returns the canvas pixel of a WGS84 position. Invalid positions map
// to the canvas origin.
func (p *Projector) Project(lat, lon float64) (x, y float64) {
	mx, my, err := Mercator(lat, lon)
	if err != nil {
		return 0, 0
	}
	px, py := WorldPixel(mx, my, p.Zoom)
	return px - p.originX, py - p.originY
}

// PixelPath projects a whole path to canvas pixels.
func (p *Projector) PixelPath(points []core.TrackPoint) ([]geom.XY, error) {
	ls, err := PathLineString(points)
	if err != nil {
		return nil, err
	}
	seq := ls.Coordinates()
	out := make([]geom.XY, 0, len(points))
	for i := 0; i < len(points); i++ {
		xy := seq.GetXY(i)
		px, py := WorldPixel(xy.X, xy.Y, p.Zoom)
		out = append(out, geom.XY{X: px - p.originX, Y: py - p.originY})
	}
	return out, nil
}

// Tile is one map tile overlapping the canvas, with the canvas position of
// its top-left corner.
type Tile struct {
	Zoom int
	X    int
	Y    int
	DstX float64
	DstY float64
}

// Tiles lists the tiles covering the canvas, row by row. Columns wrap around
// the antimeridian; rows outside the map are skipped.
func (p *Projector) Tiles() []Tile {
	n := 1 << p.Zoom
	tx0 := int(math.Floor(p.originX / TileSize))
	ty0 := int(math.Floor(p.originY / TileSize))
	tx1 := int(math.Floor((p.originX + float64(p.Width) - 1) / TileSize))
	ty1 := int(math.Floor((p.originY + float64(p.Height) - 1) / TileSize))

	var tiles []Tile
	for ty := ty0; ty <= ty1; ty++ {
		if ty < 0 || ty >= n {
			continue
		}
		for tx := tx0; tx <= tx1; tx++ {
			tiles = append(tiles, Tile{
				Zoom: p.Zoom,
				X:    ((tx % n) + n) % n,
				Y:    ty,
				DstX: float64(tx*TileSize) - p.originX,
				DstY: float64(ty*TileSize) - p.originY,
			})
		}
	}
	return tiles
}
