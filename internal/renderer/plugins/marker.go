package plugins

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/geo"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/internal/track"
	"github.com/trackreel/trackreel/pkg/core"
)

// markers draws the current position of every started track.
type markers struct {
	renderer.Base
	tracks []*track.Track
	proj   *geo.Projector
	icons  []*gg.ImageBuf
}

func newMarkers(env renderer.Env) (renderer.Plugin, error) {
	if len(env.Tracks) == 0 {
		return nil, renderer.ErrSkip
	}
	p := &markers{
		Base:   renderer.Base{Config: env.Config},
		tracks: env.Tracks,
		proj:   env.Projector,
		icons:  make([]*gg.ImageBuf, len(env.Tracks)),
	}
	for i, t := range env.Tracks {
		path, ok := t.Config.InputIcon().Get()
		if !ok || path == "" {
			continue
		}
		img, err := gg.LoadImage(path)
		if err != nil {
			logWarn(env.Logger, "track icon unreadable, using dot", "track", t.Index, "path", path, "error", err)
			continue
		}
		p.icons[i] = img
	}
	return p, nil
}

func (*markers) Order() int { return OrderMarker }

func (p *markers) RenderFrame(frame *renderer.Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	size := cfg.MarkerSize()
	for i, t := range p.tracks {
		pos := frame.Positions[i]
		if pos.State == track.NotStarted {
			continue
		}
		x, y := p.proj.Project(pos.Lat, pos.Lon)
		mirror := pos.West && t.Config.MirrorTrackIcon()

		var err error
		switch {
		case p.icons[i] != nil:
			drawIcon(canvas, p.icons[i], x, y, 4*size, mirror)
		case !t.Config.TrackIcon().IsEmpty():
			err = drawPennant(canvas, x, y, size, t.Config.Color(), mirror)
		default:
			err = drawDot(canvas, x, y, size, t.Config.Color())
		}
		if err != nil {
			return fmt.Errorf("marker of track %d: %w", t.Index, err)
		}
	}
	return nil
}

// drawIcon centres img on (x, y), scaled so its longer side is box.
func drawIcon(canvas *gg.Context, img *gg.ImageBuf, x, y, box float64, mirror bool) {
	w, h := float64(img.Width()), float64(img.Height())
	if w == 0 || h == 0 {
		return
	}
	scale := box / max(w, h)
	w, h = w*scale, h*scale

	canvas.Push()
	defer canvas.Pop()
	canvas.Translate(x, y)
	if mirror {
		canvas.Scale(-1, 1)
	}
	canvas.DrawImageEx(img, gg.DrawImageOptions{
		X:             -w / 2,
		Y:             -h / 2,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
	})
}

// drawPennant draws the built-in icon shape: a flag pointing in the
// direction of travel.
func drawPennant(canvas *gg.Context, x, y, size float64, c core.Color, mirror bool) error {
	dir := 1.0
	if mirror {
		dir = -1
	}
	canvas.SetColor(c)
	canvas.MoveTo(x-dir*size, y-size)
	canvas.LineTo(x+dir*size*1.5, y)
	canvas.LineTo(x-dir*size, y+size)
	canvas.ClosePath()
	if err := canvas.FillPreserve(); err != nil {
		return err
	}
	canvas.SetColor(core.Black)
	canvas.SetLineWidth(1)
	return canvas.Stroke()
}

func drawDot(canvas *gg.Context, x, y, size float64, c core.Color) error {
	canvas.DrawCircle(x, y, size/2)
	canvas.SetColor(c)
	if err := canvas.FillPreserve(); err != nil {
		return err
	}
	canvas.SetColor(core.Black)
	canvas.SetLineWidth(1)
	return canvas.Stroke()
}

// waypoints draws the waypoints reached so far with their names.
type waypoints struct {
	renderer.Base
	tracks []*track.Track
	proj   *geo.Projector
	face   text.Face
}

func newWaypoints(env renderer.Env) (renderer.Plugin, error) {
	var found bool
	for _, t := range env.Tracks {
		found = found || len(t.Waypoints) > 0
	}
	if !found || env.Config.WaypointSize() <= 0 {
		return nil, renderer.ErrSkip
	}
	return &waypoints{
		Base:   renderer.Base{Config: env.Config},
		tracks: env.Tracks,
		proj:   env.Projector,
		face:   env.Face(0.8),
	}, nil
}

func (*waypoints) Order() int { return OrderWaypoint }

func (p *waypoints) RenderFrame(frame *renderer.Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	size := cfg.WaypointSize()
	if p.face != nil {
		canvas.SetFont(p.face)
	}
	for _, t := range p.tracks {
		for _, w := range t.WaypointsUntil(frame.Time) {
			x, y := p.proj.Project(w.Lat, w.Lon)
			if err := drawDot(canvas, x, y, size, t.Config.Color()); err != nil {
				return fmt.Errorf("waypoint %q: %w", w.Name, err)
			}
			if p.face != nil && w.Name != "" {
				canvas.SetColor(core.Black)
				canvas.DrawString(w.Name, x+size, y+size/2)
			}
		}
	}
	return nil
}

// labels writes each track's label next to its marker.
type labels struct {
	renderer.Base
	tracks []*track.Track
	proj   *geo.Projector
	face   text.Face
}

func newLabels(env renderer.Env) (renderer.Plugin, error) {
	var found bool
	for _, t := range env.Tracks {
		found = found || t.Config.Label() != ""
	}
	if !found {
		return nil, renderer.ErrSkip
	}
	face := env.Face(1)
	if face == nil {
		return nil, fmt.Errorf("no font for labels")
	}
	return &labels{
		Base:   renderer.Base{Config: env.Config},
		tracks: env.Tracks,
		proj:   env.Projector,
		face:   face,
	}, nil
}

func (*labels) Order() int { return OrderLabel }

func (p *labels) RenderFrame(frame *renderer.Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	canvas.SetFont(p.face)
	offset := cfg.MarkerSize()
	for i, t := range p.tracks {
		pos := frame.Positions[i]
		label := t.Config.Label()
		if pos.State == track.NotStarted || label == "" {
			continue
		}
		x, y := p.proj.Project(pos.Lat, pos.Lon)
		canvas.SetColor(t.Config.Color().WithAlpha(255))
		canvas.DrawString(label, x+offset, y-offset/2)
	}
	return nil
}

// logWarn is a nil-safe warning helper for plugins built without a logger.
func logWarn(l *slog.Logger, msg string, args ...any) {
	if l != nil {
		l.Warn(msg, args...)
	}
}
