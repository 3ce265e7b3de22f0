package plugins

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/pkg/core"
)

// ClockLayout formats the timestamp drawn by the clock plugin.
const ClockLayout = "2006-01-02 15:04:05"

// photoArea is the share of the canvas a photo may cover.
const photoArea = 0.6

type shownPhoto struct {
	img   *gg.ImageBuf
	time  time.Time
	first int // frame index the photo appeared at, -1 before that
}

// photos shows every photo from the first frame at or after its capture
// time for PhotoAnimationDuration of animation time, fading in and out.
type photos struct {
	renderer.Base
	photos []*shownPhoto
	prev   time.Time
	seen   bool
}

func newPhotos(env renderer.Env) (renderer.Plugin, error) {
	if len(env.Photos) == 0 || env.Config.PhotoAnimationDuration() <= 0 {
		return nil, renderer.ErrSkip
	}
	p := &photos{Base: renderer.Base{Config: env.Config}}
	for _, ph := range env.Photos {
		if ph.Image == nil {
			continue
		}
		p.photos = append(p.photos, &shownPhoto{img: gg.ImageBufFromImage(ph.Image), time: ph.Time, first: -1})
	}
	sort.SliceStable(p.photos, func(i, j int) bool { return p.photos[i].time.Before(p.photos[j].time) })
	return p, nil
}

func (*photos) Order() int { return OrderPhoto }

// PhotoOpacity returns the opacity of a photo elapsed into its window of
// length window. The ramp at both ends is PhotoTime long, clamped to half
// the window.
func PhotoOpacity(elapsed, window, ramp time.Duration) float64 {
	if elapsed < 0 || elapsed > window || window <= 0 {
		return 0
	}
	ramp = min(ramp, window/2)
	if ramp <= 0 {
		return 1
	}
	edge := min(elapsed, window-elapsed)
	return math.Min(1, float64(edge)/float64(ramp))
}

func (p *photos) RenderFrame(frame *renderer.Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	for _, ph := range p.photos {
		if ph.first >= 0 {
			continue
		}
		if p.seen && ph.time.After(p.prev) && !ph.time.After(frame.Time) {
			ph.first = frame.Index
		} else if !p.seen && ph.time.Equal(frame.Time) {
			ph.first = frame.Index
		}
	}
	p.prev, p.seen = frame.Time, true

	window := cfg.PhotoAnimationDuration()
	for _, ph := range p.photos {
		if ph.first < 0 {
			continue
		}
		elapsed := time.Duration(float64(frame.Index-ph.first) / cfg.FPS() * float64(time.Second))
		alpha := PhotoOpacity(elapsed, window, cfg.PhotoTime())
		if alpha <= 0 {
			continue
		}
		if err := drawPhoto(canvas, ph.img, alpha); err != nil {
			return err
		}
	}
	return nil
}

func drawPhoto(canvas *gg.Context, img *gg.ImageBuf, alpha float64) error {
	cw, ch := float64(canvas.Width()), float64(canvas.Height())
	w, h := float64(img.Width()), float64(img.Height())
	if w == 0 || h == 0 {
		return nil
	}
	scale := math.Min(cw*photoArea/w, ch*photoArea/h)
	w, h = w*scale, h*scale
	x, y := (cw-w)/2, (ch-h)/2

	border := math.Max(2, math.Min(w, h)*0.02)
	canvas.SetColor(core.White.WithAlpha(uint8(math.Round(alpha * 255))))
	canvas.DrawRectangle(x-border, y-border, w+2*border, h+2*border)
	if err := canvas.Fill(); err != nil {
		return err
	}

	canvas.DrawImageEx(img, gg.DrawImageOptions{
		X:             x,
		Y:             y,
		DstWidth:      w,
		DstHeight:     h,
		Opacity:       alpha,
		Interpolation: gg.InterpBilinear,
	})
	return nil
}

// clock writes the real time of the frame in the bottom right corner.
type clock struct {
	renderer.Base
	face text.Face
}

func newClock(env renderer.Env) (renderer.Plugin, error) {
	face := env.Face(1)
	if face == nil {
		return nil, fmt.Errorf("no font for clock")
	}
	return clock{Base: renderer.Base{Config: env.Config}, face: face}, nil
}

func (clock) Order() int { return OrderClock }

func (p clock) RenderFrame(frame *renderer.Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	margin := float64(cfg.Margin())
	canvas.SetFont(p.face)
	canvas.SetColor(core.Black)
	canvas.DrawStringAnchored(frame.Time.UTC().Format(ClockLayout),
		float64(canvas.Width())-margin/2, float64(canvas.Height())-margin/2, 1, 0)
	return nil
}

// attribution writes the attribution text in the bottom left corner of the
// background.
type attribution struct {
	renderer.Base
	face text.Face
}

func newAttribution(env renderer.Env) (renderer.Plugin, error) {
	if env.Config.Attribution() == "" {
		return nil, renderer.ErrSkip
	}
	face := env.Face(0.8)
	if face == nil {
		return nil, fmt.Errorf("no font for attribution")
	}
	return attribution{Base: renderer.Base{Config: env.Config}, face: face}, nil
}

func (attribution) Order() int { return OrderAttribution }

func (p attribution) RenderBackground(canvas *gg.Context) error {
	margin := float64(p.Config.Margin())
	canvas.SetFont(p.face)
	canvas.SetColor(core.Black)
	canvas.DrawString(p.Config.Attribution(), margin/2, float64(canvas.Height())-margin/2)
	return nil
}

// logo draws the configured image in the top left corner of the background.
// It keeps the default order.
type logo struct {
	renderer.Base
	img *gg.ImageBuf
}

func newLogo(env renderer.Env) (renderer.Plugin, error) {
	path := env.Config.Logo()
	if path == "" {
		return nil, renderer.ErrSkip
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("load logo %s: %w", path, err)
	}
	return logo{Base: renderer.Base{Config: env.Config}, img: img}, nil
}

func (p logo) RenderBackground(canvas *gg.Context) error {
	m := float64(p.Config.Margin())
	canvas.DrawImage(p.img, m, m)
	return nil
}
