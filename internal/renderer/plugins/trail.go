package plugins

import (
	"fmt"
	"time"

	"github.com/gogpu/gg"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/geo"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/internal/track"
	"github.com/trackreel/trackreel/pkg/core"
)

// trail draws the traversed part of every track. Without a tail the path is
// accumulated on a layer that survives between frames; with a tail only the
// trailing window is drawn, fading towards the tail color.
type trail struct {
	renderer.Base
	tracks []*track.Track
	proj   *geo.Projector

	layer *gg.Context
	buf   *gg.ImageBuf
	drawn []time.Time
	ends  []core.TrackPoint
}

func newTrail(env renderer.Env) (renderer.Plugin, error) {
	if len(env.Tracks) == 0 {
		return nil, renderer.ErrSkip
	}
	p := &trail{
		Base:   renderer.Base{Config: env.Config},
		tracks: env.Tracks,
		proj:   env.Projector,
		drawn:  make([]time.Time, len(env.Tracks)),
		ends:   make([]core.TrackPoint, len(env.Tracks)),
	}
	if env.Config.TailDuration() <= 0 {
		p.layer = gg.NewContext(env.Projector.Width, env.Projector.Height)
		for i, t := range env.Tracks {
			p.drawn[i] = t.Start().Add(-time.Nanosecond)
		}
	}
	return p, nil
}

func (*trail) Order() int { return OrderTrack }

func (p *trail) RenderFrame(frame *renderer.Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	if tail := cfg.TailDuration(); tail > 0 {
		for _, t := range p.tracks {
			pts := window(t, frame.Time.Add(-tail), frame.Time)
			c := t.Config.Color()
			if err := strokeFading(canvas, p.proj, pts, frame.Time, tail, c, cfg.TailColor(), t.Config.LineWidth()); err != nil {
				return fmt.Errorf("tail of track %d: %w", t.Index, err)
			}
		}
	} else {
		drew, err := p.accumulate(frame.Time)
		if err != nil {
			return err
		}
		if drew || p.buf == nil {
			p.buf = gg.ImageBufFromImage(p.layer.Image())
		}
		canvas.DrawImage(p.buf, 0, 0)
	}

	if fb, ok := cfg.FlashbackDuration().Get(); ok && fb > 0 {
		for _, t := range p.tracks {
			pts := window(t, frame.Time.Add(-fb), frame.Time)
			if err := strokeFading(canvas, p.proj, pts, frame.Time, fb, cfg.FlashbackColor(), t.Config.Color(), t.Config.LineWidth()); err != nil {
				return fmt.Errorf("flashback of track %d: %w", t.Index, err)
			}
		}
	}
	return nil
}

// accumulate extends every track's path on the layer up to at and reports
// whether anything was stroked. Frames arrive in ascending order, so each
// segment is drawn once.
func (p *trail) accumulate(at time.Time) (bool, error) {
	drew := false
	for i, t := range p.tracks {
		if !at.After(p.drawn[i]) {
			continue
		}
		pts := window(t, p.drawn[i], at)
		if len(pts) == 0 {
			continue
		}
		if !p.ends[i].Time.IsZero() {
			pts = append([]core.TrackPoint{p.ends[i]}, pts...)
		}
		if err := strokePath(p.layer, p.proj, pts, t.Config.Color(), t.Config.LineWidth()); err != nil {
			return drew, fmt.Errorf("track %d: %w", t.Index, err)
		}
		p.ends[i] = pts[len(pts)-1]
		p.drawn[i] = at
		drew = true
	}
	return drew, nil
}

// Close releases the accumulation layer.
func (p *trail) Close() error {
	if p.layer == nil {
		return nil
	}
	err := p.layer.Close()
	p.layer, p.buf = nil, nil
	return err
}
