// Package compositor drives a render run: it computes per-frame track
// snapshots on a worker pool, draws every frame through the plugin pipeline
// and hands the frames to a sink in ascending index order.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"go.opentelemetry.io/otel/metric"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/geo"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/internal/sink"
	"github.com/trackreel/trackreel/internal/track"
	"github.com/trackreel/trackreel/pkg/core"
)

// FrameError wraps a failure with the index of the frame being produced.
// Frame is -1 for the background pass.
type FrameError struct {
	Frame int
	Err   error
}

func (e *FrameError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("background: %v", e.Err)
	}
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Result summarizes a render run.
type Result struct {
	Frames    int
	Duration  time.Duration
	Cancelled bool
}

// Observer receives progress of a render run.
type Observer interface {
	FrameRendered(index int, elapsed time.Duration)
	Finished(res Result)
}

// Deps are the collaborators of a render run.
type Deps struct {
	Registry *renderer.Registry
	Tiles    renderer.TileImager
	Photos   []core.Photo
	Logger   *slog.Logger
	// Workers bounds the snapshot pool. Values below 1 mean 1.
	Workers  int
	Observer Observer
}

// Compositor renders one configuration. It is not safe for concurrent use.
type Compositor struct {
	cfg      *animation.Configuration
	tracks   []*track.Track
	timeline *track.Timeline
	proj     *geo.Projector
	pipeline *renderer.Pipeline
	workers  int
	log      *slog.Logger
	observer Observer

	// OTEL metrics
	frames metric.Int64Counter
}

// New prepares the tracks, the timeline, the projection and the plugin
// pipeline. Tracks with unusable data are left out with a warning; New fails
// when none remain. ctx bounds blocking work done by plugins, such as tile
// fetches.
func New(ctx context.Context, cfg *animation.Configuration, raw []core.Track, deps Deps) (*Compositor, error) {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if deps.Registry == nil {
		return nil, errors.New("no plugin registry")
	}

	tracks, err := track.PrepareAll(cfg, raw, func(err error) {
		log.Warn("track skipped", "error", err)
	})
	if err != nil {
		return nil, err
	}
	timeline, err := track.NewTimeline(tracks, cfg.SkipIdle())
	if err != nil {
		return nil, err
	}

	proj, err := Projector(cfg, tracks)
	if err != nil {
		return nil, err
	}

	font, err := renderer.LoadFont(cfg.Font())
	if err != nil {
		return nil, err
	}

	env := renderer.Env{
		Ctx:       ctx,
		Config:    cfg,
		Tracks:    tracks,
		Timeline:  timeline,
		Projector: proj,
		Tiles:     deps.Tiles,
		Photos:    deps.Photos,
		Font:      font,
		Logger:    log,
	}

	c := &Compositor{
		cfg:      cfg,
		tracks:   tracks,
		timeline: timeline,
		proj:     proj,
		pipeline: renderer.NewPipeline(deps.Registry, env, log),
		workers:  max(deps.Workers, 1),
		log:      log,
		observer: deps.Observer,
	}

	c.frames, err = meter().Int64Counter("compositor.frames",
		metric.WithDescription("Frames handed to the sink"))
	if err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}

	log.Info("render prepared",
		"tracks", len(tracks),
		"zoom", proj.Zoom,
		"width", proj.Width,
		"height", proj.Height,
		"frames", c.FrameCount(),
		"plugins", c.pipeline.Names())
	return c, nil
}

// Projector fits the configured bounding box, or the extent of the tracks
// for any side that is not configured.
func Projector(cfg *animation.Configuration, tracks []*track.Track) (*geo.Projector, error) {
	paths := make([][]core.TrackPoint, len(tracks))
	for i, t := range tracks {
		paths[i] = t.Points
	}
	b, err := geo.Extent(paths...)
	if err != nil {
		return nil, err
	}
	b.MinLat = cfg.MinLat().Or(b.MinLat)
	b.MaxLat = cfg.MaxLat().Or(b.MaxLat)
	b.MinLon = cfg.MinLon().Or(b.MinLon)
	b.MaxLon = cfg.MaxLon().Or(b.MaxLon)

	return geo.Fit(geo.Options{
		Width:  cfg.Width(),
		Height: cfg.Height(),
		Zoom:   cfg.Zoom(),
		Margin: cfg.Margin(),
		Bounds: b,
	})
}

// FrameCount returns the number of frames of the run.
func (c *Compositor) FrameCount() int {
	return FrameCount(c.cfg, c.timeline.Span())
}

// FrameCount derives the frame count from the simulated span. With a total
// time override it is ceil(total*fps), otherwise floor(span/speedup*fps)+1.
func FrameCount(cfg *animation.Configuration, span time.Duration) int {
	if total, ok := cfg.TotalTime().Get(); ok {
		return int(math.Ceil(total.Seconds() * cfg.FPS()))
	}
	return int(math.Floor(span.Seconds()/cfg.Speedup()*cfg.FPS())) + 1
}

// Speedup returns the effective speed-up: the configured one, or the ratio
// of the span to the total time override.
func Speedup(cfg *animation.Configuration, span time.Duration) float64 {
	if total, ok := cfg.TotalTime().Get(); ok && total > 0 {
		return span.Seconds() / total.Seconds()
	}
	return cfg.Speedup()
}

// SimTime returns the simulated offset of frame i.
func SimTime(i int, fps, speedup float64) time.Duration {
	return time.Duration(float64(i) / fps * speedup * float64(time.Second))
}

// Tracks returns the tracks that take part in the run.
func (c *Compositor) Tracks() []*track.Track {
	return c.tracks
}

// Plugins returns the pipeline's plugin names in execution order.
func (c *Compositor) Plugins() []string {
	return c.pipeline.Names()
}

// Snapshot computes the frame handed to the plugins for index i.
func (c *Compositor) Snapshot(i int) *renderer.Frame {
	sim := SimTime(i, c.cfg.FPS(), Speedup(c.cfg, c.timeline.Span()))
	at := c.timeline.RealTime(sim)
	pos := make([]track.Position, len(c.tracks))
	for j, t := range c.tracks {
		pos[j] = t.PositionAt(at)
	}
	return &renderer.Frame{Index: i, Sim: sim, Time: at, Positions: pos}
}

// Render produces every frame in ascending order. Snapshots are computed in
// windows of Workers frames in parallel; drawing and emission are serial.
// On cancellation the frames already emitted stay valid and ctx.Err() is
// returned together with a Result marked Cancelled.
func (c *Compositor) Render(ctx context.Context, out sink.Sink) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if c.observer != nil {
			c.observer.Finished(res)
		}
	}()

	bg := gg.NewContext(c.proj.Width, c.proj.Height)
	if err := c.pipeline.Background(bg); err != nil {
		return res, &FrameError{Frame: -1, Err: err}
	}
	background := gg.ImageBufFromImage(bg.Image())
	_ = bg.Close()

	n := c.FrameCount()
	for base := 0; base < n; base += c.workers {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			return res, err
		}

		window := make([]*renderer.Frame, min(c.workers, n-base))
		var wg sync.WaitGroup
		for k := range window {
			wg.Go(func() {
				window[k] = c.Snapshot(base + k)
			})
		}
		wg.Wait()

		for _, frame := range window {
			if err := ctx.Err(); err != nil {
				res.Cancelled = true
				return res, err
			}
			frameStart := time.Now()
			img, err := c.draw(frame, background)
			if err != nil {
				return res, &FrameError{Frame: frame.Index, Err: err}
			}
			if err := out.WriteFrame(frame.Index, img); err != nil {
				return res, &FrameError{Frame: frame.Index, Err: err}
			}
			res.Frames++
			c.frames.Add(ctx, 1)
			if c.observer != nil {
				c.observer.FrameRendered(frame.Index, time.Since(frameStart))
			}
		}
	}

	c.log.Info("render complete", "frames", res.Frames, "duration", time.Since(start))
	return res, nil
}

// Close releases the plugin pipeline. The compositor cannot render afterwards.
func (c *Compositor) Close() error {
	return c.pipeline.Close()
}

func (c *Compositor) draw(frame *renderer.Frame, background *gg.ImageBuf) (image.Image, error) {
	canvas := gg.NewContext(c.proj.Width, c.proj.Height)
	defer canvas.Close()

	canvas.DrawImage(background, 0, 0)
	if err := c.pipeline.Frame(frame, canvas, c.cfg); err != nil {
		return nil, err
	}
	img := canvas.Image()

	vw, vh, ok := c.viewport()
	if !ok {
		return img, nil
	}
	x0, y0 := ViewportOrigin(c.proj, frame.Positions, vw, vh)
	return crop(img, x0, y0, vw, vh), nil
}

func (c *Compositor) viewport() (w, h int, ok bool) {
	vw, wok := c.cfg.ViewportWidth().Get()
	vh, hok := c.cfg.ViewportHeight().Get()
	if !wok && !hok {
		return 0, 0, false
	}
	if !wok {
		vw = c.proj.Width
	}
	if !hok {
		vh = c.proj.Height
	}
	return min(vw, c.proj.Width), min(vh, c.proj.Height), true
}

// ViewportOrigin returns the top-left corner of a w x h window centred on
// the centroid of the active markers, clamped to the canvas. Without active
// markers the window is centred on the canvas.
func ViewportOrigin(proj *geo.Projector, positions []track.Position, w, h int) (x0, y0 int) {
	cx, cy := float64(proj.Width)/2, float64(proj.Height)/2
	var sx, sy float64
	n := 0
	for _, p := range positions {
		if p.State != track.Active {
			continue
		}
		x, y := proj.Project(p.Lat, p.Lon)
		sx += x
		sy += y
		n++
	}
	if n > 0 {
		cx, cy = sx/float64(n), sy/float64(n)
	}
	x0 = clamp(int(math.Round(cx-float64(w)/2)), 0, proj.Width-w)
	y0 = clamp(int(math.Round(cy-float64(h)/2)), 0, proj.Height-h)
	return x0, y0
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func crop(img image.Image, x0, y0, w, h int) image.Image {
	out := gg.NewContext(w, h)
	defer out.Close()
	src := image.Rect(x0, y0, x0+w, y0+h)
	out.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:      float64(w),
		DstHeight:     float64(h),
		SrcRect:       &src,
		Interpolation: gg.InterpNearest,
	})
	return out.Image()
}
