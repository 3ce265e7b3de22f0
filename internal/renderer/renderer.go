// Package renderer runs the ordered set of drawing stages that produce every
// animation frame. Each stage draws once onto the shared background and once
// onto every frame canvas.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/geo"
	"github.com/trackreel/trackreel/internal/tilecache"
	"github.com/trackreel/trackreel/internal/track"
	"github.com/trackreel/trackreel/pkg/core"
)

// Plugin is one drawing stage. Lower orders run first.
type Plugin interface {
	Order() int
	RenderBackground(canvas *gg.Context) error
	RenderFrame(frame *Frame, canvas *gg.Context, cfg *animation.Configuration) error
}

// Base provides the default order and no-op render methods. Plugins embed it
// and override what they draw.
type Base struct {
	Config *animation.Configuration
}

// Order runs the plugin last.
func (Base) Order() int { return math.MaxInt }

func (Base) RenderBackground(*gg.Context) error { return nil }

func (Base) RenderFrame(*Frame, *gg.Context, *animation.Configuration) error { return nil }

// Frame is the per-frame snapshot handed to every plugin.
type Frame struct {
	Index int
	// Sim is the simulated offset from the start of the timeline.
	Sim time.Duration
	// Time is the real, offset-shifted instant shown by the frame.
	Time time.Time
	// Positions is aligned with Env.Tracks.
	Positions []track.Position
}

// Active returns the positions of tracks that have started.
func (f *Frame) Active() []track.Position {
	var out []track.Position
	for _, p := range f.Positions {
		if p.State != track.NotStarted {
			out = append(out, p)
		}
	}
	return out
}

// TileImager returns decoded map tiles. *tilecache.Cache implements it.
type TileImager interface {
	Image(ctx context.Context, key tilecache.Key) (image.Image, error)
}

// Env is everything a plugin factory may draw from.
type Env struct {
	Ctx       context.Context
	Config    *animation.Configuration
	Tracks    []*track.Track
	Timeline  *track.Timeline
	Projector *geo.Projector
	Tiles     TileImager
	Photos    []core.Photo
	Font      *text.FontSource
	Logger    *slog.Logger
}

// Face returns the configured font face at the given scale of the configured
// size, or nil when no font is loaded.
func (e Env) Face(scale float64) text.Face {
	if e.Font == nil {
		return nil
	}
	return e.Font.Face(e.Config.Font().Size * scale)
}

// Factory builds a plugin for one render run.
type Factory func(env Env) (Plugin, error)

// ErrSkip is returned by a factory whose plugin has nothing to draw with the
// current configuration. The plugin is left out without a warning.
var ErrSkip = errors.New("plugin not needed")

// PluginInitError reports a plugin whose factory failed. The plugin is left
// out of the run.
type PluginInitError struct {
	Plugin string
	Err    error
}

func (e *PluginInitError) Error() string {
	return fmt.Sprintf("init plugin %s: %v", e.Plugin, e.Err)
}

func (e *PluginInitError) Unwrap() error {
	return e.Err
}

// PluginRenderError reports a failed draw. Frame is -1 for the background.
type PluginRenderError struct {
	Plugin string
	Frame  int
	Err    error
}

func (e *PluginRenderError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("plugin %s background: %v", e.Plugin, e.Err)
	}
	return fmt.Sprintf("plugin %s frame %d: %v", e.Plugin, e.Frame, e.Err)
}

func (e *PluginRenderError) Unwrap() error {
	return e.Err
}
