package renderer

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/gogpu/gg"

	"github.com/trackreel/trackreel/internal/animation"
)

type stage struct {
	name   string
	plugin Plugin
	order  int
}

// Pipeline is the ordered list of plugins of one render run. Its methods
// must not be called concurrently; plugins keep cross-frame state.
type Pipeline struct {
	stages  []stage
	dropped []*PluginInitError
	logger  *slog.Logger
}

// NewPipeline instantiates every registered factory. Failing factories are
// logged and left out; the remaining plugins are sorted by ascending order,
// keeping registration order for ties.
func NewPipeline(reg *Registry, env Env, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{logger: logger}

	for _, r := range reg.entries {
		plugin, err := reg.build(r, env)
		if errors.Is(err, ErrSkip) {
			logger.Debug("plugin skipped", "plugin", r.name)
			continue
		}
		if err != nil {
			ie := &PluginInitError{Plugin: r.name, Err: err}
			logger.Warn("plugin dropped", "plugin", r.name, "error", err)
			p.dropped = append(p.dropped, ie)
			continue
		}
		p.stages = append(p.stages, stage{name: r.name, plugin: plugin, order: plugin.Order()})
	}

	slices.SortStableFunc(p.stages, func(a, b stage) int {
		return cmp.Compare(a.order, b.order)
	})
	return p
}

// Names returns the plugin names in execution order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.name
	}
	return out
}

// Dropped returns the construction failures.
func (p *Pipeline) Dropped() []*PluginInitError {
	return p.dropped
}

// Background runs every plugin's background pass on canvas.
func (p *Pipeline) Background(canvas *gg.Context) error {
	for _, s := range p.stages {
		if err := s.plugin.RenderBackground(canvas); err != nil {
			return &PluginRenderError{Plugin: s.name, Frame: -1, Err: err}
		}
	}
	return nil
}

// Frame runs every plugin's frame pass on canvas.
func (p *Pipeline) Frame(frame *Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	for _, s := range p.stages {
		if err := s.plugin.RenderFrame(frame, canvas, cfg); err != nil {
			return &PluginRenderError{Plugin: s.name, Frame: frame.Index, Err: err}
		}
	}
	return nil
}

// Close releases the resources held by plugins implementing io.Closer.
// The pipeline must not render afterwards.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.stages {
		c, ok := closer(s.plugin)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			p.logger.Warn("plugin close failed", "plugin", s.name, "error", err)
			errs = append(errs, fmt.Errorf("close plugin %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// closer looks through the registry wrappers for an io.Closer.
func closer(pl Plugin) (io.Closer, bool) {
	for {
		if c, ok := pl.(io.Closer); ok {
			return c, true
		}
		u, ok := pl.(interface{ Unwrap() Plugin })
		if !ok {
			return nil, false
		}
		pl = u.Unwrap()
	}
}
