package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gg"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/pkg/core"
)

// Option configures plugin registration.
type Option func(*options)

type options struct {
	order  core.Opt[int]
	logged bool
}

// WithOrder overrides the order reported by the plugin.
func WithOrder(n int) Option {
	return func(o *options) {
		o.order = core.Some(n)
	}
}

// Logged adds debug timing logs around every draw of the plugin.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

type registration struct {
	name    string
	factory Factory
	opts    options
}

// Registry maps plugin names to factories. Registration order is kept and
// breaks ties between equal orders.
type Registry struct {
	entries []registration
	index   map[string]int
	logger  *slog.Logger

	// OTEL metrics
	duration metric.Float64Histogram
}

// NewRegistry creates an empty registry.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{
		index:  make(map[string]int),
		logger: logger,
	}

	var err error
	r.duration, err = meter().Float64Histogram(
		"renderer.plugin.duration",
		metric.WithDescription("Time spent in one plugin draw"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return r, nil
}

// Register adds a factory under name. Registering a name again replaces the
// factory and keeps its original position.
func (r *Registry) Register(name string, f Factory, opts ...Option) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := registration{name: name, factory: f, opts: cfg}
	if i, ok := r.index[name]; ok {
		r.entries[i] = reg
		return
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, reg)
}

// Has returns true if a factory is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// build instantiates one registration and applies its options.
func (r *Registry) build(reg registration, env Env) (Plugin, error) {
	p, err := reg.factory(env)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("factory returned no plugin")
	}

	if order, ok := reg.opts.order.Get(); ok {
		p = orderedPlugin{Plugin: p, order: order}
	}
	if reg.opts.logged {
		p = loggedPlugin{Plugin: p, name: reg.name, logger: r.logger}
	}
	plugin := attribute.String("plugin", reg.name)
	return timedPlugin{
		Plugin:     p,
		hist:       r.duration,
		background: metric.WithAttributes(plugin, attribute.String("phase", "background")),
		frame:      metric.WithAttributes(plugin, attribute.String("phase", "frame")),
	}, nil
}

type orderedPlugin struct {
	Plugin
	order int
}

func (p orderedPlugin) Order() int { return p.order }

func (p orderedPlugin) Unwrap() Plugin { return p.Plugin }

type timedPlugin struct {
	Plugin
	hist       metric.Float64Histogram
	background metric.MeasurementOption
	frame      metric.MeasurementOption
}

func (p timedPlugin) Unwrap() Plugin { return p.Plugin }

func (p timedPlugin) record(start time.Time, attrs metric.MeasurementOption) {
	p.hist.Record(context.Background(), float64(time.Since(start).Microseconds())/1000, attrs)
}

func (p timedPlugin) RenderBackground(canvas *gg.Context) error {
	start := time.Now()
	err := p.Plugin.RenderBackground(canvas)
	p.record(start, p.background)
	return err
}

func (p timedPlugin) RenderFrame(frame *Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	start := time.Now()
	err := p.Plugin.RenderFrame(frame, canvas, cfg)
	p.record(start, p.frame)
	return err
}

type loggedPlugin struct {
	Plugin
	name   string
	logger *slog.Logger
}

func (p loggedPlugin) Unwrap() Plugin { return p.Plugin }

func (p loggedPlugin) RenderBackground(canvas *gg.Context) error {
	start := time.Now()
	p.logger.Debug("rendering background", "plugin", p.name)

	err := p.Plugin.RenderBackground(canvas)

	if err != nil {
		p.logger.Error("background failed", "plugin", p.name, "duration", time.Since(start), "error", err)
	} else {
		p.logger.Debug("background complete", "plugin", p.name, "duration", time.Since(start))
	}
	return err
}

func (p loggedPlugin) RenderFrame(frame *Frame, canvas *gg.Context, cfg *animation.Configuration) error {
	start := time.Now()
	p.logger.Debug("rendering frame", "plugin", p.name, "frame", frame.Index)

	err := p.Plugin.RenderFrame(frame, canvas, cfg)

	if err != nil {
		p.logger.Error("frame failed", "plugin", p.name, "frame", frame.Index, "duration", time.Since(start), "error", err)
	} else {
		p.logger.Debug("frame complete", "plugin", p.name, "frame", frame.Index, "duration", time.Since(start))
	}
	return err
}
