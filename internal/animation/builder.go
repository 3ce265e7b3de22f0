package animation

import (
	"fmt"
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

// Builder collects raw typed settings. Nothing is checked until Build.
type Builder struct {
	v values
}

// NewBuilder returns a builder preloaded with the defaults.
func NewBuilder() *Builder {
	return &Builder{v: values{
		FPS:                     DefaultFPS,
		Speedup:                 DefaultSpeedup,
		Margin:                  DefaultMargin,
		MarkerSize:              DefaultMarkerSize,
		WaypointSize:            DefaultWaypointSize,
		BackgroundMapVisibility: DefaultBackgroundMapVisibility,
		BackgroundColor:         core.White,
		FlashbackColor:          core.White,
		TailColor:               core.Transparent,
		Font:                    Font{Size: DefaultFontSize},
		Attribution:             DefaultAttribution,
		PhotoTime:               DefaultPhotoTime,
		PhotoAnimationDuration:  DefaultPhotoAnimationDuration,
		SkipIdle:                true,
		PreDrawTrackColor:       DefaultPreDrawTrackColor,
	}}
}

func (b *Builder) Output(path string) *Builder                     { b.v.Output = path; return b }
func (b *Builder) Width(w int) *Builder                            { b.v.Width = core.Some(w); return b }
func (b *Builder) Height(h int) *Builder                           { b.v.Height = core.Some(h); return b }
func (b *Builder) ViewportWidth(w int) *Builder                    { b.v.ViewportWidth = core.Some(w); return b }
func (b *Builder) ViewportHeight(h int) *Builder                   { b.v.ViewportHeight = core.Some(h); return b }
func (b *Builder) FPS(fps float64) *Builder                        { b.v.FPS = fps; return b }
func (b *Builder) Zoom(z int) *Builder                             { b.v.Zoom = core.Some(z); return b }
func (b *Builder) MinLat(v float64) *Builder                       { b.v.MinLat = core.Some(v); return b }
func (b *Builder) MaxLat(v float64) *Builder                       { b.v.MaxLat = core.Some(v); return b }
func (b *Builder) MinLon(v float64) *Builder                       { b.v.MinLon = core.Some(v); return b }
func (b *Builder) MaxLon(v float64) *Builder                       { b.v.MaxLon = core.Some(v); return b }
func (b *Builder) Margin(m int) *Builder                           { b.v.Margin = m; return b }
func (b *Builder) BackgroundMapVisibility(v float64) *Builder      { b.v.BackgroundMapVisibility = v; return b }
func (b *Builder) BackgroundColor(c core.Color) *Builder           { b.v.BackgroundColor = c; return b }
func (b *Builder) FlashbackColor(c core.Color) *Builder            { b.v.FlashbackColor = c; return b }
func (b *Builder) TailColor(c core.Color) *Builder                 { b.v.TailColor = c; return b }
func (b *Builder) TailDuration(d time.Duration) *Builder           { b.v.TailDuration = d; return b }
func (b *Builder) Speedup(s float64) *Builder                      { b.v.Speedup = s; return b }
func (b *Builder) MarkerSize(s float64) *Builder                   { b.v.MarkerSize = s; return b }
func (b *Builder) WaypointSize(s float64) *Builder                 { b.v.WaypointSize = s; return b }
func (b *Builder) Font(f Font) *Builder                            { b.v.Font = f; return b }
func (b *Builder) Logo(path string) *Builder                       { b.v.Logo = path; return b }
func (b *Builder) Attribution(text string) *Builder                { b.v.Attribution = text; return b }
func (b *Builder) TMSURLTemplate(tmpl string) *Builder             { b.v.TMSURLTemplate = tmpl; return b }
func (b *Builder) PhotoDirectory(dir string) *Builder              { b.v.PhotoDirectory = dir; return b }
func (b *Builder) PhotoTime(d time.Duration) *Builder              { b.v.PhotoTime = d; return b }
func (b *Builder) PhotoAnimationDuration(d time.Duration) *Builder { b.v.PhotoAnimationDuration = d; return b }
func (b *Builder) SkipIdle(skip bool) *Builder                     { b.v.SkipIdle = skip; return b }
func (b *Builder) PreDrawTrack(pre bool) *Builder                  { b.v.PreDrawTrack = pre; return b }
func (b *Builder) PreDrawTrackColor(c core.Color) *Builder         { b.v.PreDrawTrackColor = c; return b }

// FlashbackDuration sets or clears the flashback window.
func (b *Builder) FlashbackDuration(d core.Opt[time.Duration]) *Builder {
	b.v.FlashbackDuration = d
	return b
}

// TotalTime sets or clears the output duration override.
func (b *Builder) TotalTime(d core.Opt[time.Duration]) *Builder {
	b.v.TotalTime = d
	return b
}

// AddTrackConfiguration appends a built track configuration.
func (b *Builder) AddTrackConfiguration(t TrackConfiguration) *Builder {
	b.v.Tracks = append(b.v.Tracks, t)
	return b
}

// Build validates the collected settings and freezes them.
func (b *Builder) Build() (*Configuration, error) {
	if err := validateStruct("", b.v); err != nil {
		return nil, err
	}

	positive := []struct {
		name string
		opt  core.Opt[int]
	}{
		{"width", b.v.Width},
		{"height", b.v.Height},
		{"viewportWidth", b.v.ViewportWidth},
		{"viewportHeight", b.v.ViewportHeight},
	}
	for _, p := range positive {
		if v, ok := p.opt.Get(); ok && v <= 0 {
			return nil, fieldError(p.name, "must be greater than 0")
		}
	}
	if b.v.ViewportWidth.IsSet() != b.v.ViewportHeight.IsSet() {
		if b.v.ViewportWidth.IsSet() {
			return nil, fieldError("viewportHeight", "is required when viewportWidth is set")
		}
		return nil, fieldError("viewportWidth", "is required when viewportHeight is set")
	}
	if z, ok := b.v.Zoom.Get(); ok && (z < 0 || z > MaxZoom) {
		return nil, fieldError("zoom", fmt.Sprintf("must be within 0..%d", MaxZoom))
	}
	if d, ok := b.v.TotalTime.Get(); ok && d <= 0 {
		return nil, fieldError("totalTime", "must be greater than 0")
	}
	if d, ok := b.v.FlashbackDuration.Get(); ok && d < 0 {
		return nil, fieldError("flashbackDuration", "must be at least 0")
	}
	if err := checkRange("minLat", "maxLat", b.v.MinLat, b.v.MaxLat, 90); err != nil {
		return nil, err
	}
	if err := checkRange("minLon", "maxLon", b.v.MinLon, b.v.MaxLon, 180); err != nil {
		return nil, err
	}

	v := b.v
	v.Tracks = make([]TrackConfiguration, len(b.v.Tracks))
	copy(v.Tracks, b.v.Tracks)
	return &Configuration{v: v}, nil
}

func checkRange(minName, maxName string, lo, hi core.Opt[float64], limit float64) error {
	minV, minOK := lo.Get()
	maxV, maxOK := hi.Get()
	if minOK && (minV < -limit || minV > limit) {
		return fieldError(minName, fmt.Sprintf("must be within -%g..%g", limit, limit))
	}
	if maxOK && (maxV < -limit || maxV > limit) {
		return fieldError(maxName, fmt.Sprintf("must be within -%g..%g", limit, limit))
	}
	if minOK && maxOK && minV >= maxV {
		return fieldError(maxName, fmt.Sprintf("must be greater than %s", minName))
	}
	return nil
}
