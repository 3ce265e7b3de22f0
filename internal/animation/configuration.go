// Package animation holds the immutable render configuration and its
// builders. A Configuration is built once per render run and only read
// afterwards, so it can be shared between goroutines without locking.
package animation

import (
	"fmt"
	"strings"
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

// Defaults applied by NewBuilder.
const (
	DefaultFPS                     = 30.0
	DefaultSpeedup                 = 1000.0
	DefaultMargin                  = 20
	DefaultMarkerSize              = 8.0
	DefaultWaypointSize            = 6.0
	DefaultBackgroundMapVisibility = 0.5
	DefaultFontSize                = 12.0
	DefaultAttribution             = "Created by trackreel"
	DefaultPhotoTime               = 3 * time.Second
	DefaultPhotoAnimationDuration  = 700 * time.Millisecond
	DefaultPreDrawTrackColor       = core.Color(0xFF808080)

	// MaxZoom is the deepest tile zoom level accepted.
	MaxZoom = 22
)

// Font selects the face used for labels and text overlays. An empty Path
// selects the built-in Go Regular face.
type Font struct {
	Path string  `field:"path"`
	Size float64 `field:"size" validate:"gt=0"`
}

type values struct {
	Output                  string `field:"output" validate:"required"`
	Width                   core.Opt[int]
	Height                  core.Opt[int]
	ViewportWidth           core.Opt[int]
	ViewportHeight          core.Opt[int]
	FPS                     float64 `field:"fps" validate:"gt=0"`
	Zoom                    core.Opt[int]
	MinLat                  core.Opt[float64]
	MaxLat                  core.Opt[float64]
	MinLon                  core.Opt[float64]
	MaxLon                  core.Opt[float64]
	Margin                  int     `field:"margin" validate:"gte=0"`
	BackgroundMapVisibility float64 `field:"backgroundMapVisibility" validate:"gte=0,lte=1"`
	BackgroundColor         core.Color
	FlashbackColor          core.Color
	FlashbackDuration       core.Opt[time.Duration]
	TailColor               core.Color
	TailDuration            time.Duration `field:"tailDuration" validate:"gte=0"`
	Speedup                 float64       `field:"speedup" validate:"gt=0"`
	TotalTime               core.Opt[time.Duration]
	MarkerSize              float64 `field:"markerSize" validate:"gte=0"`
	WaypointSize            float64 `field:"waypointSize" validate:"gte=0"`
	Font                    Font    `field:"font"`
	Logo                    string
	Attribution             string
	TMSURLTemplate          string
	PhotoDirectory          string
	PhotoTime               time.Duration `field:"photoTime" validate:"gte=0"`
	PhotoAnimationDuration  time.Duration `field:"photoAnimationDuration" validate:"gte=0"`
	SkipIdle                bool
	PreDrawTrack            bool
	PreDrawTrackColor       core.Color
	Tracks                  []TrackConfiguration `field:"tracks" validate:"min=1"`
}

// Configuration is the validated, read-only setting set for one render run.
type Configuration struct {
	v values
}

func (c *Configuration) Output() string                             { return c.v.Output }
func (c *Configuration) Width() core.Opt[int]                       { return c.v.Width }
func (c *Configuration) Height() core.Opt[int]                      { return c.v.Height }
func (c *Configuration) ViewportWidth() core.Opt[int]               { return c.v.ViewportWidth }
func (c *Configuration) ViewportHeight() core.Opt[int]              { return c.v.ViewportHeight }
func (c *Configuration) FPS() float64                               { return c.v.FPS }
func (c *Configuration) Zoom() core.Opt[int]                        { return c.v.Zoom }
func (c *Configuration) MinLat() core.Opt[float64]                  { return c.v.MinLat }
func (c *Configuration) MaxLat() core.Opt[float64]                  { return c.v.MaxLat }
func (c *Configuration) MinLon() core.Opt[float64]                  { return c.v.MinLon }
func (c *Configuration) MaxLon() core.Opt[float64]                  { return c.v.MaxLon }
func (c *Configuration) Margin() int                                { return c.v.Margin }
func (c *Configuration) BackgroundMapVisibility() float64           { return c.v.BackgroundMapVisibility }
func (c *Configuration) BackgroundColor() core.Color                { return c.v.BackgroundColor }
func (c *Configuration) FlashbackColor() core.Color                 { return c.v.FlashbackColor }
func (c *Configuration) FlashbackDuration() core.Opt[time.Duration] { return c.v.FlashbackDuration }
func (c *Configuration) TailColor() core.Color                      { return c.v.TailColor }
func (c *Configuration) TailDuration() time.Duration                { return c.v.TailDuration }
func (c *Configuration) Speedup() float64                           { return c.v.Speedup }
func (c *Configuration) TotalTime() core.Opt[time.Duration]         { return c.v.TotalTime }
func (c *Configuration) MarkerSize() float64                        { return c.v.MarkerSize }
func (c *Configuration) WaypointSize() float64                      { return c.v.WaypointSize }
func (c *Configuration) Font() Font                                 { return c.v.Font }
func (c *Configuration) Logo() string                               { return c.v.Logo }
func (c *Configuration) Attribution() string                        { return c.v.Attribution }
func (c *Configuration) TMSURLTemplate() string                     { return c.v.TMSURLTemplate }
func (c *Configuration) PhotoDirectory() string                     { return c.v.PhotoDirectory }
func (c *Configuration) PhotoTime() time.Duration                   { return c.v.PhotoTime }
func (c *Configuration) PhotoAnimationDuration() time.Duration      { return c.v.PhotoAnimationDuration }
func (c *Configuration) SkipIdle() bool                             { return c.v.SkipIdle }
func (c *Configuration) PreDrawTrack() bool                         { return c.v.PreDrawTrack }
func (c *Configuration) PreDrawTrackColor() core.Color              { return c.v.PreDrawTrackColor }

// Tracks returns a copy of the per-track configurations in input order.
func (c *Configuration) Tracks() []TrackConfiguration {
	out := make([]TrackConfiguration, len(c.v.Tracks))
	copy(out, c.v.Tracks)
	return out
}

// TrackCount returns the number of configured tracks.
func (c *Configuration) TrackCount() int {
	return len(c.v.Tracks)
}

// Track returns the i-th track configuration.
func (c *Configuration) Track(i int) TrackConfiguration {
	return c.v.Tracks[i]
}

func (c *Configuration) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration{output=%s, width=%v, height=%v, fps=%g, zoom=%v, speedup=%g, totalTime=%v",
		c.v.Output, c.v.Width, c.v.Height, c.v.FPS, c.v.Zoom, c.v.Speedup, c.v.TotalTime)
	fmt.Fprintf(&b, ", tailDuration=%s, flashbackDuration=%v, skipIdle=%t, tms=%q, tracks=[",
		c.v.TailDuration, c.v.FlashbackDuration, c.v.SkipIdle, c.v.TMSURLTemplate)
	for i, t := range c.v.Tracks {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "{input=%s, color=%s, lineWidth=%g, label=%q, timeOffset=%s}",
			t.v.Input, t.v.Color, t.v.LineWidth, t.v.Label, t.v.TimeOffset)
	}
	b.WriteString("]}")
	return b.String()
}
