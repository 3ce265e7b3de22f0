package animation

import (
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

// DefaultLineWidth is used for tracks without an explicit width.
const DefaultLineWidth = 2.0

// TrackConfiguration holds the per-track drawing attributes. It is immutable
// once built.
type TrackConfiguration struct {
	v trackValues
}

type trackValues struct {
	Input               string  `field:"input"`
	Color               core.Color
	LineWidth           float64 `field:"lineWidth" validate:"gte=0"`
	Label               string
	TimeOffset          time.Duration
	ForcedPointInterval core.Opt[time.Duration]
	TrackIcon           core.TrackIcon
	InputIcon           core.Opt[string]
	MirrorTrackIcon     bool
}

func (t TrackConfiguration) Input() string                                { return t.v.Input }
func (t TrackConfiguration) Color() core.Color                            { return t.v.Color }
func (t TrackConfiguration) LineWidth() float64                           { return t.v.LineWidth }
func (t TrackConfiguration) Label() string                                { return t.v.Label }
func (t TrackConfiguration) TimeOffset() time.Duration                    { return t.v.TimeOffset }
func (t TrackConfiguration) ForcedPointInterval() core.Opt[time.Duration] { return t.v.ForcedPointInterval }
func (t TrackConfiguration) TrackIcon() core.TrackIcon                    { return t.v.TrackIcon }
func (t TrackConfiguration) InputIcon() core.Opt[string]                  { return t.v.InputIcon }
func (t TrackConfiguration) MirrorTrackIcon() bool                        { return t.v.MirrorTrackIcon }

// TrackBuilder collects TrackConfiguration values.
type TrackBuilder struct {
	v trackValues
}

// NewTrackBuilder returns a builder preloaded with the default line width.
func NewTrackBuilder() *TrackBuilder {
	return &TrackBuilder{v: trackValues{LineWidth: DefaultLineWidth}}
}

func (b *TrackBuilder) Input(ref string) *TrackBuilder {
	b.v.Input = ref
	return b
}

func (b *TrackBuilder) Color(c core.Color) *TrackBuilder {
	b.v.Color = c
	return b
}

func (b *TrackBuilder) LineWidth(w float64) *TrackBuilder {
	b.v.LineWidth = w
	return b
}

func (b *TrackBuilder) Label(l string) *TrackBuilder {
	b.v.Label = l
	return b
}

func (b *TrackBuilder) TimeOffset(d time.Duration) *TrackBuilder {
	b.v.TimeOffset = d
	return b
}

func (b *TrackBuilder) ForcedPointInterval(d core.Opt[time.Duration]) *TrackBuilder {
	b.v.ForcedPointInterval = d
	return b
}

func (b *TrackBuilder) TrackIcon(i core.TrackIcon) *TrackBuilder {
	b.v.TrackIcon = i
	return b
}

func (b *TrackBuilder) InputIcon(path core.Opt[string]) *TrackBuilder {
	b.v.InputIcon = path
	return b
}

func (b *TrackBuilder) MirrorTrackIcon(m bool) *TrackBuilder {
	b.v.MirrorTrackIcon = m
	return b
}

// Build validates the track values on their own.
func (b *TrackBuilder) Build() (TrackConfiguration, error) {
	if err := validateStruct("track", b.v); err != nil {
		return TrackConfiguration{}, err
	}
	if d, ok := b.v.ForcedPointInterval.Get(); ok && d <= 0 {
		return TrackConfiguration{}, fieldError("track.forcedPointInterval", "must be positive")
	}
	return TrackConfiguration{v: b.v}, nil
}
