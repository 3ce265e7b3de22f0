// Package normalize pads per-track attribute lists to the number of input
// tracks and turns the result into track builders.
//
// A list that is empty is filled with generated defaults. A list shorter than
// the track count is extended by appending list[i-have] for every missing
// index i, reading from the list as it grows. A list that is long enough is
// used as is and surplus entries are ignored.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/pkg/core"
)

// Default HSB components of generated track colors.
const (
	DefaultSaturation float32 = 0.8
	DefaultBrightness float32 = 1.0
)

// Inputs are the raw per-track lists collected at the boundary (job file,
// command line). Only Files decides the track count.
type Inputs struct {
	Files                []string
	Colors               []core.Color
	LineWidths           []float64
	Labels               []string
	TimeOffsets          []time.Duration
	ForcedPointIntervals []core.Opt[time.Duration]
	TrackIcons           []core.TrackIcon
	InputIcons           []core.Opt[string]
	MirrorTrackIcons     []bool

	// DefaultColor replaces generated hues for an empty color list.
	DefaultColor core.Opt[core.Color]
}

// fill applies the padding rule to list. def produces the value for index i
// of n when list is empty.
func fill[T any](list []T, n int, def func(i, n int) T) []T {
	have := len(list)
	if have >= n {
		return append([]T(nil), list[:n]...)
	}
	out := make([]T, have, n)
	copy(out, list)
	if have == 0 {
		for i := 0; i < n; i++ {
			out = append(out, def(i, n))
		}
		return out
	}
	for i := have; i < n; i++ {
		out = append(out, out[i-have])
	}
	return out
}

// pad extends list with zero values up to n without cycling.
func pad[T any](list []T, n int) []T {
	out := make([]T, n)
	copy(out, list)
	return out
}

// Colors normalizes the color list to n entries. Generated colors are evenly
// spaced hues at saturation 0.8 and brightness 1.
func Colors(list []core.Color, n int) []core.Color {
	return fill(list, n, func(i, n int) core.Color {
		return core.HSB(float32(i)/float32(n), DefaultSaturation, DefaultBrightness)
	})
}

// ColorsWithDefault is Colors where an empty list is filled with def instead
// of generated hues.
func ColorsWithDefault(list []core.Color, n int, def core.Color) []core.Color {
	return fill(list, n, func(int, int) core.Color { return def })
}

func LineWidths(list []float64, n int) []float64 {
	return fill(list, n, func(int, int) float64 { return animation.DefaultLineWidth })
}

func TrackIcons(list []core.TrackIcon, n int) []core.TrackIcon {
	return fill(list, n, func(int, int) core.TrackIcon { return core.TrackIcon{} })
}

// InputIcons normalizes custom icon references. The generated default is an
// absent reference, meaning no custom icon.
func InputIcons(list []core.Opt[string], n int) []core.Opt[string] {
	return fill(list, n, func(int, int) core.Opt[string] { return core.None[string]() })
}

func MirrorFlags(list []bool, n int) []bool {
	return fill(list, n, func(int, int) bool { return false })
}

// Tracks normalizes every list in in and returns one builder per input file,
// in input order.
func Tracks(in Inputs) []*animation.TrackBuilder {
	n := len(in.Files)

	var colors []core.Color
	if def, ok := in.DefaultColor.Get(); ok {
		colors = ColorsWithDefault(in.Colors, n, def)
	} else {
		colors = Colors(in.Colors, n)
	}
	widths := LineWidths(in.LineWidths, n)
	icons := TrackIcons(in.TrackIcons, n)
	inputIcons := InputIcons(in.InputIcons, n)
	mirror := MirrorFlags(in.MirrorTrackIcons, n)

	labels := pad(in.Labels, n)
	offsets := pad(in.TimeOffsets, n)
	intervals := pad(in.ForcedPointIntervals, n)

	builders := make([]*animation.TrackBuilder, n)
	for i, file := range in.Files {
		builders[i] = animation.NewTrackBuilder().
			Input(file).
			Color(colors[i]).
			LineWidth(widths[i]).
			Label(labels[i]).
			TimeOffset(offsets[i]).
			ForcedPointInterval(intervals[i]).
			TrackIcon(icons[i]).
			InputIcon(inputIcons[i]).
			MirrorTrackIcon(mirror[i])
	}
	return builders
}

// Apply builds every normalized track and adds it to b. A track that fails
// to build is reported with its index, e.g. "tracks[2].lineWidth".
func Apply(b *animation.Builder, in Inputs) error {
	for i, tb := range Tracks(in) {
		tc, err := tb.Build()
		if err != nil {
			return indexed(err, i)
		}
		b.AddTrackConfiguration(tc)
	}
	return nil
}

func indexed(err error, i int) error {
	var ce *animation.ConfigurationError
	if !errors.As(err, &ce) {
		return fmt.Errorf("tracks[%d]: %w", i, err)
	}
	field := fmt.Sprintf("tracks[%d]", i)
	if rest, ok := strings.CutPrefix(ce.Field, "track"); ok {
		field += rest
	}
	return &animation.ConfigurationError{Field: field, Reason: ce.Reason, Err: ce.Err}
}
