package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/pkg/core"
)

func TestColors_GeneratedHues(t *testing.T) {
	colors := Colors(nil, 2)
	require.Len(t, colors, 2)

	assert.InDelta(t, 0.0, colors[0].Hue(), 0.001)
	assert.InDelta(t, 0.5, colors[1].Hue(), 0.001)
	assert.Equal(t, core.Color(0xFFFF3333), colors[0])
	assert.Equal(t, core.Color(0xFF33FFFF), colors[1])
}

func TestColors_FourTracksEvenlySpaced(t *testing.T) {
	colors := Colors(nil, 4)
	for i, c := range colors {
		assert.InDelta(t, float64(i)/4, c.Hue(), 0.01, "track %d", i)
		assert.Equal(t, uint8(0xFF), c.A())
	}
}

func TestFill_CyclesFromGrowingList(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		n    int
		want []float64
	}{
		{"one of three", []float64{1}, 3, []float64{1, 1, 1}},
		{"two of five", []float64{1, 2}, 5, []float64{1, 2, 1, 2, 1}},
		{"three of four", []float64{1, 2, 3}, 4, []float64{1, 2, 3, 1}},
		{"exact", []float64{4, 5}, 2, []float64{4, 5}},
		{"surplus ignored", []float64{4, 5, 6}, 2, []float64{4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineWidths(tt.in, tt.n))
		})
	}
}

func TestFill_DoesNotAliasInput(t *testing.T) {
	in := []float64{1, 2, 3}
	out := LineWidths(in, 2)
	out[0] = 42
	assert.Equal(t, 1.0, in[0])
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []float64{2, 2}, LineWidths(nil, 2))
	assert.Equal(t, []core.TrackIcon{{}, {}}, TrackIcons(nil, 2))
	assert.Equal(t, []bool{false, false, false}, MirrorFlags(nil, 3))

	icons := InputIcons(nil, 2)
	require.Len(t, icons, 2)
	for _, ic := range icons {
		assert.False(t, ic.IsSet())
	}
}

func TestColorsWithDefault(t *testing.T) {
	red := core.Color(0xFFFF0000)
	assert.Equal(t, []core.Color{red, red}, ColorsWithDefault(nil, 2, red))

	blue := core.Color(0xFF0000FF)
	assert.Equal(t, []core.Color{blue, blue}, ColorsWithDefault([]core.Color{blue}, 2, red))
}

func TestTracks_TwoTracksNoAttributes(t *testing.T) {
	builders := Tracks(Inputs{Files: []string{"a.gpx", "b.gpx"}})
	require.Len(t, builders, 2)

	a, err := builders[0].Build()
	require.NoError(t, err)
	b, err := builders[1].Build()
	require.NoError(t, err)

	assert.InDelta(t, 0.0, a.Color().Hue(), 0.001)
	assert.InDelta(t, 0.5, b.Color().Hue(), 0.001)
	assert.Equal(t, 2.0, a.LineWidth())
	assert.Equal(t, 2.0, b.LineWidth())
	assert.Equal(t, "a.gpx", a.Input())
	assert.Equal(t, "b.gpx", b.Input())
	assert.True(t, a.TrackIcon().IsEmpty())
	assert.False(t, b.InputIcon().IsSet())
	assert.False(t, b.MirrorTrackIcon())
}

func TestTracks_LabelsAndOffsetsAreNotCycled(t *testing.T) {
	builders := Tracks(Inputs{
		Files:                []string{"a", "b", "c"},
		Labels:               []string{"first"},
		TimeOffsets:          []time.Duration{time.Minute},
		ForcedPointIntervals: []core.Opt[time.Duration]{core.Some(time.Second)},
		MirrorTrackIcons:     []bool{true},
	})
	require.Len(t, builders, 3)

	var built []animation.TrackConfiguration
	for _, b := range builders {
		tc, err := b.Build()
		require.NoError(t, err)
		built = append(built, tc)
	}

	assert.Equal(t, "first", built[0].Label())
	assert.Equal(t, "", built[1].Label())
	assert.Equal(t, "", built[2].Label())
	assert.Equal(t, time.Minute, built[0].TimeOffset())
	assert.Equal(t, time.Duration(0), built[2].TimeOffset())
	assert.True(t, built[0].ForcedPointInterval().IsSet())
	assert.False(t, built[1].ForcedPointInterval().IsSet())

	// mirror flags do cycle
	assert.True(t, built[1].MirrorTrackIcon())
	assert.True(t, built[2].MirrorTrackIcon())
}

func TestApply(t *testing.T) {
	b := animation.NewBuilder().Output("out")
	require.NoError(t, Apply(b, Inputs{Files: []string{"a", "b"}, DefaultColor: core.Some(core.Black)}))

	cfg, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 2, cfg.TrackCount())
	assert.Equal(t, core.Black, cfg.Track(1).Color())
}

func TestApply_InvalidWidth(t *testing.T) {
	b := animation.NewBuilder().Output("out")
	err := Apply(b, Inputs{Files: []string{"a"}, LineWidths: []float64{-3}})
	require.Error(t, err)
	assert.True(t, animation.IsConfigurationError(err))
}

func TestApply_ErrorNamesTrack(t *testing.T) {
	b := animation.NewBuilder().Output("out")
	err := Apply(b, Inputs{Files: []string{"a", "b", "c"}, LineWidths: []float64{1, 2, -1}})

	var ce *animation.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tracks[2].lineWidth", ce.Field)
	assert.Contains(t, err.Error(), "tracks[2]")
}

func TestApply_ForcedIntervalNamesTrack(t *testing.T) {
	b := animation.NewBuilder().Output("out")
	err := Apply(b, Inputs{
		Files:                []string{"a", "b"},
		ForcedPointIntervals: []core.Opt[time.Duration]{core.None[time.Duration](), core.Some(-time.Second)},
	})

	var ce *animation.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tracks[1].forcedPointInterval", ce.Field)
}
