package animation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/pkg/core"
)

func buildTrack(t *testing.T, input string) TrackConfiguration {
	t.Helper()
	tc, err := NewTrackBuilder().Input(input).Build()
	require.NoError(t, err)
	return tc
}

func TestBuild_RoundTrip(t *testing.T) {
	track, err := NewTrackBuilder().
		Input("a.gpx").
		Color(core.Color(0xFF112233)).
		LineWidth(3.5).
		Label("Alice").
		TimeOffset(90 * time.Second).
		ForcedPointInterval(core.Some(5 * time.Second)).
		TrackIcon(core.TrackIcon{Key: "bike", Name: "Bicycle"}).
		InputIcon(core.Some("icon.png")).
		MirrorTrackIcon(true).
		Build()
	require.NoError(t, err)

	cfg, err := NewBuilder().
		Output("out").
		Width(1024).
		Height(768).
		ViewportWidth(640).
		ViewportHeight(480).
		FPS(25).
		Zoom(12).
		MinLat(48.1).
		MaxLat(48.9).
		MinLon(17.0).
		MaxLon(17.5).
		Margin(10).
		BackgroundMapVisibility(0.75).
		BackgroundColor(core.Color(0x80FFFFFF)).
		FlashbackColor(core.Color(0xFFFF0000)).
		FlashbackDuration(core.Some(2 * time.Second)).
		TailColor(core.Color(0x40000000)).
		TailDuration(30 * time.Second).
		Speedup(500).
		TotalTime(core.Some(time.Minute)).
		MarkerSize(9).
		WaypointSize(4).
		Font(Font{Path: "font.ttf", Size: 14}).
		Logo("logo.png").
		Attribution("maps by someone").
		TMSURLTemplate("https://tile.example/{zoom}/{x}/{y}.png").
		PhotoDirectory("photos").
		PhotoTime(4 * time.Second).
		PhotoAnimationDuration(time.Second).
		SkipIdle(false).
		PreDrawTrack(true).
		PreDrawTrackColor(core.Color(0xFF010203)).
		AddTrackConfiguration(track).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Output())
	assert.Equal(t, core.Some(1024), cfg.Width())
	assert.Equal(t, core.Some(768), cfg.Height())
	assert.Equal(t, core.Some(640), cfg.ViewportWidth())
	assert.Equal(t, core.Some(480), cfg.ViewportHeight())
	assert.Equal(t, 25.0, cfg.FPS())
	assert.Equal(t, core.Some(12), cfg.Zoom())
	assert.Equal(t, core.Some(48.1), cfg.MinLat())
	assert.Equal(t, core.Some(48.9), cfg.MaxLat())
	assert.Equal(t, core.Some(17.0), cfg.MinLon())
	assert.Equal(t, core.Some(17.5), cfg.MaxLon())
	assert.Equal(t, 10, cfg.Margin())
	assert.Equal(t, 0.75, cfg.BackgroundMapVisibility())
	assert.Equal(t, core.Color(0x80FFFFFF), cfg.BackgroundColor())
	assert.Equal(t, core.Color(0xFFFF0000), cfg.FlashbackColor())
	assert.Equal(t, core.Some(2*time.Second), cfg.FlashbackDuration())
	assert.Equal(t, core.Color(0x40000000), cfg.TailColor())
	assert.Equal(t, 30*time.Second, cfg.TailDuration())
	assert.Equal(t, 500.0, cfg.Speedup())
	assert.Equal(t, core.Some(time.Minute), cfg.TotalTime())
	assert.Equal(t, 9.0, cfg.MarkerSize())
	assert.Equal(t, 4.0, cfg.WaypointSize())
	assert.Equal(t, Font{Path: "font.ttf", Size: 14}, cfg.Font())
	assert.Equal(t, "logo.png", cfg.Logo())
	assert.Equal(t, "maps by someone", cfg.Attribution())
	assert.Equal(t, "https://tile.example/{zoom}/{x}/{y}.png", cfg.TMSURLTemplate())
	assert.Equal(t, "photos", cfg.PhotoDirectory())
	assert.Equal(t, 4*time.Second, cfg.PhotoTime())
	assert.Equal(t, time.Second, cfg.PhotoAnimationDuration())
	assert.False(t, cfg.SkipIdle())
	assert.True(t, cfg.PreDrawTrack())
	assert.Equal(t, core.Color(0xFF010203), cfg.PreDrawTrackColor())

	require.Equal(t, 1, cfg.TrackCount())
	tc := cfg.Track(0)
	assert.Equal(t, "a.gpx", tc.Input())
	assert.Equal(t, core.Color(0xFF112233), tc.Color())
	assert.Equal(t, 3.5, tc.LineWidth())
	assert.Equal(t, "Alice", tc.Label())
	assert.Equal(t, 90*time.Second, tc.TimeOffset())
	assert.Equal(t, core.Some(5*time.Second), tc.ForcedPointInterval())
	assert.Equal(t, core.TrackIcon{Key: "bike", Name: "Bicycle"}, tc.TrackIcon())
	assert.Equal(t, core.Some("icon.png"), tc.InputIcon())
	assert.True(t, tc.MirrorTrackIcon())
}

func TestBuild_Defaults(t *testing.T) {
	cfg, err := NewBuilder().Output("out").AddTrackConfiguration(buildTrack(t, "a")).Build()
	require.NoError(t, err)

	assert.Equal(t, DefaultFPS, cfg.FPS())
	assert.Equal(t, DefaultSpeedup, cfg.Speedup())
	assert.Equal(t, DefaultMargin, cfg.Margin())
	assert.False(t, cfg.Width().IsSet())
	assert.False(t, cfg.Zoom().IsSet())
	assert.False(t, cfg.TotalTime().IsSet())
	assert.False(t, cfg.FlashbackDuration().IsSet())
	assert.True(t, cfg.SkipIdle())
	assert.Equal(t, core.White, cfg.BackgroundColor())
	assert.Equal(t, DefaultLineWidth, cfg.Track(0).LineWidth())
	assert.False(t, cfg.Track(0).InputIcon().IsSet())
}

func TestBuild_Errors(t *testing.T) {
	track := buildTrack(t, "a")

	tests := []struct {
		name  string
		build func() *Builder
		field string
	}{
		{"missing output", func() *Builder { return NewBuilder().AddTrackConfiguration(track) }, "output"},
		{"no tracks", func() *Builder { return NewBuilder().Output("o") }, "tracks"},
		{"zero width", func() *Builder { return NewBuilder().Output("o").Width(0).AddTrackConfiguration(track) }, "width"},
		{"negative height", func() *Builder { return NewBuilder().Output("o").Height(-5).AddTrackConfiguration(track) }, "height"},
		{"zero fps", func() *Builder { return NewBuilder().Output("o").FPS(0).AddTrackConfiguration(track) }, "fps"},
		{"negative speedup", func() *Builder { return NewBuilder().Output("o").Speedup(-1).AddTrackConfiguration(track) }, "speedup"},
		{"visibility above one", func() *Builder {
			return NewBuilder().Output("o").BackgroundMapVisibility(1.5).AddTrackConfiguration(track)
		}, "backgroundMapVisibility"},
		{"zoom too deep", func() *Builder { return NewBuilder().Output("o").Zoom(30).AddTrackConfiguration(track) }, "zoom"},
		{"viewport half set", func() *Builder {
			return NewBuilder().Output("o").ViewportWidth(100).AddTrackConfiguration(track)
		}, "viewportHeight"},
		{"inverted latitude", func() *Builder {
			return NewBuilder().Output("o").MinLat(10).MaxLat(5).AddTrackConfiguration(track)
		}, "maxLat"},
		{"zero total time", func() *Builder {
			return NewBuilder().Output("o").TotalTime(core.Some(time.Duration(0))).AddTrackConfiguration(track)
		}, "totalTime"},
		{"zero font size", func() *Builder {
			return NewBuilder().Output("o").Font(Font{}).AddTrackConfiguration(track)
		}, "font.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.build().Build()
			require.Error(t, err)
			assert.Nil(t, cfg)

			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestTrackBuilder_NegativeLineWidth(t *testing.T) {
	_, err := NewTrackBuilder().Input("a").LineWidth(-1).Build()
	require.Error(t, err)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "track.lineWidth", ce.Field)
}

func TestTrackBuilder_NonPositiveForcedInterval(t *testing.T) {
	_, err := NewTrackBuilder().Input("a").ForcedPointInterval(core.Some(time.Duration(0))).Build()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestConfiguration_TracksIsCopy(t *testing.T) {
	cfg, err := NewBuilder().Output("o").AddTrackConfiguration(buildTrack(t, "a")).Build()
	require.NoError(t, err)

	tracks := cfg.Tracks()
	tracks[0] = buildTrack(t, "changed")
	assert.Equal(t, "a", cfg.Track(0).Input())
}

func TestBuilder_LaterChangesDoNotLeak(t *testing.T) {
	b := NewBuilder().Output("o").AddTrackConfiguration(buildTrack(t, "a"))
	cfg, err := b.Build()
	require.NoError(t, err)

	b.Output("other").AddTrackConfiguration(buildTrack(t, "b"))
	assert.Equal(t, "o", cfg.Output())
	assert.Equal(t, 1, cfg.TrackCount())
}

func TestParseHelpers(t *testing.T) {
	c, err := ParseARGB("backgroundColor", "0xff336699")
	require.NoError(t, err)
	assert.Equal(t, core.Color(0xFF336699), c)

	c, err = ParseRGB("color", "#336699")
	require.NoError(t, err)
	assert.Equal(t, core.Color(0xFF336699), c)

	_, err = ParseARGB("tailColor", "banana")
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tailColor", ce.Field)

	d, err := ParseOptionalMillis("totalTime", " ")
	require.NoError(t, err)
	assert.False(t, d.IsSet())

	d, err = ParseOptionalMillis("totalTime", "1500")
	require.NoError(t, err)
	assert.Equal(t, core.Some(1500*time.Millisecond), d)

	_, err = ParseOptionalMillis("flashbackDuration", "12abc")
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "flashbackDuration", ce.Field)
}
