package gpxinput

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/internal/animation"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="46.5" lon="7.9"><time>2024-05-01T10:05:00Z</time><name>Hut</name></wpt>
  <trk>
    <name>Morning ride</name>
    <trkseg>
      <trkpt lat="46.0" lon="7.0"><ele>1200.5</ele><time>2024-05-01T10:00:00Z</time></trkpt>
      <trkpt lat="46.1" lon="7.1"><time>2024-05-01T10:00:10Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="46.2" lon="7.2"><time>2024-05-01T10:01:00Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

const routeOnly = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte>
    <name>Planned</name>
    <rtept lat="1" lon="2"></rtept>
    <rtept lat="3" lon="4"></rtept>
  </rte>
</gpx>`

func TestParse_Tracks(t *testing.T) {
	tr, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Morning ride", tr.Name)
	require.Len(t, tr.Points, 3)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), tr.Points[0].Time.UTC())
	assert.InDelta(t, 46.2, tr.Points[2].Lat, 1e-9)
	assert.InDelta(t, 7.2, tr.Points[2].Lon, 1e-9)

	ele, ok := tr.Points[0].Elevation.Get()
	assert.True(t, ok)
	assert.InDelta(t, 1200.5, ele, 1e-9)
	assert.False(t, tr.Points[1].Elevation.IsSet())

	require.Len(t, tr.Waypoints, 1)
	assert.Equal(t, "Hut", tr.Waypoints[0].Name)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), tr.Waypoints[0].Time.UTC())
}

func TestParse_RoutesWithoutTimestamps(t *testing.T) {
	tr, err := Parse([]byte(routeOnly))
	require.NoError(t, err)

	assert.Equal(t, "Planned", tr.Name)
	require.Len(t, tr.Points, 2)
	assert.True(t, tr.Points[0].Time.IsZero())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("not xml"))
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func config(t *testing.T, inputs ...string) *animation.Configuration {
	t.Helper()
	b := animation.NewBuilder().Output("out")
	for _, in := range inputs {
		tc, err := animation.NewTrackBuilder().Input(in).Build()
		require.NoError(t, err)
		b.AddTrackConfiguration(tc)
	}
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func TestLoadAll_AlignedWithConfiguration(t *testing.T) {
	a := writeFile(t, "a.gpx", sample)
	b := writeFile(t, "b.gpx", routeOnly)

	tracks, err := LoadAll(context.Background(), config(t, a, b, a))
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "Morning ride", tracks[0].Name)
	assert.Equal(t, "Planned", tracks[1].Name)
	assert.Equal(t, "Morning ride", tracks[2].Name)
}

func TestLoadAll_MissingFile(t *testing.T) {
	a := writeFile(t, "a.gpx", sample)
	_, err := LoadAll(context.Background(), config(t, a, filepath.Join(t.TempDir(), "missing.gpx")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track 1")
}
