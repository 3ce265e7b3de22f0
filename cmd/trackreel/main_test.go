package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/sink"
)

const walk = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="trackreel-test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="47.000" lon="8.000"><time>2024-05-01T12:00:00Z</time></trkpt>
    <trkpt lat="47.001" lon="8.001"><time>2024-05-01T12:00:10Z</time></trkpt>
    <trkpt lat="47.002" lon="8.002"><time>2024-05-01T12:00:20Z</time></trkpt>
  </trkseg></trk>
</gpx>`

// workspace writes a settings file that keeps logs inside a temp dir.
func workspace(t *testing.T) (dir, cfgDir string) {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir = t.TempDir()
	cfgDir = filepath.Join(dir, "cfg")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	settings := `{"logsDir": "` + filepath.ToSlash(filepath.Join(dir, "logs")) + `", "render": {"workers": 2}}`
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, config.FileName), []byte(settings), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walk.gpx"), []byte(walk), 0o644))
	return dir, cfgDir
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--help"}, &out)

	assert.ErrorIs(t, err, errHelpHandled)
	assert.Contains(t, out.String(), "--job")
	assert.Contains(t, out.String(), "--config-dir")
}

func TestRun_UnknownFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--no-such-flag"}, &out)

	require.Error(t, err)
	assert.False(t, errors.Is(err, errHelpHandled))
}

func TestRun_RendersFrames(t *testing.T) {
	dir, cfgDir := workspace(t)
	output := filepath.Join(dir, "frames")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--config-dir", cfgDir,
		"--output", output,
		"--input", filepath.Join(dir, "walk.gpx"),
		"--width", "64",
		"--height", "48",
		"--fps", "1",
		"--speedup", "10",
	}, &out)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(output, sink.FileName(0)))
	assert.FileExists(t, filepath.Join(output, sink.FileName(2)))
	assert.Contains(t, out.String(), "render finished")

	logs, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRun_InvalidJob(t *testing.T) {
	_, cfgDir := workspace(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"--config-dir", cfgDir}, &out)

	var cfgErr *animation.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRun_Cancelled(t *testing.T) {
	dir, cfgDir := workspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := run(ctx, []string{
		"--config-dir", cfgDir,
		"--output", filepath.Join(dir, "frames"),
		"--input", filepath.Join(dir, "walk.gpx"),
		"--width", "64",
		"--height", "48",
	}, &out)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobName(t *testing.T) {
	assert.Equal(t, "alps", jobName("/renders/alps/"))
	assert.Equal(t, "frames", jobName("frames"))
}
