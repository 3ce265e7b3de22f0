package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/trackreel/trackreel/internal/compositor"
	"github.com/trackreel/trackreel/internal/tilecache"
)

// RenderObserver exports the progress of one render run.
type RenderObserver struct {
	m     *Manager
	job   string
	tiles func() tilecache.Stats
	now   func() time.Time
}

var _ compositor.Observer = (*RenderObserver)(nil)

// NewRenderObserver tags every point with job. tiles may be nil when the run
// has no tile cache.
func NewRenderObserver(m *Manager, job string, tiles func() tilecache.Stats) *RenderObserver {
	return &RenderObserver{m: m, job: job, tiles: tiles, now: time.Now}
}

func (o *RenderObserver) FrameRendered(index int, elapsed time.Duration) {
	if err := o.m.WritePoint(FramePoint(o.job, index, elapsed, o.now())); err != nil {
		o.m.Logger.Warn().Err(err).Int("frame", index).Msg("Dropping frame metric")
	}
}

func (o *RenderObserver) Finished(res compositor.Result) {
	var stats tilecache.Stats
	if o.tiles != nil {
		stats = o.tiles()
	}
	if err := o.m.WritePoint(RunPoint(o.job, res, stats, o.now())); err != nil {
		o.m.Logger.Warn().Err(err).Msg("Dropping run metric")
	}
}

// FramePoint builds the render_frame point of one emitted frame.
func FramePoint(job string, index int, elapsed time.Duration, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MeasurementFrame,
		map[string]string{"job": job},
		map[string]interface{}{
			"frame":      index,
			"elapsed_ms": float64(elapsed) / float64(time.Millisecond),
		},
		at)
}

// RunPoint builds the render_run summary point.
func RunPoint(job string, res compositor.Result, tiles tilecache.Stats, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementRun).
		AddTag("job", job).
		AddField("frames", res.Frames).
		AddField("duration_ms", float64(res.Duration)/float64(time.Millisecond)).
		AddField("cancelled", res.Cancelled).
		AddField("tile_hits", tiles.Hits).
		AddField("tile_misses", tiles.Misses).
		AddField("tile_fetches", tiles.Fetches).
		AddField("tile_errors", tiles.Errors).
		AddField("tile_evictions", tiles.Evictions).
		SetTime(at)
	if res.Frames > 0 && res.Duration > 0 {
		p.AddField("fps", float64(res.Frames)/res.Duration.Seconds())
	}
	return p
}
