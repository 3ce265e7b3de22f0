package job

import (
	"errors"

	"github.com/spf13/pflag"
)

// Flags binds the job options to a flag set. Options given on the command
// line override the job file named by --job; list options replace the
// file's list as a whole.
type Flags struct {
	fs    *pflag.FlagSet
	path  *string
	apply []func(*Job)
}

// BindFlags registers --job and one option per job key on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	f.path = fs.String("job", "", "YAML job file")

	f.str("output", "output directory for the frame sequence", func(j *Job, v string) { j.Output = v })
	f.strings("input", "GPX input file, repeat for every track", func(j *Job, v []string) { j.Input = v })
	f.strings("color", "track color (#rrggbb), repeat per track", func(j *Job, v []string) { j.Color = v })
	f.floats("line-width", "track line width, repeat per track", func(j *Job, v []float64) { j.LineWidth = v })
	f.strings("label", "track label, repeat per track", func(j *Job, v []string) { j.Label = v })
	f.strings("time-offset", "track time offset in ms, repeat per track", func(j *Job, v []string) { j.TimeOffset = v })
	f.strings("forced-point-time-interval", "forced point interval in ms, empty for none, repeat per track",
		func(j *Job, v []string) { j.ForcedPointTimeInterval = v })
	f.strings("track-icon", "built-in marker icon, repeat per track", func(j *Job, v []string) { j.TrackIcon = v })
	f.strings("track-icon-file", "marker icon image, repeat per track", func(j *Job, v []string) { j.TrackIconFile = v })
	mirror := fs.BoolSlice("track-icon-mirror", nil, "mirror the marker icon when heading west, per track")
	f.on("track-icon-mirror", func(j *Job) { j.TrackIconMirror = *mirror })

	f.integer("width", "canvas width in pixels", func(j *Job, v *int) { j.Width = v })
	f.integer("height", "canvas height in pixels", func(j *Job, v *int) { j.Height = v })
	f.integer("viewport-width", "viewport width in pixels", func(j *Job, v *int) { j.ViewportWidth = v })
	f.integer("viewport-height", "viewport height in pixels", func(j *Job, v *int) { j.ViewportHeight = v })
	f.integer("zoom", "map zoom level", func(j *Job, v *int) { j.Zoom = v })
	f.integer("margin", "margin in pixels", func(j *Job, v *int) { j.Margin = v })

	f.float("min-lat", "minimum latitude", func(j *Job, v *float64) { j.MinLat = v })
	f.float("max-lat", "maximum latitude", func(j *Job, v *float64) { j.MaxLat = v })
	f.float("min-lon", "minimum longitude", func(j *Job, v *float64) { j.MinLon = v })
	f.float("max-lon", "maximum longitude", func(j *Job, v *float64) { j.MaxLon = v })
	f.float("fps", "frames per second", func(j *Job, v *float64) { j.FPS = v })
	f.float("speedup", "animation speed-up", func(j *Job, v *float64) { j.Speedup = v })
	f.float("marker-size", "marker size in pixels", func(j *Job, v *float64) { j.MarkerSize = v })
	f.float("waypoint-size", "waypoint size in pixels", func(j *Job, v *float64) { j.WaypointSize = v })
	f.float("background-map-visibility", "map opacity from 0 to 1", func(j *Job, v *float64) { j.BackgroundMapVisibility = v })
	f.float("font-size", "font size", func(j *Job, v *float64) { j.Font.Size = v })

	f.millis("total-time", "total animation time in ms", func(j *Job, v *int64) { j.TotalTime = v })
	f.millis("flashback-duration", "flashback duration in ms", func(j *Job, v *int64) { j.FlashbackDuration = v })
	f.millis("tail-duration", "tail duration in ms", func(j *Job, v *int64) { j.TailDuration = v })
	f.millis("photo-time", "photo fade time in ms", func(j *Job, v *int64) { j.PhotoTime = v })
	f.millis("photo-animation-duration", "photo display time in ms", func(j *Job, v *int64) { j.PhotoAnimationDuration = v })

	f.str("background-color", "background color (#aarrggbb)", func(j *Job, v string) { j.BackgroundColor = v })
	f.str("flashback-color", "flashback color (#aarrggbb)", func(j *Job, v string) { j.FlashbackColor = v })
	f.str("tail-color", "tail color (#aarrggbb)", func(j *Job, v string) { j.TailColor = v })
	f.str("pre-draw-track-color", "pre-drawn track color (#rrggbb)", func(j *Job, v string) { j.PreDrawTrackColor = v })
	f.str("font", "font file", func(j *Job, v string) { j.Font.Path = v })
	f.str("logo", "logo image", func(j *Job, v string) { j.Logo = v })
	f.str("attribution", "attribution text", func(j *Job, v string) { j.Attribution = &v })
	f.str("tms-url-template", "map tile URL template", func(j *Job, v string) { j.TMSURLTemplate = v })
	f.str("photo-dir", "photo directory", func(j *Job, v string) { j.PhotoDir = v })

	f.boolean("keep-idle", "keep idle periods", func(j *Job, v bool) { j.KeepIdle = v })
	f.boolean("pre-draw-track", "draw the whole track before the animation", func(j *Job, v bool) { j.PreDrawTrack = v })
	return f
}

// Parse parses args, loads the job file if one was named and applies the
// command-line overrides. It returns ErrHelp after usage was printed.
func (f *Flags) Parse(args []string) (*Job, error) {
	if err := f.fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, err
	}
	return f.Job()
}

// Job returns the job after the flag set was parsed.
func (f *Flags) Job() (*Job, error) {
	j := &Job{}
	if *f.path != "" {
		var err error
		if j, err = Load(*f.path); err != nil {
			return nil, err
		}
	}
	for _, apply := range f.apply {
		apply(j)
	}
	return j, nil
}

func (f *Flags) on(name string, fn func(*Job)) {
	f.apply = append(f.apply, func(j *Job) {
		if f.fs.Changed(name) {
			fn(j)
		}
	})
}

func (f *Flags) str(name, usage string, set func(*Job, string)) {
	v := f.fs.String(name, "", usage)
	f.on(name, func(j *Job) { set(j, *v) })
}

func (f *Flags) strings(name, usage string, set func(*Job, []string)) {
	v := f.fs.StringArray(name, nil, usage)
	f.on(name, func(j *Job) { set(j, *v) })
}

func (f *Flags) floats(name, usage string, set func(*Job, []float64)) {
	v := f.fs.Float64Slice(name, nil, usage)
	f.on(name, func(j *Job) { set(j, *v) })
}

func (f *Flags) integer(name, usage string, set func(*Job, *int)) {
	v := f.fs.Int(name, 0, usage)
	f.on(name, func(j *Job) {
		x := *v
		set(j, &x)
	})
}

func (f *Flags) float(name, usage string, set func(*Job, *float64)) {
	v := f.fs.Float64(name, 0, usage)
	f.on(name, func(j *Job) {
		x := *v
		set(j, &x)
	})
}

func (f *Flags) millis(name, usage string, set func(*Job, *int64)) {
	v := f.fs.Int64(name, 0, usage)
	f.on(name, func(j *Job) {
		x := *v
		set(j, &x)
	})
}

func (f *Flags) boolean(name, usage string, set func(*Job, bool)) {
	v := f.fs.Bool(name, false, usage)
	f.on(name, func(j *Job) { set(j, *v) })
}
