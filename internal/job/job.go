// Package job reads render jobs from YAML files and command-line options and
// turns them into an animation configuration.
//
// Per-track settings are parallel lists indexed like input. Lists shorter
// than input are padded by the normalize package.
package job

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/normalize"
	"github.com/trackreel/trackreel/pkg/core"
)

// ErrHelp is returned when usage was requested and printed.
var ErrHelp = errors.New("help requested")

// Font selects the text face.
type Font struct {
	Path string   `yaml:"path"`
	Size *float64 `yaml:"size" validate:"omitempty,gt=0"`
}

// Job is one render job. Durations are milliseconds. Pointer fields are
// optional and keep the configuration default when nil.
type Job struct {
	Output string `yaml:"output" validate:"required"`

	Input                   []string  `yaml:"input" validate:"min=1,dive,required"`
	Color                   []string  `yaml:"color"`
	LineWidth               []float64 `yaml:"lineWidth" validate:"dive,gte=0"`
	Label                   []string  `yaml:"label"`
	TimeOffset              []string  `yaml:"timeOffset"`
	ForcedPointTimeInterval []string  `yaml:"forcedPointTimeInterval"`
	TrackIcon               []string  `yaml:"trackIcon"`
	TrackIconFile           []string  `yaml:"trackIconFile"`
	TrackIconMirror         []bool    `yaml:"trackIconMirror"`

	Width          *int `yaml:"width" validate:"omitempty,gt=0"`
	Height         *int `yaml:"height" validate:"omitempty,gt=0"`
	ViewportWidth  *int `yaml:"viewportWidth" validate:"omitempty,gt=0"`
	ViewportHeight *int `yaml:"viewportHeight" validate:"omitempty,gt=0"`
	Zoom           *int `yaml:"zoom" validate:"omitempty,gte=0"`
	Margin         *int `yaml:"margin" validate:"omitempty,gte=0"`

	MinLat *float64 `yaml:"minLat"`
	MaxLat *float64 `yaml:"maxLat"`
	MinLon *float64 `yaml:"minLon"`
	MaxLon *float64 `yaml:"maxLon"`

	FPS          *float64 `yaml:"fps" validate:"omitempty,gt=0"`
	Speedup      *float64 `yaml:"speedup" validate:"omitempty,gt=0"`
	TotalTime    *int64   `yaml:"totalTime" validate:"omitempty,gt=0"`
	MarkerSize   *float64 `yaml:"markerSize" validate:"omitempty,gte=0"`
	WaypointSize *float64 `yaml:"waypointSize" validate:"omitempty,gte=0"`

	BackgroundMapVisibility *float64 `yaml:"backgroundMapVisibility" validate:"omitempty,gte=0,lte=1"`
	BackgroundColor         string   `yaml:"backgroundColor"`
	FlashbackColor          string   `yaml:"flashbackColor"`
	FlashbackDuration       *int64   `yaml:"flashbackDuration"`
	TailColor               string   `yaml:"tailColor"`
	TailDuration            *int64   `yaml:"tailDuration" validate:"omitempty,gte=0"`
	PreDrawTrack            bool     `yaml:"preDrawTrack"`
	PreDrawTrackColor       string   `yaml:"preDrawTrackColor"`
	KeepIdle                bool     `yaml:"keepIdle"`

	Font           Font    `yaml:"font"`
	Logo           string  `yaml:"logo"`
	Attribution    *string `yaml:"attribution"`
	TMSURLTemplate string  `yaml:"tmsUrlTemplate"`

	PhotoDir               string `yaml:"photoDir"`
	PhotoTime              *int64 `yaml:"photoTime" validate:"omitempty,gte=0"`
	PhotoAnimationDuration *int64 `yaml:"photoAnimationDuration" validate:"omitempty,gte=0"`
}

// Defaults carry the application's track color preference.
type Defaults struct {
	// RandomColors generates hues for tracks without a color. When false
	// Color is used instead.
	RandomColors bool
	Color        core.Color
}

var validate = validator.New()

// Load reads a YAML job file. Unknown keys are rejected.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	j := &Job{}
	if err := j.decode(data); err != nil {
		return nil, fmt.Errorf("job file %s: %w", path, err)
	}
	return j, nil
}

func (j *Job) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(j); err != nil {
		return err
	}
	return nil
}

// Validate checks the job's own constraints. Cross-field rules are left to
// the configuration builder.
func (j *Job) Validate() error {
	err := validate.Struct(j)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &animation.ConfigurationError{
		Field:  fe.Namespace(),
		Reason: fmt.Sprintf("failed %q check", fe.Tag()),
	}
}

// Configuration validates the job and builds the render configuration.
func (j *Job) Configuration(d Defaults) (*animation.Configuration, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}

	b := animation.NewBuilder().Output(j.Output)
	setInt(j.Width, b.Width)
	setInt(j.Height, b.Height)
	setInt(j.ViewportWidth, b.ViewportWidth)
	setInt(j.ViewportHeight, b.ViewportHeight)
	setInt(j.Zoom, b.Zoom)
	setInt(j.Margin, b.Margin)
	setFloat(j.MinLat, b.MinLat)
	setFloat(j.MaxLat, b.MaxLat)
	setFloat(j.MinLon, b.MinLon)
	setFloat(j.MaxLon, b.MaxLon)
	setFloat(j.FPS, b.FPS)
	setFloat(j.Speedup, b.Speedup)
	setFloat(j.MarkerSize, b.MarkerSize)
	setFloat(j.WaypointSize, b.WaypointSize)
	setFloat(j.BackgroundMapVisibility, b.BackgroundMapVisibility)
	setMillis(j.TailDuration, b.TailDuration)
	setMillis(j.PhotoTime, b.PhotoTime)
	setMillis(j.PhotoAnimationDuration, b.PhotoAnimationDuration)
	if j.TotalTime != nil {
		b.TotalTime(core.Some(millis(*j.TotalTime)))
	}
	if j.FlashbackDuration != nil {
		b.FlashbackDuration(core.Some(millis(*j.FlashbackDuration)))
	}

	argb := []struct {
		field string
		raw   string
		set   func(core.Color) *animation.Builder
	}{
		{"backgroundColor", j.BackgroundColor, b.BackgroundColor},
		{"flashbackColor", j.FlashbackColor, b.FlashbackColor},
		{"tailColor", j.TailColor, b.TailColor},
	}
	for _, c := range argb {
		if c.raw == "" {
			continue
		}
		v, err := animation.ParseARGB(c.field, c.raw)
		if err != nil {
			return nil, err
		}
		c.set(v)
	}
	if j.PreDrawTrackColor != "" {
		v, err := animation.ParseRGB("preDrawTrackColor", j.PreDrawTrackColor)
		if err != nil {
			return nil, err
		}
		b.PreDrawTrackColor(v)
	}

	font := animation.Font{Path: j.Font.Path, Size: animation.DefaultFontSize}
	if j.Font.Size != nil {
		font.Size = *j.Font.Size
	}
	b.Font(font).
		Logo(j.Logo).
		TMSURLTemplate(j.TMSURLTemplate).
		PhotoDirectory(j.PhotoDir).
		SkipIdle(!j.KeepIdle).
		PreDrawTrack(j.PreDrawTrack)
	if j.Attribution != nil {
		b.Attribution(*j.Attribution)
	}

	in, err := j.inputs(d)
	if err != nil {
		return nil, err
	}
	if err := normalize.Apply(b, in); err != nil {
		return nil, err
	}
	return b.Build()
}

func (j *Job) inputs(d Defaults) (normalize.Inputs, error) {
	in := normalize.Inputs{
		Files:            j.Input,
		LineWidths:       j.LineWidth,
		Labels:           j.Label,
		MirrorTrackIcons: j.TrackIconMirror,
	}
	if !d.RandomColors {
		in.DefaultColor = core.Some(d.Color)
	}
	for i, raw := range j.Color {
		c, err := animation.ParseRGB(fmt.Sprintf("color[%d]", i), raw)
		if err != nil {
			return in, err
		}
		in.Colors = append(in.Colors, c)
	}
	for i, raw := range j.TimeOffset {
		off, err := animation.ParseOptionalMillis(fmt.Sprintf("timeOffset[%d]", i), raw)
		if err != nil {
			return in, err
		}
		in.TimeOffsets = append(in.TimeOffsets, off.Or(0))
	}
	for i, raw := range j.ForcedPointTimeInterval {
		iv, err := animation.ParseOptionalMillis(fmt.Sprintf("forcedPointTimeInterval[%d]", i), raw)
		if err != nil {
			return in, err
		}
		in.ForcedPointIntervals = append(in.ForcedPointIntervals, iv)
	}
	for _, key := range j.TrackIcon {
		in.TrackIcons = append(in.TrackIcons, core.TrackIcon{Key: key, Name: key})
	}
	for _, path := range j.TrackIconFile {
		in.InputIcons = append(in.InputIcons, core.Some(path))
	}
	return in, nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func setInt(v *int, set func(int) *animation.Builder) {
	if v != nil {
		set(*v)
	}
}

func setFloat(v *float64, set func(float64) *animation.Builder) {
	if v != nil {
		set(*v)
	}
}

func setMillis(v *int64, set func(time.Duration) *animation.Builder) {
	if v != nil {
		set(millis(*v))
	}
}
