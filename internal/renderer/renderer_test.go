package renderer

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/internal/animation"
	"github.com/trackreel/trackreel/internal/track"
)

// recorder appends its name to a shared log on every draw.
type recorder struct {
	Base
	name  string
	order int
	log   *[]string
	fail  error
}

func (r *recorder) Order() int { return r.order }

func (r *recorder) RenderBackground(*gg.Context) error {
	*r.log = append(*r.log, "bg:"+r.name)
	return r.fail
}

func (r *recorder) RenderFrame(f *Frame, _ *gg.Context, _ *animation.Configuration) error {
	*r.log = append(*r.log, "frame:"+r.name)
	return r.fail
}

func factory(name string, order int, log *[]string) Factory {
	return func(Env) (Plugin, error) {
		return &recorder{name: name, order: order, log: log}, nil
	}
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	return reg
}

func TestBase_DefaultOrderRunsLast(t *testing.T) {
	assert.Equal(t, math.MaxInt, Base{}.Order())
	assert.NoError(t, Base{}.RenderBackground(nil))
	assert.NoError(t, Base{}.RenderFrame(nil, nil, nil))
}

func TestPipeline_SortsByOrderStable(t *testing.T) {
	var log []string
	reg := newRegistry(t)
	reg.Register("last", func(Env) (Plugin, error) { return Base{}, nil })
	reg.Register("c", factory("c", 300, &log))
	reg.Register("a", factory("a", 100, &log))
	reg.Register("b1", factory("b1", 200, &log))
	reg.Register("b2", factory("b2", 200, &log))

	p := NewPipeline(reg, Env{}, nil)
	assert.Equal(t, []string{"a", "b1", "b2", "c", "last"}, p.Names())

	canvas := gg.NewContext(4, 4)
	require.NoError(t, p.Background(canvas))
	require.NoError(t, p.Frame(&Frame{Index: 0}, canvas, nil))
	assert.Equal(t, []string{
		"bg:a", "bg:b1", "bg:b2", "bg:c",
		"frame:a", "frame:b1", "frame:b2", "frame:c",
	}, log)
}

func TestPipeline_WithOrderOverrides(t *testing.T) {
	var log []string
	reg := newRegistry(t)
	reg.Register("a", factory("a", 100, &log))
	reg.Register("b", factory("b", 200, &log), WithOrder(50))

	p := NewPipeline(reg, Env{}, nil)
	assert.Equal(t, []string{"b", "a"}, p.Names())
}

func TestPipeline_DropsFailingFactory(t *testing.T) {
	var log []string
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	boom := errors.New("logo unreadable")
	reg := newRegistry(t)
	reg.Register("ok", factory("ok", 1, &log))
	reg.Register("broken", func(Env) (Plugin, error) { return nil, boom })
	reg.Register("nil", func(Env) (Plugin, error) { return nil, nil })
	reg.Register("skipped", func(Env) (Plugin, error) { return nil, ErrSkip })

	p := NewPipeline(reg, Env{}, logger)
	assert.Equal(t, []string{"ok"}, p.Names())

	require.Len(t, p.Dropped(), 2)
	var ie *PluginInitError
	require.ErrorAs(t, p.Dropped()[0], &ie)
	assert.Equal(t, "broken", ie.Plugin)
	assert.ErrorIs(t, ie, boom)
	assert.Contains(t, buf.String(), "plugin dropped")
	assert.NotContains(t, buf.String(), "skipped")
}

func TestPipeline_RenderErrorsAreWrapped(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	reg := newRegistry(t)
	reg.Register("first", factory("first", 1, &log))
	reg.Register("bad", func(Env) (Plugin, error) {
		return &recorder{name: "bad", order: 2, log: &log, fail: boom}, nil
	})
	reg.Register("never", factory("never", 3, &log))

	p := NewPipeline(reg, Env{}, nil)
	canvas := gg.NewContext(4, 4)

	err := p.Background(canvas)
	var re *PluginRenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "bad", re.Plugin)
	assert.Equal(t, -1, re.Frame)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"bg:first", "bg:bad"}, log)

	err = p.Frame(&Frame{Index: 7}, canvas, nil)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 7, re.Frame)
	assert.Contains(t, err.Error(), "frame 7")
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	var log []string
	reg := newRegistry(t)
	reg.Register("a", factory("a", 1, &log))
	reg.Register("b", factory("b", 1, &log))
	reg.Register("a", factory("a2", 1, &log))

	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("zzz"))
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	p := NewPipeline(reg, Env{}, nil)
	require.NoError(t, p.Background(gg.NewContext(2, 2)))
	assert.Equal(t, []string{"bg:a2", "bg:b"}, log)
}

func TestRegistry_LoggedOption(t *testing.T) {
	var log []string
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(logger)
	require.NoError(t, err)
	reg.Register("chatty", factory("chatty", 1, &log), Logged())

	p := NewPipeline(reg, Env{}, nil)
	require.NoError(t, p.Frame(&Frame{Index: 3}, gg.NewContext(2, 2), nil))

	out := buf.String()
	assert.Contains(t, out, "rendering frame")
	assert.Contains(t, out, "frame complete")
	assert.Contains(t, out, "plugin=chatty")
	assert.Contains(t, out, "frame=3")
}

// closingRecorder counts Close calls.
type closingRecorder struct {
	recorder
	closed int
	fail   error
}

func (r *closingRecorder) Close() error {
	r.closed++
	return r.fail
}

func TestPipeline_CloseReachesWrappedPlugins(t *testing.T) {
	var log []string
	logger := slog.New(slog.DiscardHandler)
	reg, err := NewRegistry(logger)
	require.NoError(t, err)

	plain := &closingRecorder{recorder: recorder{name: "plain", order: 1, log: &log}}
	wrapped := &closingRecorder{recorder: recorder{name: "wrapped", order: 2, log: &log}}
	broken := &closingRecorder{recorder: recorder{name: "broken", order: 3, log: &log}, fail: errors.New("busy")}
	reg.Register("plain", func(Env) (Plugin, error) { return plain, nil })
	reg.Register("wrapped", func(Env) (Plugin, error) { return wrapped, nil }, WithOrder(5), Logged())
	reg.Register("broken", func(Env) (Plugin, error) { return broken, nil })
	reg.Register("other", factory("other", 4, &log))

	p := NewPipeline(reg, Env{}, nil)
	err = p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close plugin broken")
	assert.Equal(t, 1, plain.closed)
	assert.Equal(t, 1, wrapped.closed)
	assert.Equal(t, 1, broken.closed)
}

func TestFrame_Active(t *testing.T) {
	f := &Frame{Positions: []track.Position{
		{Track: 0, State: track.Active},
		{Track: 1, State: track.NotStarted},
		{Track: 2, State: track.Finished},
	}}
	active := f.Active()
	require.Len(t, active, 2)
	assert.Equal(t, 0, active[0].Track)
	assert.Equal(t, 2, active[1].Track)
}

func TestLoadFont(t *testing.T) {
	src, err := LoadFont(animation.Font{Size: 12})
	require.NoError(t, err)
	assert.NotNil(t, src)

	_, err = LoadFont(animation.Font{Path: "/nonexistent/font.ttf", Size: 12})
	assert.Error(t, err)
}
