package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// Syslog severities used by GELF.
const (
	gelfError   int32 = 3
	gelfWarning int32 = 4
	gelfInfo    int32 = 6
	gelfDebug   int32 = 7
)

// GelfWriter sends one GELF message. *gelf.Writer satisfies it.
type GelfWriter interface {
	WriteMessage(m *gelf.Message) error
}

// DialGelf opens a UDP GELF writer to address (host:port).
func DialGelf(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connect to graylog %s: %w", address, err)
	}
	w.Facility = InstrumentationName
	return w, nil
}

// GelfHandler is a slog.Handler that forwards records to Graylog. Attributes
// become GELF additional fields; groups are flattened with dots.
type GelfHandler struct {
	w      GelfWriter
	host   string
	level  slog.Leveler
	fields map[string]any
	prefix string
}

// NewGelfHandler creates a handler writing to w. An empty host falls back to
// the machine's hostname.
func NewGelfHandler(w GelfWriter, host string, level slog.Leveler) *GelfHandler {
	if host == "" {
		host, _ = os.Hostname()
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &GelfHandler{w: w, host: host, level: level, fields: map[string]any{}}
}

func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.fields)+r.NumAttrs())
	for k, v := range h.fields {
		extra[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(extra, h.prefix, a)
		return true
	})

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Facility: InstrumentationName,
		Extra:    extra,
	})
}

func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		flatten(next.fields, h.prefix, a)
	}
	return next
}

func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "."
	return next
}

func (h *GelfHandler) clone() *GelfHandler {
	fields := make(map[string]any, len(h.fields))
	for k, v := range h.fields {
		fields[k] = v
	}
	return &GelfHandler{w: h.w, host: h.host, level: h.level, fields: fields, prefix: h.prefix}
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool, slog.KindString:
		dst[prefix+a.Key] = v.Any()
	default:
		dst[prefix+a.Key] = v.String()
	}
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfError
	case l >= slog.LevelWarn:
		return gelfWarning
	case l >= slog.LevelInfo:
		return gelfInfo
	default:
		return gelfDebug
	}
}
