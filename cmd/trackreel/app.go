package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/trackreel/trackreel/internal/compositor"
	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/gpxinput"
	"github.com/trackreel/trackreel/internal/influx"
	"github.com/trackreel/trackreel/internal/job"
	"github.com/trackreel/trackreel/internal/logging"
	"github.com/trackreel/trackreel/internal/otel"
	"github.com/trackreel/trackreel/internal/photo"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/internal/renderer/plugins"
	"github.com/trackreel/trackreel/internal/sink"
	"github.com/trackreel/trackreel/internal/storage"
	"github.com/trackreel/trackreel/internal/tilecache"
	"github.com/trackreel/trackreel/internal/tilesource"
	"github.com/trackreel/trackreel/pkg/core"
)

// app owns the process-wide resources of one invocation.
type app struct {
	sessionStart time.Time
	logFile      *os.File
	slogMgr      *logging.SlogManager
	log          *slog.Logger
	zlog         zerolog.Logger
	provider     *otel.Provider
	gelf         io.Closer
}

func newApp(stdout io.Writer) (*app, error) {
	a := &app{sessionStart: time.Now()}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, AppName, a.sessionStart)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = f

	level := config.GetString("logLevel")

	otelCfg := config.GetOTelConfig()
	a.provider, err = otel.New(otel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		BatchTimeout:   otelCfg.BatchTimeout,
		MetricInterval: otelCfg.MetricInterval,
		LogWriter:      f,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize OTel: %w", err)
	}

	var extra []slog.Handler
	var gelfErr error
	if config.GetBool("graylog.enabled") {
		w, err := logging.DialGelf(config.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			a.gelf = w
			extra = append(extra, logging.NewGelfHandler(w, "", logging.ParseLevel(level)))
		}
	}

	a.slogMgr = logging.NewSlogManager()
	a.slogMgr.Setup(io.MultiWriter(f, stdout), level, a.provider.LoggerProvider(), extra...)
	a.log = a.slogMgr.Logger()
	a.zlog = newZerolog(f, level)

	if gelfErr != nil {
		a.log.Warn("Graylog disabled", "error", gelfErr)
	}
	a.log.Info("trackreel started",
		"logFile", logPath,
		"otel", a.provider.Enabled(),
		"workers", config.GetRenderConfig().Workers)
	return a, nil
}

// newZerolog builds the logger handed to the storage and metrics layers.
func newZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).Level(lvl).With().Timestamp().Logger()
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.provider.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
	}
	if a.gelf != nil {
		a.gelf.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *app) render(ctx context.Context, j *job.Job) error {
	defaults, err := trackDefaults()
	if err != nil {
		return err
	}
	cfg, err := j.Configuration(defaults)
	if err != nil {
		return err
	}

	tracks, err := gpxinput.LoadAll(ctx, cfg)
	if err != nil {
		return err
	}

	var photos []core.Photo
	if dir := cfg.PhotoDirectory(); dir != "" {
		photos, err = photo.Load(ctx, dir, a.log)
		if err != nil {
			return err
		}
		a.log.Info("photos loaded", "dir", dir, "count", len(photos))
	}

	reg, err := renderer.NewRegistry(a.log)
	if err != nil {
		return err
	}
	plugins.Register(reg)

	deps := compositor.Deps{
		Registry: reg,
		Photos:   photos,
		Logger:   a.log,
		Workers:  config.GetRenderConfig().Workers,
	}

	var tileStats func() tilecache.Stats
	if cfg.TMSURLTemplate() != "" {
		tiles, closeTiles, err := a.openTileCache()
		if err != nil {
			return err
		}
		defer closeTiles()
		deps.Tiles = tiles
		tileStats = tiles.Stats
	}

	progress := newProgress(a.log)
	deps.Observer = progress
	if icfg := config.GetInfluxConfig(); icfg.Enabled {
		backup := filepath.Join(config.GetString("logsDir"),
			fmt.Sprintf("render_metrics.%s.lp.gz", a.sessionStart.Format("20060102_150405")))
		m := influx.NewManager(a.zlog, icfg, backup)
		if err := m.Connect(ctx); err != nil {
			a.log.Warn("Render metrics disabled", "error", err)
		} else {
			defer m.Close()
			deps.Observer = observers{progress, influx.NewRenderObserver(m, jobName(cfg.Output()), tileStats)}
		}
	}

	c, err := compositor.New(ctx, cfg, tracks, deps)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			a.log.Warn("Plugin cleanup failed", "error", cerr)
		}
	}()
	progress.total = c.FrameCount()

	out, err := sink.NewPNGSequence(cfg.Output())
	if err != nil {
		return err
	}

	a.log.Info("rendering",
		"output", cfg.Output(),
		"tracks", len(c.Tracks()),
		"frames", c.FrameCount(),
		"plugins", c.Plugins())
	res, err := c.Render(ctx, out)

	if ferr := a.provider.Flush(context.Background()); ferr != nil {
		a.log.Warn("OTel flush failed", "error", ferr)
	}
	if err != nil {
		return err
	}
	a.log.Info("render finished", "frames", res.Frames, "duration", res.Duration)
	return nil
}

// openTileCache opens the configured store and wraps it in a tile cache
// backed by the HTTP tile source.
func (a *app) openTileCache() (*tilecache.Cache, func(), error) {
	tcCfg := config.GetTileCacheConfig()
	store, err := storage.NewBackend(tcCfg, a.zlog)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(); err != nil {
		return nil, nil, fmt.Errorf("open tile cache: %w", err)
	}

	src := tilesource.New(config.GetTileSourceConfig())
	tiles, err := tilecache.New(store, src.Fetch, tilecache.Options{
		TTL:            tcCfg.TTL,
		SweepInterval:  tcCfg.SweepInterval,
		DecodedEntries: tcCfg.MemoryEntries,
		Logger:         a.log,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	tiles.Start()

	a.log.Info("tile cache ready", "backend", tcCfg.Backend, "ttl", tcCfg.TTL)
	return tiles, func() {
		tiles.Close()
		if err := store.Close(); err != nil {
			a.log.Warn("closing tile store", "error", err)
		}
	}, nil
}

func trackDefaults() (job.Defaults, error) {
	td := config.GetTrackDefaults()
	d := job.Defaults{RandomColors: td.ColorRandom}
	if td.ColorRandom {
		return d, nil
	}
	c, err := core.ParseRGB(td.ColorDefault)
	if err != nil {
		return d, fmt.Errorf("track.colorDefault: %w", err)
	}
	d.Color = c
	return d, nil
}

// jobName tags metrics with the output directory's base name.
func jobName(output string) string {
	return filepath.Base(filepath.Clean(output))
}
