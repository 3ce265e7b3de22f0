package plugins

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gg"
	"golang.org/x/sync/errgroup"

	"github.com/trackreel/trackreel/internal/geo"
	"github.com/trackreel/trackreel/internal/renderer"
	"github.com/trackreel/trackreel/internal/tilecache"
)

// tileFetchers bounds concurrent tile lookups of one background pass.
const tileFetchers = 8

type background struct {
	renderer.Base
}

func newBackground(env renderer.Env) (renderer.Plugin, error) {
	return background{Base: renderer.Base{Config: env.Config}}, nil
}

func (background) Order() int { return OrderBackground }

func (p background) RenderBackground(canvas *gg.Context) error {
	canvas.ClearWithColor(gg.FromColor(p.Config.BackgroundColor()))
	return nil
}

// tileMap draws the map tiles covering the canvas.
type tileMap struct {
	renderer.Base
	ctx    context.Context
	tiles  renderer.TileImager
	proj   *geo.Projector
	source string
	logger *slog.Logger
}

func newTileMap(env renderer.Env) (renderer.Plugin, error) {
	cfg := env.Config
	if cfg.TMSURLTemplate() == "" || cfg.BackgroundMapVisibility() <= 0 {
		return nil, renderer.ErrSkip
	}
	if env.Tiles == nil {
		return nil, errors.New("no tile cache configured")
	}
	ctx := env.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return &tileMap{
		Base:   renderer.Base{Config: cfg},
		ctx:    ctx,
		tiles:  env.Tiles,
		proj:   env.Projector,
		source: cfg.TMSURLTemplate(),
		logger: env.Logger,
	}, nil
}

func (*tileMap) Order() int { return OrderTileMap }

// RenderBackground fetches tiles concurrently and draws them in row order.
// A tile that cannot be fetched or decoded is left out.
func (p *tileMap) RenderBackground(canvas *gg.Context) error {
	tiles := p.proj.Tiles()
	images := make([]image.Image, len(tiles))

	g, ctx := errgroup.WithContext(p.ctx)
	g.SetLimit(tileFetchers)
	for i, t := range tiles {
		g.Go(func() error {
			key := tilecache.Key{Zoom: t.Zoom, X: t.X, Y: t.Y, Source: p.source}
			img, err := p.tiles.Image(ctx, key)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logWarn(p.logger, "skipping map tile", "tile", key.String(), "error", err)
				return nil
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch tiles: %w", err)
	}

	opacity := p.Config.BackgroundMapVisibility()
	for i, t := range tiles {
		if images[i] == nil {
			continue
		}
		canvas.DrawImageEx(gg.ImageBufFromImage(images[i]), gg.DrawImageOptions{
			X:             t.DstX,
			Y:             t.DstY,
			DstWidth:      geo.TileSize,
			DstHeight:     geo.TileSize,
			Opacity:       opacity,
			Interpolation: gg.InterpBilinear,
		})
	}
	return nil
}

// preDraw draws every whole track in a neutral color before the animation
// starts.
type preDraw struct {
	renderer.Base
	env renderer.Env
}

func newPreDraw(env renderer.Env) (renderer.Plugin, error) {
	if !env.Config.PreDrawTrack() || len(env.Tracks) == 0 {
		return nil, renderer.ErrSkip
	}
	return preDraw{Base: renderer.Base{Config: env.Config}, env: env}, nil
}

func (preDraw) Order() int { return OrderPreDraw }

func (p preDraw) RenderBackground(canvas *gg.Context) error {
	for _, t := range p.env.Tracks {
		if err := strokePath(canvas, p.env.Projector, t.Points, p.Config.PreDrawTrackColor(), t.Config.LineWidth()); err != nil {
			return fmt.Errorf("track %d: %w", t.Index, err)
		}
	}
	return nil
}
