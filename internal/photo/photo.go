// Package photo loads the photos shown over an animation.
package photo

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/errgroup"

	"github.com/trackreel/trackreel/pkg/core"
)

const maxDecoders = 4

var extensions = []string{".jpg", ".jpeg", ".png"}

// Load decodes every JPEG and PNG file in dir. The capture time comes from
// the EXIF DateTime tag, or the file's modification time when the tag is
// missing. Unreadable files are logged and skipped. The result is sorted by
// capture time. An empty dir yields no photos.
func Load(ctx context.Context, dir string, log *slog.Logger) ([]core.Photo, error) {
	if dir == "" {
		return nil, nil
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read photo directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	loaded := make([]*core.Photo, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxDecoders)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := Read(path)
			if err != nil {
				log.Warn("photo skipped", "path", path, "error", err)
				return nil
			}
			loaded[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var photos []core.Photo
	for _, p := range loaded {
		if p != nil {
			photos = append(photos, *p)
		}
	}
	slices.SortStableFunc(photos, func(a, b core.Photo) int {
		return a.Time.Compare(b.Time)
	})
	log.Debug("photos loaded", "dir", dir, "count", len(photos))
	return photos, nil
}

// Read decodes one photo.
func Read(path string) (core.Photo, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Photo{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return core.Photo{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return core.Photo{}, err
	}
	at, err := CaptureTime(f)
	if err != nil {
		info, statErr := f.Stat()
		if statErr != nil {
			return core.Photo{}, statErr
		}
		at = info.ModTime()
	}
	return core.Photo{Time: at, Name: filepath.Base(path), Image: img}, nil
}

// CaptureTime reads the EXIF DateTime of an image.
func CaptureTime(f *os.File) (time.Time, error) {
	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}
	return x.DateTime()
}
