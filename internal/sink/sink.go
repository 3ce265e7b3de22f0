// Package sink receives rendered frames in ascending index order.
package sink

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
)

// Sink accepts one frame at a time. Frames arrive in ascending index order
// and are not reused by the caller.
type Sink interface {
	WriteFrame(index int, img image.Image) error
}

// Func adapts a function to Sink.
type Func func(index int, img image.Image) error

func (f Func) WriteFrame(index int, img image.Image) error {
	return f(index, img)
}

// PNGSequence writes every frame to Dir as frame-000001.png, frame-000002.png
// and so on. Numbering starts at 1.
type PNGSequence struct {
	Dir     string
	Encoder png.Encoder
}

// NewPNGSequence creates dir if needed.
func NewPNGSequence(dir string) (*PNGSequence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	return &PNGSequence{Dir: dir, Encoder: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// FileName returns the file name of frame index.
func FileName(index int) string {
	return fmt.Sprintf("frame-%06d.png", index+1)
}

func (s *PNGSequence) WriteFrame(index int, img image.Image) error {
	path := filepath.Join(s.Dir, FileName(index))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Encoder.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Collect keeps every frame in memory.
type Collect struct {
	mu      sync.Mutex
	Indices []int
	Frames  []image.Image
}

func (c *Collect) WriteFrame(index int, img image.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Indices = append(c.Indices, index)
	c.Frames = append(c.Frames, img)
	return nil
}
