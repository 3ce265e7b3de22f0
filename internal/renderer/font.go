package renderer

import (
	"fmt"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/trackreel/trackreel/internal/animation"
)

// LoadFont returns the font source selected by f, falling back to the
// bundled Go Regular face when no path is set.
func LoadFont(f animation.Font) (*text.FontSource, error) {
	if f.Path == "" {
		return text.NewFontSource(goregular.TTF)
	}
	src, err := text.NewFontSourceFromFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", f.Path, err)
	}
	return src, nil
}
