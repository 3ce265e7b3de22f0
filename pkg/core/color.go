// pkg/core/color.go
package core

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a color string cannot be decoded.
var ErrInvalidColor = errors.New("invalid color")

// Color is a non-premultiplied 0xAARRGGBB value. It implements color.Color.
type Color uint32

// Common colors.
const (
	Transparent Color = 0x00000000
	Black       Color = 0xFF000000
	White       Color = 0xFFFFFFFF
)

// ARGB builds a Color from its channels.
func ARGB(a, r, g, b uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) A() uint8 { return uint8(c >> 24) }
func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// NRGBA narrows the color to the standard library's non-premultiplied form.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// WithAlpha returns c with its alpha channel replaced.
func (c Color) WithAlpha(a uint8) Color {
	return Color(uint32(c)&0x00FFFFFF | uint32(a)<<24)
}

// Mix linearly interpolates every channel from c (t=0) to o (t=1).
func (c Color) Mix(o Color, t float64) Color {
	t = math.Max(0, math.Min(1, t))
	ch := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return ARGB(ch(c.A(), o.A()), ch(c.R(), o.R()), ch(c.G(), o.G()), ch(c.B(), o.B()))
}

func (c Color) String() string {
	return fmt.Sprintf("#%08x", uint32(c))
}

// HSB converts hue, saturation and brightness to an opaque color using the
// same single-precision arithmetic as java.awt.Color.HSBtoRGB, so generated
// palettes are stable across implementations.
func HSB(hue, saturation, brightness float32) Color {
	var r, g, b int
	if saturation == 0 {
		v := int(brightness*255 + 0.5)
		r, g, b = v, v, v
	} else {
		h := (hue - float32(math.Floor(float64(hue)))) * 6
		f := h - float32(math.Floor(float64(h)))
		p := brightness * (1 - saturation)
		q := brightness * (1 - saturation*f)
		t := brightness * (1 - saturation*(1-f))
		conv := func(v float32) int { return int(v*255 + 0.5) }
		switch int(h) {
		case 0:
			r, g, b = conv(brightness), conv(t), conv(p)
		case 1:
			r, g, b = conv(q), conv(brightness), conv(p)
		case 2:
			r, g, b = conv(p), conv(brightness), conv(t)
		case 3:
			r, g, b = conv(p), conv(q), conv(brightness)
		case 4:
			r, g, b = conv(t), conv(p), conv(brightness)
		case 5:
			r, g, b = conv(brightness), conv(p), conv(q)
		}
	}
	return ARGB(0xFF, uint8(r), uint8(g), uint8(b))
}

// Hue returns the HSB hue of c in [0,1).
func (c Color) Hue() float64 {
	r, g, b := float64(c.R()), float64(c.G()), float64(c.B())
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	if maxC == minC {
		return 0
	}
	d := maxC - minC
	var h float64
	switch maxC {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h /= 6
	if h < 0 {
		h++
	}
	return h
}

// decodeNumber accepts decimal, 0x, # and leading-zero octal notations.
func decodeNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if strings.HasPrefix(s, "#") {
		s = "0x" + s[1:]
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ParseARGB decodes a 32-bit ARGB number. Values above 0x7fffffff keep their
// low 32 bits, so "0xff336699" is an opaque color and "0x336699" has zero
// alpha.
func ParseARGB(s string) (Color, error) {
	v, err := decodeNumber(s)
	if err != nil {
		return 0, err
	}
	return Color(uint32(v)), nil
}

// ParseRGB decodes a 24-bit RGB number into an opaque color.
func ParseRGB(s string) (Color, error) {
	v, err := decodeNumber(s)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidColor, s)
	}
	return Color(uint32(v)&0x00FFFFFF | 0xFF000000), nil
}
