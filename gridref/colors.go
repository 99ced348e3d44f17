// Package gridref is a minimal character-grid reference implementation of
// vtgfx.GridMutator, for wiring a Terminal end to end rather than for
// production rendering.
package gridref

import "image/color"

// DefaultPalette is the standard 256-color palette: 16 named colors (0-15), 216 color cube (16-231), 24 grayscale (232-255).
var DefaultPalette = [256]color.RGBA{
	// Standard colors (0-7)
	{0, 0, 0, 255},       // Black
	{205, 49, 49, 255},   // Red
	{13, 188, 121, 255},  // Green
	{229, 229, 16, 255},  // Yellow
	{36, 114, 200, 255},  // Blue
	{188, 63, 188, 255},  // Magenta
	{17, 168, 205, 255},  // Cyan
	{229, 229, 229, 255}, // White

	// Bright colors (8-15)
	{102, 102, 102, 255}, // Bright Black
	{241, 76, 76, 255},   // Bright Red
	{35, 209, 139, 255},  // Bright Green
	{245, 245, 67, 255},  // Bright Yellow
	{59, 142, 234, 255},  // Bright Blue
	{214, 112, 214, 255}, // Bright Magenta
	{41, 184, 219, 255},  // Bright Cyan
	{255, 255, 255, 255}, // Bright White

	// 216 colors (16-231) and grayscale (232-255) are generated in init.
}

func init() {
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				DefaultPalette[i] = color.RGBA{R: uint8(r * 51), G: uint8(g * 51), B: uint8(b * 51), A: 255}
				i++
			}
		}
	}
	for j := 0; j < 24; j++ {
		gray := uint8(8 + j*10)
		DefaultPalette[232+j] = color.RGBA{R: gray, G: gray, B: gray, A: 255}
	}
}

// DefaultForeground is the default text color (light gray).
var DefaultForeground = color.RGBA{R: 229, G: 229, B: 229, A: 255}

// DefaultBackground is the default background color (black).
var DefaultBackground = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// IndexedColor references a color by palette index (0-255). Resolution to
// actual RGBA happens at render time using DefaultPalette.
type IndexedColor struct {
	Index int
}

func (c *IndexedColor) RGBA() (r, g, b, a uint32) { return 0, 0, 0, 0xffff }

// NamedColor references the default foreground/background rather than a
// fixed RGBA value.
type NamedColor struct {
	Background bool
}

func (c *NamedColor) RGBA() (r, g, b, a uint32) { return 0, 0, 0, 0xffff }

// resolveColor converts a color.Color to a concrete RGBA, resolving
// IndexedColor and NamedColor placeholders against the default palette.
func resolveColor(c color.Color, fg bool) color.RGBA {
	if c == nil {
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	}
	switch v := c.(type) {
	case color.RGBA:
		return v
	case *IndexedColor:
		if v.Index >= 0 && v.Index < 256 {
			return DefaultPalette[v.Index]
		}
	case *NamedColor:
		if v.Background {
			return DefaultBackground
		}
		return DefaultForeground
	}
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
