package gridref

import "image/color"

// CellFlags is a bitmask of cell rendering attributes.
type CellFlags uint16

const (
	CellFlagBold CellFlags = 1 << iota
	CellFlagDim
	CellFlagItalic
	CellFlagUnderline
	CellFlagReverse
	CellFlagWideChar
	CellFlagWideCharSpacer
)

// CellImage is the reference a Grid stores in each cell a placed image
// covers: enough to look up the backing TerminalImage and slice the right
// UV rectangle out of it at render time.
type CellImage struct {
	PlacementID uint32
	ImageID     uint32
	U0, V0      float32 // top-left of this cell's slice, normalized 0..1
	U1, V1      float32 // bottom-right of this cell's slice, normalized 0..1
}

// Cell stores the character, colors, and formatting attributes for one grid
// position. Wide characters (2 columns) use a spacer cell in the second
// position.
type Cell struct {
	Char  rune
	Fg    color.Color
	Bg    color.Color
	Flags CellFlags
	Image *CellImage
}

// NewCell returns a cell initialized to a blank space with default colors.
func NewCell() Cell {
	return Cell{Char: ' ', Fg: &NamedColor{}, Bg: &NamedColor{Background: true}}
}

// HasFlag returns true if the specified flag is set.
func (c *Cell) HasFlag(flag CellFlags) bool { return c.Flags&flag != 0 }

// HasImage returns true if this cell has an image reference.
func (c Cell) HasImage() bool { return c.Image != nil }

// ResolvedFg and ResolvedBg resolve this cell's colors against the default
// palette, for a renderer that wants concrete RGBA rather than the
// indexed/named placeholders stored during emulation.
func (c *Cell) ResolvedFg() color.RGBA { return resolveColor(c.Fg, true) }
func (c *Cell) ResolvedBg() color.RGBA { return resolveColor(c.Bg, false) }
