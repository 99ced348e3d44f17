package vtgfx

// paletteColor is a palette slot: 8-bit RGB, always fully opaque until
// finish() converts the sentinel index to transparent (see sixel.go).
type paletteColor struct {
	R, G, B uint8
}

// defaultSixelPalette returns the VT340 16-color table in slots 0..15 with
// the remaining 240 slots left black, per spec §4.3.
func defaultSixelPalette() [256]paletteColor {
	var p [256]paletteColor
	vt340 := [16]paletteColor{
		{0, 0, 0},       // 0 black
		{51, 51, 204},   // 1 blue
		{204, 33, 33},   // 2 red
		{51, 204, 51},   // 3 green
		{204, 51, 204},  // 4 magenta
		{51, 204, 204},  // 5 cyan
		{204, 204, 51},  // 6 yellow
		{135, 135, 135}, // 7 gray 50%
		{68, 68, 68},    // 8 gray 25%
		{84, 84, 255},   // 9 light blue
		{255, 84, 84},   // 10 light red
		{84, 255, 84},   // 11 light green
		{255, 84, 255},  // 12 light magenta
		{84, 255, 255},  // 13 light cyan
		{255, 255, 84},  // 14 light yellow
		{204, 204, 204}, // 15 gray 75%
	}
	copy(p[:16], vt340[:])
	return p
}
