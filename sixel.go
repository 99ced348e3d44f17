package vtgfx

import "math"

// maxSixelDimension bounds both width and height of a decoded sixel image.
// maxSixelPixelBytes bounds the flat index buffer's total size (not the
// finished RGBA buffer, which is 4x larger).
const (
	maxSixelDimension  = 16384
	maxSixelPixelBytes = 256 * 1024 * 1024
)

// sixelTransparent is the palette index used for any pixel the stream never
// touches; finish() turns it into (0,0,0,0) rather than a palette lookup.
const sixelTransparent = 255

type sixelState byte

const (
	sixelNormal sixelState = iota
	sixelColor
	sixelRle
	sixelRasterAttr
)

// SixelImage is the finished product of a sixel decode: a straight RGBA8888
// buffer, row-major, width*height*4 bytes.
type SixelImage struct {
	ID     uint32
	Width  int
	Height int
	Data   []byte
}

// sixelDecoder is a streaming DCS-embedded sixel decoder. Bytes are fed one
// at a time via push; the decoder never needs to see the whole payload at
// once, matching how it arrives from DcsPut.
type sixelDecoder struct {
	state sixelState

	x, y          int
	width, height int
	pixels        []byte // palette index per pixel, sixelTransparent where unset
	palette       [256]paletteColor
	curColor      int

	params []int
	cur    int
	curSet bool

	// pendingRLE is the repeat count finalized by the most recent `!n`. It is
	// consumed by the next sixel-data byte handleNormal sees, whether that's
	// `!n`'s own terminator or a later byte reached through any number of
	// intervening non-data commands, mirroring the original decoder's
	// rle_count field.
	pendingRLE    int
	pendingRLESet bool
}

func newSixelDecoder() *sixelDecoder {
	return &sixelDecoder{palette: defaultSixelPalette()}
}

// push advances the decoder by one byte of sixel body (the payload between
// the introducing DCS and the terminating ST, including the parameters that
// precede the first '#'/'!'/'"' but excluding the DCS header itself).
func (d *sixelDecoder) push(b byte) {
	switch d.state {
	case sixelNormal:
		d.handleNormal(b)
	case sixelColor:
		d.handleColor(b)
	case sixelRle:
		d.handleRle(b)
	case sixelRasterAttr:
		d.handleRasterAttr(b)
	}
}

func (d *sixelDecoder) resetParams() {
	d.params = d.params[:0]
	d.cur = 0
	d.curSet = false
}

func (d *sixelDecoder) pushParam() {
	if d.curSet {
		d.params = append(d.params, d.cur)
	} else {
		d.params = append(d.params, 0)
	}
	d.cur = 0
	d.curSet = false
}

func (d *sixelDecoder) handleNormal(b byte) {
	switch {
	case b == '#':
		d.state = sixelColor
		d.resetParams()
	case b == '!':
		d.state = sixelRle
		d.resetParams()
	case b == '"':
		d.state = sixelRasterAttr
		d.resetParams()
	case b == '$':
		d.x = 0
	case b == '-':
		d.y += 6
		d.x = 0
	case b >= 0x3F && b <= 0x7E:
		count := 1
		if d.pendingRLESet {
			count = d.pendingRLE
			d.pendingRLESet = false
		}
		d.drawSixel(int(b-0x3F), count)
	}
}

func (d *sixelDecoder) handleColor(b byte) {
	switch {
	case b >= '0' && b <= '9':
		d.cur = d.cur*10 + int(b-'0')
		d.curSet = true
	case b == ';':
		d.pushParam()
	default:
		d.pushParam()
		d.parseColorCommand()
		d.state = sixelNormal
		d.handleNormal(b)
	}
}

// parseColorCommand implements `#Pc` (select) and `#Pc;Pu;Px;Py;Pz` (define),
// where Pu=1 selects HLS and Pu=2 (or anything else) selects RGB percentages.
func (d *sixelDecoder) parseColorCommand() {
	switch {
	case len(d.params) == 1:
		d.curColor = d.params[0] & 0xFF
	case len(d.params) >= 5:
		idx := d.params[0] & 0xFF
		pu, px, py, pz := d.params[1], d.params[2], d.params[3], d.params[4]
		var r, g, b uint8
		if pu == 1 {
			r, g, b = hlsToRGB(px, py, pz)
		} else {
			r, g, b = scalePercent(px), scalePercent(py), scalePercent(pz)
		}
		d.palette[idx] = paletteColor{R: r, G: g, B: b}
		d.curColor = idx
	}
}

func scalePercent(v int) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return uint8(v * 255 / 100)
}

func (d *sixelDecoder) handleRle(b byte) {
	if b >= '0' && b <= '9' {
		d.cur = d.cur*10 + int(b-'0')
		d.curSet = true
		return
	}
	count := d.cur
	if !d.curSet || count == 0 {
		count = 1
	}
	d.state = sixelNormal
	d.resetParams()
	// This count always supersedes whatever was previously pending: either
	// it's consumed immediately below (b is sixel data) or it replaces any
	// stale pending value until the next sixel-data byte consumes it.
	d.pendingRLE = count
	d.pendingRLESet = true
	d.handleNormal(b)
}

// handleRasterAttr implements `"Pan;Pad;Ph;Pv`; Ph/Pv preallocate the canvas
// when both are present and nonzero.
func (d *sixelDecoder) handleRasterAttr(b byte) {
	switch {
	case b >= '0' && b <= '9':
		d.cur = d.cur*10 + int(b-'0')
		d.curSet = true
	case b == ';':
		d.pushParam()
	default:
		d.pushParam()
		d.parseRasterAttr()
		d.state = sixelNormal
		d.handleNormal(b)
	}
}

func (d *sixelDecoder) parseRasterAttr() {
	if len(d.params) >= 4 {
		ph, pv := d.params[2], d.params[3]
		if ph > 0 && pv > 0 {
			d.ensureSize(ph, pv)
		}
	}
}

// drawSixel paints a 6-bit vertical column, repeated count times starting at
// the current cursor, and advances the cursor by count columns.
func (d *sixelDecoder) drawSixel(pattern, count int) {
	for i := 0; i < count; i++ {
		for bit := 0; bit < 6; bit++ {
			if pattern&(1<<uint(bit)) != 0 {
				d.setPixel(d.x, d.y+bit, d.curColor)
			}
		}
		d.x++
	}
}

func (d *sixelDecoder) setPixel(x, y, colorIdx int) {
	if x < 0 || y < 0 {
		return
	}
	d.ensureSize(x+1, y+1)
	if x >= d.width || y >= d.height {
		return
	}
	d.pixels[y*d.width+x] = byte(colorIdx)
}

// ensureSize grows the canvas to at least w x h, preserving existing pixel
// content, capped at maxSixelDimension per axis and maxSixelPixelBytes total.
func (d *sixelDecoder) ensureSize(w, h int) {
	if w > maxSixelDimension {
		w = maxSixelDimension
	}
	if h > maxSixelDimension {
		h = maxSixelDimension
	}
	if w <= d.width && h <= d.height {
		return
	}
	newW, newH := d.width, d.height
	if w > newW {
		newW = w
	}
	if h > newH {
		newH = h
	}
	if newW > 0 && newW*newH > maxSixelPixelBytes {
		newH = maxSixelPixelBytes / newW
	}
	if newW <= d.width && newH <= d.height {
		return
	}
	newPixels := make([]byte, newW*newH)
	for i := range newPixels {
		newPixels[i] = sixelTransparent
	}
	for y := 0; y < d.height; y++ {
		copy(newPixels[y*newW:y*newW+d.width], d.pixels[y*d.width:(y+1)*d.width])
	}
	d.pixels = newPixels
	d.width = newW
	d.height = newH
}

// finish resolves the accumulated palette indices into a straight RGBA
// buffer. Index 255 (masked in via `#Pc` & 0xFF, but no realistic stream
// selects it) becomes fully transparent black; every other index is looked
// up in the palette at full opacity.
func (d *sixelDecoder) finish(id uint32) (*SixelImage, error) {
	if d.width == 0 || d.height == 0 {
		return nil, errBadData("empty sixel image")
	}
	data := make([]byte, d.width*d.height*4)
	for i, idx := range d.pixels {
		o := i * 4
		if idx == sixelTransparent {
			continue // already zero
		}
		c := d.palette[idx]
		data[o], data[o+1], data[o+2], data[o+3] = c.R, c.G, c.B, 255
	}
	return &SixelImage{ID: id, Width: d.width, Height: d.height, Data: data}, nil
}

// hlsToRGB converts hue (0-360), lightness (0-100), saturation (0-100) to
// 8-bit RGB using the standard chroma/x/m construction.
func hlsToRGB(h, l, s int) (uint8, uint8, uint8) {
	hf := math.Mod(float64(h), 360)
	if hf < 0 {
		hf += 360
	}
	lf := clampUnit(float64(l) / 100)
	sf := clampUnit(float64(s) / 100)

	c := (1 - math.Abs(2*lf-1)) * sf
	x := c * (1 - math.Abs(math.Mod(hf/60, 2)-1))
	m := lf - c/2

	var r1, g1, b1 float64
	switch {
	case hf < 60:
		r1, g1, b1 = c, x, 0
	case hf < 120:
		r1, g1, b1 = x, c, 0
	case hf < 180:
		r1, g1, b1 = 0, c, x
	case hf < 240:
		r1, g1, b1 = 0, x, c
	case hf < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	return uint8((r1 + m) * 255), uint8((g1 + m) * 255), uint8((b1 + m) * 255)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
