package vtgfx

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxKittyImageBytes bounds the accumulated, base64-decoded payload of a
// single Kitty transmission (spec §6). Further bytes are dropped, not
// buffered, once the cap is hit.
const maxKittyImageBytes = 256 * 1024 * 1024

// KittyAction is the `a=` key of a Kitty graphics command.
type KittyAction byte

const (
	KittyActionTransmit        KittyAction = 't'
	KittyActionTransmitDisplay KittyAction = 'T'
	KittyActionQuery           KittyAction = 'q'
	KittyActionDisplay         KittyAction = 'p'
	KittyActionDelete          KittyAction = 'd'
	KittyActionFrame           KittyAction = 'f'
	KittyActionAnimate         KittyAction = 'a'
	KittyActionCompose         KittyAction = 'c'
)

// KittyTransmission is the `t=` key: where the payload actually lives.
type KittyTransmission byte

const (
	KittyTransmissionDirect KittyTransmission = 'd'
	KittyTransmissionFile   KittyTransmission = 'f'
	KittyTransmissionTemp   KittyTransmission = 't'
	KittyTransmissionShared KittyTransmission = 's'
)

// KittyFormat is the `f=` key: how the resolved raw bytes are laid out.
type KittyFormat int

const (
	KittyFormatRGB  KittyFormat = 24
	KittyFormatRGBA KittyFormat = 32
	KittyFormatPNG  KittyFormat = 100
)

// kittyParams is every key the Kitty wire grammar defines, parsed once per
// chunk (but only `m` is re-read on continuation chunks, per spec §6.2).
type kittyParams struct {
	action       KittyAction
	transmission KittyTransmission
	format       KittyFormat
	compression  byte // 'z' or 0
	imageID      uint32
	imageNumber  uint32
	placementID  uint32
	width        int
	height       int
	size         int
	offset       int
	more         bool
	srcX, srcY   int
	srcW, srcH   int
	cols, rows   int
	cellOffX     int
	cellOffY     int
	zIndex       int
	noCursorMove bool
	deleteSpec   byte
	quiet        int

	// The following are multi-purpose: which field applies depends on the
	// action this command carries, resolved by the facade rather than here.
	frameNumber int // `r=`: Frame's own frame number, or Compose's dst frame
	srcFrame    int // `c=`: Compose's src frame
	gap         int // `z=`: Frame's gap in milliseconds before the next frame

	animState   int // `s=`: Animate's state, 1 stopped / 2 loading / 3 running
	currFrame   int // `c=`: Animate's target frame, 1-based on the wire
	loopCount   int // `v=`: Animate's loop count, 0 meaning infinite
	composeMode int // `C=`: Compose's blend mode, 1 overwrite else alpha blend
}

// KittyDecoder assembles one Kitty transmission across possibly many
// continuation chunks (`m=1` ... `m=0`). One KittyDecoder lives for the
// whole transmission; Process is called once per chunk, i.e. once per APC
// payload that begins with 'G'.
type KittyDecoder struct {
	params      kittyParams
	firstChunk  bool
	dataBuffer  []byte
	overflowed  bool
}

func newKittyDecoder() *KittyDecoder {
	return &KittyDecoder{firstChunk: true}
}

// Process consumes one `G...` APC chunk (the payload after the leading 'G'
// has already been stripped by the caller). On the first chunk every key is
// parsed; on continuation chunks only `m=` is re-read, matching the real
// protocol's allowance for client-side streaming.
func (d *KittyDecoder) Process(chunk []byte) error {
	semi := bytes.IndexByte(chunk, ';')
	var keys, payload []byte
	if semi < 0 {
		keys, payload = chunk, nil
	} else {
		keys, payload = chunk[:semi], chunk[semi+1:]
	}

	if d.firstChunk {
		if err := d.params.parse(keys); err != nil {
			return err
		}
		d.firstChunk = false
	} else {
		d.params.more = parseContinuationMore(keys)
	}

	decoded, err := decodeBase64Tolerant(payload)
	if err != nil {
		return errBadData("invalid base64 payload: %v", err)
	}
	if !d.overflowed {
		if len(d.dataBuffer)+len(decoded) > maxKittyImageBytes {
			room := maxKittyImageBytes - len(d.dataBuffer)
			if room > 0 {
				d.dataBuffer = append(d.dataBuffer, decoded[:room]...)
			}
			d.overflowed = true
		} else {
			d.dataBuffer = append(d.dataBuffer, decoded...)
		}
	}
	return nil
}

// Done reports whether the transmission is complete: either there was never
// an `m=` continuation flag, or the last chunk cleared it.
func (d *KittyDecoder) Done() bool {
	return !d.params.more
}

// Finish resolves the transmission medium, applies decompression, and
// decodes the raw bytes into a TerminalImage. allowRemote gates File/Temp/
// Shared transmissions per spec §6 (local-only by default).
func (d *KittyDecoder) Finish(id uint32, allowRemote bool) (*TerminalImage, error) {
	raw, err := d.resolveRawBytes(allowRemote)
	if err != nil {
		return nil, err
	}
	if d.params.compression == 'z' {
		raw, err = zlibInflate(raw)
		if err != nil {
			return nil, errBadData("zlib inflate failed: %v", err)
		}
	}

	width, height, pixels, err := decodeByFormat(d.params.format, raw, d.params.width, d.params.height)
	if err != nil {
		return nil, err
	}

	return &TerminalImage{
		ID:     id,
		Width:  width,
		Height: height,
		Data:   pixels,
	}, nil
}

func (d *KittyDecoder) resolveRawBytes(allowRemote bool) ([]byte, error) {
	switch d.params.transmission {
	case KittyTransmissionDirect, 0:
		return d.dataBuffer, nil
	case KittyTransmissionFile:
		if !allowRemote {
			return nil, errPermission("remote file transmission disabled")
		}
		path := strings.TrimSpace(string(d.dataBuffer))
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errIO("failed to read file %q: %v", path, err)
		}
		return b, nil
	case KittyTransmissionTemp:
		if !allowRemote {
			return nil, errPermission("remote temp-file transmission disabled")
		}
		path := strings.TrimSpace(string(d.dataBuffer))
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errIO("failed to read temp file %q: %v", path, err)
		}
		_ = os.Remove(path)
		return b, nil
	case KittyTransmissionShared:
		if !allowRemote {
			return nil, errPermission("shared memory transmission disabled")
		}
		return readSharedMemory(strings.TrimSpace(string(d.dataBuffer)))
	default:
		return nil, errBadData("unknown transmission medium %q", d.params.transmission)
	}
}

// decodeByFormat interprets raw bytes per the `f=` key: 24/32 are fixed
// pixel layouts validated against width*height, 100 is a PNG blob decoded
// via the standard library's image/png, the only decoder registered with
// image.Decode here; any other encoded format is rejected.
func decodeByFormat(format KittyFormat, raw []byte, width, height int) (int, int, []byte, error) {
	switch format {
	case KittyFormatRGB:
		want := width * height * 3
		if len(raw) != want {
			return 0, 0, nil, errBadData("RGB payload size %d, want %d", len(raw), want)
		}
		out := make([]byte, width*height*4)
		for i := 0; i < width*height; i++ {
			out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = raw[i*3], raw[i*3+1], raw[i*3+2], 255
		}
		return width, height, out, nil
	case KittyFormatRGBA:
		want := width * height * 4
		if len(raw) != want {
			return 0, 0, nil, errBadData("RGBA payload size %d, want %d", len(raw), want)
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return width, height, out, nil
	case KittyFormatPNG:
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return 0, 0, nil, errBadData("png decode failed: %v", err)
		}
		return rgbaFromImage(img)
	default:
		return 0, 0, nil, errBadData("unknown format %d", format)
	}
}

func rgbaFromImage(img image.Image) (int, int, []byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out[i], out[i+1], out[i+2], out[i+3] = byte(r>>8), byte(g>>8), byte(bl>>8), byte(a>>8)
			i += 4
		}
	}
	return w, h, out, nil
}

func zlibInflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// parse reads the full `key=value,key=value` key list (first chunk only).
func (p *kittyParams) parse(keys []byte) error {
	*p = kittyParams{
		action:       KittyActionTransmit,
		transmission: KittyTransmissionDirect,
		format:       KittyFormatRGBA,
		quiet:        0,
	}
	for _, kv := range strings.Split(string(keys), ",") {
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if err := p.set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *kittyParams) set(k, v string) error {
	switch k {
	case "a":
		if len(v) != 1 {
			return errBadData("bad action %q", v)
		}
		p.action = KittyAction(v[0])
	case "t":
		if len(v) != 1 {
			return errBadData("bad transmission %q", v)
		}
		p.transmission = KittyTransmission(v[0])
	case "f":
		n, err := strconv.Atoi(v)
		if err != nil {
			return errBadData("bad format %q", v)
		}
		p.format = KittyFormat(n)
	case "o":
		if len(v) != 1 {
			return errBadData("bad compression %q", v)
		}
		p.compression = v[0]
	case "i":
		p.imageID = parseUint32(v)
	case "I":
		p.imageNumber = parseUint32(v)
	case "p":
		p.placementID = parseUint32(v)
	case "s":
		p.width = parseInt(v)
		p.animState = parseInt(v)
	case "v":
		p.height = parseInt(v)
		p.loopCount = parseInt(v)
	case "S":
		p.size = parseInt(v)
	case "O":
		p.offset = parseInt(v)
	case "m":
		p.more = v == "1"
	case "x":
		p.srcX = parseInt(v)
	case "y":
		p.srcY = parseInt(v)
	case "w":
		p.srcW = parseInt(v)
	case "h":
		p.srcH = parseInt(v)
	case "c":
		p.cols = parseInt(v)
		p.srcFrame = parseInt(v)
		p.currFrame = parseInt(v)
	case "r":
		p.rows = parseInt(v)
		p.frameNumber = parseInt(v)
	case "X":
		p.cellOffX = parseInt(v)
	case "Y":
		p.cellOffY = parseInt(v)
	case "z":
		p.zIndex = parseInt(v)
		p.gap = parseInt(v)
	case "C":
		p.noCursorMove = v == "1"
		p.composeMode = parseInt(v)
	case "d":
		if len(v) == 1 {
			p.deleteSpec = v[0]
		}
	case "q":
		p.quiet = parseInt(v)
	}
	return nil
}

// parseContinuationMore reads only `m=` out of a continuation chunk's key
// list; every other key on a continuation chunk is ignored per spec §6.2.
func parseContinuationMore(keys []byte) bool {
	for _, kv := range strings.Split(string(keys), ",") {
		if k, v, ok := strings.Cut(kv, "="); ok && k == "m" {
			return v == "1"
		}
	}
	return false
}

func parseUint32(s string) uint32 {
	n, _ := strconv.ParseUint(s, 10, 32)
	return uint32(n)
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// decodeBase64Tolerant decodes a base64 payload while skipping interior
// whitespace, matching clients that wrap long payloads across lines.
func decodeBase64Tolerant(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	cleaned := make([]byte, 0, len(payload))
	for _, b := range payload {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			cleaned = append(cleaned, b)
		}
	}
	return base64DecodeStd(cleaned)
}

// formatKittyResponse builds the `ESC _ G i=<id>;<OK|CODE:message> ESC \`
// response wire format (spec §6, §7).
func formatKittyResponse(id uint32, err error) string {
	if err == nil {
		return fmt.Sprintf("\x1b_Gi=%d;OK\x1b\\", id)
	}
	return fmt.Sprintf("\x1b_Gi=%d;%s\x1b\\", id, err.Error())
}
