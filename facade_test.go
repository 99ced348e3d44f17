package vtgfx

import (
	"encoding/base64"
	"strings"
	"testing"
)

// fakePassthroughParser treats every byte as a Print call; it has no notion
// of CSI/DCS grammar, which is fine here since the tests that need DCS
// drive Terminal's DcsHook/DcsPut/DcsUnhook directly rather than through a
// full parser.
type fakePassthroughParser struct{}

func (fakePassthroughParser) Advance(h Handler, b byte) { h.Print(rune(b)) }

type fakeHandler struct {
	printed []rune
}

func (f *fakeHandler) Print(r rune)                                              { f.printed = append(f.printed, r) }
func (f *fakeHandler) Execute(b byte)                                            {}
func (f *fakeHandler) CsiDispatch(params [][]uint16, intermediates []byte, final byte) {}
func (f *fakeHandler) EscDispatch(intermediates []byte, final byte)              {}
func (f *fakeHandler) OscDispatch(params [][]byte)                               {}
func (f *fakeHandler) DcsHook(params [][]uint16, intermediates []byte, final byte) {}
func (f *fakeHandler) DcsPut(b byte)                                             {}
func (f *fakeHandler) DcsUnhook()                                                {}

type placement struct {
	id                     uint32
	widthPx, heightPx      int
	cellW, cellH           int
	noCursorMove           bool
}

type fakeGrid struct {
	row, col   int
	placements []placement
	removed    []uint32
	cleared    bool
}

func (g *fakeGrid) CursorPosition() (int, int) { return g.row, g.col }
func (g *fakeGrid) PlaceImage(id uint32, widthPx, heightPx, cellW, cellH int, noCursorMove bool) {
	g.placements = append(g.placements, placement{id, widthPx, heightPx, cellW, cellH, noCursorMove})
}
func (g *fakeGrid) RemovePlacements(id uint32) { g.removed = append(g.removed, id) }
func (g *fakeGrid) ClearPlacements()           { g.cleared = true }

type fakePTY struct {
	written []string
}

func (p *fakePTY) Read(b []byte) (int, error)        { return 0, nil }
func (p *fakePTY) Write(b []byte) (int, error)       { p.written = append(p.written, string(b)); return len(b), nil }
func (p *fakePTY) Resize(cols, rows int) error       { return nil }

func newTestTerminal(grid *fakeGrid, pty *fakePTY, handler *fakeHandler, opts ...Option) *Terminal {
	base := []Option{
		WithVTParser(fakePassthroughParser{}),
		WithHandler(handler),
		WithGrid(grid),
		WithPTY(pty),
	}
	return New(append(base, opts...)...)
}

func TestProcessPTYOutputFastPathPassesBytesThrough(t *testing.T) {
	handler := &fakeHandler{}
	term := newTestTerminal(&fakeGrid{}, &fakePTY{}, handler)
	term.ProcessPTYOutput([]byte("hello"))
	if string(handler.printed) != "hello" {
		t.Fatalf("printed = %q, want %q", string(handler.printed), "hello")
	}
}

func TestProcessPTYOutputSplitAPCSpanAcrossReads(t *testing.T) {
	handler := &fakeHandler{}
	grid := &fakeGrid{}
	pty := &fakePTY{}
	term := newTestTerminal(grid, pty, handler)

	pixels := []byte{1, 2, 3, 4} // 1x1 RGBA
	payload := base64.StdEncoding.EncodeToString(pixels)
	full := []byte("\x1b_Ga=T,f=32,s=1,v=1;" + payload + "\x1b\\")

	split := len(full) - 4 // split mid-payload, not on the leading ESC
	term.ProcessPTYOutput(full[:split])
	if len(pty.written) != 0 {
		t.Fatalf("response written before span closed: %v", pty.written)
	}
	term.ProcessPTYOutput(full[split:])
	if len(pty.written) != 1 {
		t.Fatalf("expected exactly one response after span closed, got %v", pty.written)
	}
	if !strings.Contains(pty.written[0], "OK") {
		t.Fatalf("response = %q, want OK", pty.written[0])
	}
	if len(grid.placements) != 1 {
		t.Fatalf("expected one placement, got %d", len(grid.placements))
	}
}

func TestKittyTransmitAndDisplayRoundTrip(t *testing.T) {
	grid := &fakeGrid{}
	pty := &fakePTY{}
	term := newTestTerminal(grid, pty, &fakeHandler{})

	pixels := []byte{10, 20, 30, 255, 40, 50, 60, 255} // 2x1 RGBA
	payload := base64.StdEncoding.EncodeToString(pixels)
	cmd := []byte("\x1b_Ga=T,i=5,f=32,s=2,v=1;" + payload + "\x1b\\")

	term.ProcessPTYOutput(cmd)

	img := term.Registry().Get(5)
	if img == nil {
		t.Fatal("image 5 should be registered")
	}
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("dims = %dx%d, want 2x1", img.Width, img.Height)
	}
	if len(grid.placements) != 1 || grid.placements[0].id != 5 {
		t.Fatalf("placements = %v", grid.placements)
	}
	if len(pty.written) != 1 || !strings.Contains(pty.written[0], "i=5;OK") {
		t.Fatalf("response = %v", pty.written)
	}
}

func TestKittyQuietSuppressesResponse(t *testing.T) {
	grid := &fakeGrid{}
	pty := &fakePTY{}
	term := newTestTerminal(grid, pty, &fakeHandler{})

	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 255})
	cmd := []byte("\x1b_Ga=t,i=9,f=32,s=1,v=1,q=2;" + payload + "\x1b\\")
	term.ProcessPTYOutput(cmd)

	if term.Registry().Get(9) == nil {
		t.Fatal("image should still be registered despite quiet")
	}
	if len(pty.written) != 0 {
		t.Fatalf("expected no response under q=2, got %v", pty.written)
	}
}

func TestKittyDeleteAllClearsRegistryAndGrid(t *testing.T) {
	grid := &fakeGrid{}
	pty := &fakePTY{}
	term := newTestTerminal(grid, pty, &fakeHandler{})

	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 255})
	term.ProcessPTYOutput([]byte("\x1b_Ga=t,i=1,f=32,s=1,v=1;" + payload + "\x1b\\"))
	term.ProcessPTYOutput([]byte("\x1b_Ga=d,d=a;\x1b\\"))

	if term.Registry().Contains(1) {
		t.Fatal("image 1 should be gone after delete-all")
	}
	if !grid.cleared {
		t.Fatal("grid should have been told to clear placements")
	}
}

func TestSixelDCSRoundTrip(t *testing.T) {
	grid := &fakeGrid{}
	pty := &fakePTY{}
	term := newTestTerminal(grid, pty, &fakeHandler{})

	term.DcsHook(nil, nil, 'q')
	for _, b := range []byte("#0;2;100;0;0~") {
		term.DcsPut(b)
	}
	term.DcsUnhook()

	ids := term.Registry().Contains
	_ = ids
	found := false
	for id := uint32(1); id <= 4; id++ {
		if img := term.Registry().Get(id); img != nil {
			found = true
			if img.Width != 1 || img.Height != 6 {
				t.Fatalf("sixel image dims = %dx%d, want 1x6", img.Width, img.Height)
			}
		}
	}
	if !found {
		t.Fatal("expected a sixel image to be registered")
	}
	if len(grid.placements) != 1 {
		t.Fatalf("expected one placement from sixel decode, got %d", len(grid.placements))
	}
}

func TestSixelEmptyDCSIsDiscarded(t *testing.T) {
	grid := &fakeGrid{}
	term := newTestTerminal(grid, &fakePTY{}, &fakeHandler{})

	term.DcsHook(nil, nil, 'q')
	term.DcsUnhook() // no DcsPut bytes at all

	if len(grid.placements) != 0 {
		t.Fatal("empty sixel stream should not register a placement")
	}
}

func TestNonSixelDCSPassesThroughToBaseHandler(t *testing.T) {
	handler := &fakeHandler{}
	term := newTestTerminal(&fakeGrid{}, &fakePTY{}, handler)

	term.DcsHook(nil, nil, 'p') // not 'q', so this is not a sixel stream
	term.DcsPut('x')
	term.DcsUnhook()
	// base handler's DcsHook/DcsPut/DcsUnhook are no-ops in this fake, so the
	// only observable assertion is that Terminal did not try to register a
	// sixel image.
	if term.currentSixelDecoder != nil {
		t.Fatal("non-sixel DCS should not start a sixel decode")
	}
}

func TestEvictionDropsPlacementAndMarksDirty(t *testing.T) {
	grid := &fakeGrid{}
	pty := &fakePTY{}
	term := newTestTerminal(grid, pty, &fakeHandler{}, WithMaxImageCount(1))

	payload1 := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 255})
	payload2 := base64.StdEncoding.EncodeToString([]byte{4, 5, 6, 255})
	term.ProcessPTYOutput([]byte("\x1b_Ga=t,i=1,f=32,s=1,v=1;" + payload1 + "\x1b\\"))
	term.ProcessPTYOutput([]byte("\x1b_Ga=t,i=2,f=32,s=1,v=1;" + payload2 + "\x1b\\"))

	if term.Registry().Contains(1) {
		t.Fatal("image 1 should have been evicted once the count budget was exceeded")
	}
	if len(grid.removed) == 0 || grid.removed[len(grid.removed)-1] != 1 {
		t.Fatalf("expected eviction of id 1 to clear its placements, removed=%v", grid.removed)
	}
	dirty := term.DrainDirtyImageIDs()
	found := false
	for _, id := range dirty {
		if id == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected evicted id 1 among dirty ids, got %v", dirty)
	}
}
