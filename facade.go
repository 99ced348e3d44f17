package vtgfx

import "log/slog"

// defaultCellWidth and defaultCellHeight are the pixel cell dimensions used
// until WithCellSize overrides them, chosen to match a common 8x16 bitmap
// font cell.
const (
	defaultCellWidth  = 8
	defaultCellHeight = 16
)

// terminalConfig accumulates Option values before New constructs the
// Terminal, so options that affect construction (registry limits) can still
// be expressed as WithX(...) calls applied in any order.
type terminalConfig struct {
	allowKittyRemote bool
	cellW, cellH     int
	pty              PTY
	grid             GridMutator
	vtParser         VTParser
	handler          Handler
	maxImageCount    int
	maxImageBytes    int
}

// Option configures a Terminal at construction time.
type Option func(*terminalConfig)

// WithAllowKittyRemote permits File/TempFile/SharedMemory Kitty
// transmissions, which otherwise fail with EPERM (spec §6).
func WithAllowKittyRemote(allow bool) Option {
	return func(c *terminalConfig) { c.allowKittyRemote = allow }
}

// WithCellSize sets the pixel dimensions of one grid cell, used to convert
// an image's pixel size into a cell span when it is placed.
func WithCellSize(widthPx, heightPx int) Option {
	return func(c *terminalConfig) { c.cellW, c.cellH = widthPx, heightPx }
}

// WithPTY supplies the byte-stream collaborator responses are written to.
func WithPTY(pty PTY) Option {
	return func(c *terminalConfig) { c.pty = pty }
}

// WithGrid supplies the character-grid collaborator placements are recorded
// on.
func WithGrid(grid GridMutator) Option {
	return func(c *terminalConfig) { c.grid = grid }
}

// WithVTParser supplies the escape-sequence parser driven by bytes that
// survive APC extraction.
func WithVTParser(p VTParser) Option {
	return func(c *terminalConfig) { c.vtParser = p }
}

// WithHandler supplies the callback target the VT parser dispatches into.
func WithHandler(h Handler) Option {
	return func(c *terminalConfig) { c.handler = h }
}

// WithMaxImageCount overrides the registry's entry-count bound (default 256).
func WithMaxImageCount(n int) Option {
	return func(c *terminalConfig) { c.maxImageCount = n }
}

// WithMaxImageBytes overrides the registry's total-byte bound (default 512 MiB).
func WithMaxImageBytes(n int) Option {
	return func(c *terminalConfig) { c.maxImageBytes = n }
}

// Terminal is the facade tying the APC pre-parser, the out-of-scope VT
// parser and grid, and the image registry together into one PTY output
// pipeline.
type Terminal struct {
	apc      apcDispatcher
	vtParser VTParser
	handler  Handler
	grid     GridMutator
	pty      PTY
	registry *ImageRegistry

	allowKittyRemote bool
	cellW, cellH     int

	currentKittyDecoder *KittyDecoder
	currentSixelDecoder *sixelDecoder

	// DirtyImageIDs accumulates ids whose pixel content changed since the
	// last call to DrainDirtyImageIDs: replaced transmissions, evictions,
	// and frame updates all append here so a renderer knows what to
	// re-composite without diffing the whole registry.
	dirtyImageIDs []uint32
}

// New constructs a Terminal from the given options; collaborators can only
// be supplied here. ProcessPTYOutput panics if no VTParser was supplied; a
// nil handler simply drops the pass-through callbacks.
func New(opts ...Option) *Terminal {
	cfg := terminalConfig{
		cellW:         defaultCellWidth,
		cellH:         defaultCellHeight,
		maxImageCount: maxImageCount,
		maxImageBytes: maxTotalImageBytes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Terminal{
		vtParser:         cfg.vtParser,
		handler:          cfg.handler,
		grid:             cfg.grid,
		pty:              cfg.pty,
		allowKittyRemote: cfg.allowKittyRemote,
		cellW:            cfg.cellW,
		cellH:            cfg.cellH,
		registry:         NewImageRegistryWithLimits(cfg.maxImageCount, cfg.maxImageBytes),
	}
}

// Registry exposes the image registry for callers that need direct lookup
// (snapshotting, testing) outside the PTY pipeline.
func (t *Terminal) Registry() *ImageRegistry { return t.registry }

// DrainDirtyImageIDs returns and clears the set of image ids that changed
// since the last drain.
func (t *Terminal) DrainDirtyImageIDs() []uint32 {
	ids := t.dirtyImageIDs
	t.dirtyImageIDs = nil
	return ids
}

// ProcessPTYOutput consumes one Read() result from the PTY, routing it
// through the fast path (no APC span touches this buffer) or the slow path
// (byte-by-byte, needed whenever an APC span starts, continues, or ends
// within it).
func (t *Terminal) ProcessPTYOutput(buf []byte) {
	if t.apc.inAPCSpan() || hasEscUnderscore(buf) {
		t.processSlow(buf)
		return
	}
	t.processFast(buf)
}

// processFast drives every byte straight into the VT parser. It still has
// to guard against an APC opener split across two reads: if the buffer ends
// on a lone ESC, that ESC is held back and the dispatcher is primed, so the
// next read's leading '_' is recognized as the start of an APC span instead
// of reaching the parser (any other byte releases the held ESC with it).
func (t *Terminal) processFast(buf []byte) {
	if n := len(buf); n > 0 && buf[n-1] == 0x1B {
		buf = buf[:n-1]
		t.apc.state = apcEscape
	}
	for _, b := range buf {
		t.vtParser.Advance(t, b)
	}
}

// processSlow runs the full byte-level state machine, extracting APC spans
// and forwarding everything else to the VT parser one byte at a time.
func (t *Terminal) processSlow(buf []byte) {
	for _, b := range buf {
		t.apc.step(b, t.advanceVT, t.handleAPC)
	}
}

func (t *Terminal) advanceVT(b byte) {
	t.vtParser.Advance(t, b)
}

var _ Handler = (*Terminal)(nil)

// Print, Execute, CsiDispatch, EscDispatch and OscDispatch pass straight
// through to the embedder-supplied base handler; Terminal only needs to
// intercept the DCS trio, since Sixel arrives as a DCS string rather than an
// APC span.
func (t *Terminal) Print(r rune) {
	if t.handler != nil {
		t.handler.Print(r)
	}
}

func (t *Terminal) Execute(b byte) {
	if t.handler != nil {
		t.handler.Execute(b)
	}
}

func (t *Terminal) CsiDispatch(params [][]uint16, intermediates []byte, final byte) {
	if t.handler != nil {
		t.handler.CsiDispatch(params, intermediates, final)
	}
}

func (t *Terminal) EscDispatch(intermediates []byte, final byte) {
	if t.handler != nil {
		t.handler.EscDispatch(intermediates, final)
	}
}

func (t *Terminal) OscDispatch(params [][]byte) {
	if t.handler != nil {
		t.handler.OscDispatch(params)
	}
}

// DcsHook opens a sixel decode when the DCS final byte is 'q'; any other DCS
// string is handed to the base handler untouched.
func (t *Terminal) DcsHook(params [][]uint16, intermediates []byte, final byte) {
	if final == 'q' {
		t.currentSixelDecoder = newSixelDecoder()
		return
	}
	if t.handler != nil {
		t.handler.DcsHook(params, intermediates, final)
	}
}

func (t *Terminal) DcsPut(b byte) {
	if t.currentSixelDecoder != nil {
		t.currentSixelDecoder.push(b)
		return
	}
	if t.handler != nil {
		t.handler.DcsPut(b)
	}
}

// DcsUnhook finalizes an in-flight sixel decode: a zero-dimension result
// (no raster attributes and no sixel data ever seen) is discarded rather
// than registered.
func (t *Terminal) DcsUnhook() {
	if dec := t.currentSixelDecoder; dec != nil {
		t.currentSixelDecoder = nil
		id := t.registry.NextID()
		sixelImg, err := dec.finish(id)
		if err != nil {
			slog.Debug("vtgfx: discarding empty sixel image", "error", err)
			return
		}
		img := &TerminalImage{ID: sixelImg.ID, Width: sixelImg.Width, Height: sixelImg.Height, Data: sixelImg.Data}
		t.dropEvicted(t.registry.Insert(img))
		if t.grid != nil {
			t.grid.PlaceImage(img.ID, img.Width, img.Height, t.cellW, t.cellH, false)
		}
		return
	}
	if t.handler != nil {
		t.handler.DcsUnhook()
	}
}

// handleAPC is invoked once per complete `ESC _ ... ST` span. Only Kitty
// graphics commands (payload starting with 'G') are recognized; anything
// else is a no-op, matching spec §6's "APC payloads not starting with G are
// ignored" rule.
func (t *Terminal) handleAPC(payload []byte) {
	if len(payload) == 0 || payload[0] != 'G' {
		return
	}
	chunk := payload[1:]

	dec := t.currentKittyDecoder
	if dec == nil {
		dec = newKittyDecoder()
		t.currentKittyDecoder = dec
	}

	if err := dec.Process(chunk); err != nil {
		t.currentKittyDecoder = nil
		if dec.params.quiet < 2 {
			t.writeResponse(formatKittyResponse(t.resolveID(dec.params.imageID), err))
		}
		return
	}
	if !dec.Done() {
		return
	}
	t.currentKittyDecoder = nil
	t.finishKittyDecode(dec)
}

// resolveID picks the wire id if present, otherwise reserves the next one
// from the registry, per spec §6's "params.id or next_id" rule.
func (t *Terminal) resolveID(wireID uint32) uint32 {
	if wireID != 0 {
		return wireID
	}
	return t.registry.NextID()
}

func (t *Terminal) finishKittyDecode(dec *KittyDecoder) {
	p := dec.params
	id := t.resolveID(p.imageID)
	quiet := p.quiet

	switch p.action {
	case KittyActionDelete:
		t.handleKittyDelete(p)
		t.respond(id, quiet, nil)

	case KittyActionQuery:
		t.respond(id, quiet, nil)

	case KittyActionDisplay:
		img := t.registry.Get(id)
		if img == nil {
			t.respond(id, quiet, errNotFound("image %d not found", id))
			return
		}
		t.placeImage(img, p)
		t.respond(id, quiet, nil)

	case KittyActionFrame:
		t.handleKittyFrame(id, p, dec, quiet)

	case KittyActionCompose:
		t.handleKittyCompose(id, p, quiet)

	case KittyActionAnimate:
		t.handleKittyAnimate(id, p, quiet)

	default: // Transmit, TransmitAndDisplay
		img, err := dec.Finish(id, t.allowKittyRemote)
		if err != nil {
			t.respond(id, quiet, err)
			return
		}
		img.ID = id
		if t.registry.Contains(id) {
			t.dirtyImageIDs = append(t.dirtyImageIDs, id)
			t.grid.RemovePlacements(id)
		}
		evicted := t.registry.Insert(img)
		t.dropEvicted(evicted)
		if p.action == KittyActionTransmitDisplay {
			t.placeImage(img, p)
		}
		t.respond(id, quiet, nil)
	}
}

func (t *Terminal) handleKittyDelete(p kittyParams) {
	switch p.deleteSpec {
	case 'i', 'I':
		t.registry.Remove(p.imageID)
		t.grid.RemovePlacements(p.imageID)
	default: // 'a', 'A', or unspecified: delete everything
		t.registry.Clear()
		t.grid.ClearPlacements()
	}
}

func (t *Terminal) handleKittyFrame(id uint32, p kittyParams, dec *KittyDecoder, quiet int) {
	img := t.registry.Get(id)
	if img == nil {
		t.respond(id, quiet, errNotFound("image %d not found", id))
		return
	}
	frame, err := dec.Finish(id, t.allowKittyRemote)
	if err != nil {
		t.respond(id, quiet, err)
		return
	}

	if p.frameNumber <= 1 {
		img.Data, img.Width, img.Height = frame.Data, frame.Width, frame.Height
	} else {
		idx := p.frameNumber - 2
		for len(img.Frames) <= idx {
			gapFrame := ImageFrame{
				Number: len(img.Frames) + 2,
				Width:  frame.Width,
				Height: frame.Height,
				GapMS:  defaultFrameGapMillis,
				Data:   make([]byte, frame.Width*frame.Height*4),
			}
			if img.byteSize()+len(gapFrame.Data) > maxTotalImageBytes {
				slog.Warn("vtgfx: frame gap-fill exceeds byte budget, truncating", "image", id, "frame", p.frameNumber)
				break
			}
			img.Frames = append(img.Frames, gapFrame)
		}
		if idx < len(img.Frames) {
			img.Frames[idx] = ImageFrame{
				Number: p.frameNumber,
				Width:  frame.Width,
				Height: frame.Height,
				X:      p.cellOffX,
				Y:      p.cellOffY,
				GapMS:  p.gap,
				Data:   frame.Data,
			}
		}
	}

	t.dropEvicted(t.registry.EnforceLimits())
	t.dirtyImageIDs = append(t.dirtyImageIDs, id)
	t.respond(id, quiet, nil)
}

func (t *Terminal) handleKittyCompose(id uint32, p kittyParams, quiet int) {
	img := t.registry.Get(id)
	if img == nil {
		t.respond(id, quiet, errNotFound("image %d not found", id))
		return
	}
	mode := ComposeAlphaBlend
	if p.composeMode == 1 {
		mode = ComposeOverwrite
	}
	err := ComposeFrames(img, p.srcFrame, p.frameNumber, p.srcX, p.srcY, p.cellOffX, p.cellOffY, p.srcW, p.srcH, mode)
	if err != nil {
		t.respond(id, quiet, err)
		return
	}
	t.dirtyImageIDs = append(t.dirtyImageIDs, id)
	t.respond(id, quiet, nil)
}

// handleKittyAnimate applies Animate's state, current-frame, loop-count,
// and per-frame gap updates. current_frame arrives 1-based on the wire and
// is stored 0-based. The root frame (number 1) has no separate gap storage,
// so a gap update targeting it is a documented no-op (see DESIGN.md).
func (t *Terminal) handleKittyAnimate(id uint32, p kittyParams, quiet int) {
	img := t.registry.Get(id)
	if img == nil {
		t.respond(id, quiet, errNotFound("image %d not found", id))
		return
	}
	switch p.animState {
	case 1:
		img.AnimationState = AnimationStopped
	case 2:
		img.AnimationState = AnimationLoading
	case 3:
		img.AnimationState = AnimationRunning
	}
	if p.currFrame > 0 {
		img.CurrentFrame = p.currFrame - 1
	}
	if p.loopCount > 0 {
		img.LoopCount = p.loopCount
	}
	if p.frameNumber >= 2 {
		if idx := p.frameNumber - 2; idx < len(img.Frames) {
			img.Frames[idx].GapMS = p.gap
		}
	}
	t.respond(id, quiet, nil)
}

func (t *Terminal) placeImage(img *TerminalImage, p kittyParams) {
	if t.grid == nil {
		return
	}
	t.grid.PlaceImage(img.ID, img.Width, img.Height, t.cellW, t.cellH, p.noCursorMove)
}

func (t *Terminal) dropEvicted(ids []uint32) {
	for _, id := range ids {
		slog.Debug("vtgfx: evicting image over registry limits", "image", id)
		if t.grid != nil {
			t.grid.RemovePlacements(id)
		}
		t.dirtyImageIDs = append(t.dirtyImageIDs, id)
	}
}

// respond writes the OK/error response unless quiet suppresses it: quiet<2
// always sends (spec §9's literal rule; see SPEC_FULL.md's Open Question
// note on q=1 vs q=2).
func (t *Terminal) respond(id uint32, quiet int, err error) {
	if quiet >= 2 {
		return
	}
	t.writeResponse(formatKittyResponse(id, err))
}

func (t *Terminal) writeResponse(s string) {
	if t.pty == nil {
		return
	}
	if _, err := t.pty.Write([]byte(s)); err != nil {
		slog.Warn("vtgfx: failed to write pty response", "error", err)
	}
}
