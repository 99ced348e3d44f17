package vtgfx

import "io"

// Handler is the callback surface the out-of-scope VT escape parser drives
// while consuming the in-band byte stream. vtgfx never implements the parser
// itself — it only defines the shape a parser must call into once it has
// classified a byte as Print/Execute/CSI/ESC/OSC/DCS. APC is deliberately
// absent from this interface: the apcDispatcher (see apc.go) intercepts
// `ESC _ ... ST` spans ahead of the parser and never forwards them here.
type Handler interface {
	// Print handles a printable character destined for the grid.
	Print(r rune)
	// Execute handles a C0/C1 control code (BEL, BS, LF, ...).
	Execute(b byte)
	// CsiDispatch handles a complete CSI sequence.
	CsiDispatch(params [][]uint16, intermediates []byte, final byte)
	// EscDispatch handles a complete two-character (or intermediate-bearing) ESC sequence.
	EscDispatch(intermediates []byte, final byte)
	// OscDispatch handles a complete OSC sequence, params split on ';'.
	OscDispatch(params [][]byte)
	// DcsHook opens a DCS string; for Sixel this arrives with final byte 'q'.
	DcsHook(params [][]uint16, intermediates []byte, final byte)
	// DcsPut delivers one byte of an open DCS string's payload.
	DcsPut(b byte)
	// DcsUnhook closes the currently open DCS string.
	DcsUnhook()
}

// VTParser is the out-of-scope escape-sequence state machine. It owns the
// full C0/C1/CSI/OSC/DCS grammar and invokes Handler methods as it recognizes
// complete units. The facade hands it every byte that survives APC
// extraction, one Advance call per byte on both the fast and slow paths.
type VTParser interface {
	// Advance feeds a single byte to the parser, which may synchronously
	// invoke one or more Handler methods.
	Advance(h Handler, b byte)
}

// GridMutator is the out-of-scope character grid. The facade never reads or
// renders cells itself — it only asks the grid to place decoded images at
// the grid's own cursor and to drop placements.
type GridMutator interface {
	// CursorPosition reports the current cursor cell, the anchor PlaceImage
	// uses. The facade itself does not call it.
	CursorPosition() (row, col int)
	// PlaceImage records a placement for image id covering widthPx x heightPx
	// pixels at the cursor, converting to cell span via ceiling division by
	// (cellW, cellH). If noCursorMove is true the cursor must not advance.
	PlaceImage(id uint32, widthPx, heightPx, cellW, cellH int, noCursorMove bool)
	// RemovePlacements drops every placement referencing id (called when an
	// image is replaced, removed, or evicted).
	RemovePlacements(id uint32)
	// ClearPlacements drops every placement (called on Delete-all).
	ClearPlacements()
}

// PTY is the out-of-scope pseudo-terminal byte stream. The embedder reads
// from it and passes each read to ProcessPTYOutput; the facade itself only
// writes protocol responses back through it. Reading and resizing are
// exposed for completeness but never called by the core itself.
type PTY interface {
	io.Reader
	io.Writer
	// Resize notifies the PTY of a new terminal size in columns and rows.
	Resize(cols, rows int) error
}
