// Package vtgfx implements the graphics side of a terminal emulator: Sixel
// and Kitty image decoding, an APC pre-parser that lifts Kitty's
// out-of-band protocol out of the escape-sequence stream before it ever
// reaches a VT parser, and a bounded registry that holds decoded images
// between transmission and placement.
//
// vtgfx does not parse ANSI/VT escape sequences and does not hold a
// character grid. Both are supplied by the embedder through the [Handler],
// [VTParser] and [GridMutator] interfaces; vtgfx only needs to be handed
// bytes as they arrive from a PTY and to be given somewhere to record image
// placements.
//
// # Quick Start
//
//	term := vtgfx.New(
//	    vtgfx.WithVTParser(myParser),
//	    vtgfx.WithHandler(myHandler),
//	    vtgfx.WithGrid(myGrid),
//	    vtgfx.WithPTY(ptyConn),
//	    vtgfx.WithCellSize(9, 18),
//	)
//
//	buf := make([]byte, 4096)
//	for {
//	    n, err := ptyConn.Read(buf)
//	    if err != nil {
//	        break
//	    }
//	    term.ProcessPTYOutput(buf[:n])
//	}
//
// # Architecture
//
// The package is organized around these pieces:
//
//   - [Terminal]: the facade; owns the APC pre-parser and the image registry,
//     and is itself a [Handler] so it can intercept Sixel's DCS string
//     without the embedder's handler needing to know Sixel exists.
//   - [ImageRegistry]: a bounded, byte-accounted store of [TerminalImage]
//     entries, evicting the smallest id when either bound is exceeded.
//   - sixelDecoder: a streaming decoder for DCS-embedded sixel data, fed one
//     byte at a time via DcsPut.
//   - [KittyDecoder]: assembles one Kitty graphics transmission across
//     however many `m=1`/`m=0` continuation chunks it arrives in.
//   - [ComposeFrames]: blends one animation frame's rectangle into another,
//     either by straight overwrite or Porter-Duff alpha compositing.
//
// # APC pre-parsing
//
// Kitty's graphics protocol rides inside an Application Program Command
// (APC): `ESC _ ... ST`. Terminal's internal apcDispatcher recognizes these
// spans ahead of the VT parser so the parser never has to understand APC at
// all — every byte that isn't part of an APC span is forwarded to
// [VTParser.Advance] untouched. ProcessPTYOutput picks a fast path (no APC
// span touches the current read, so the whole buffer goes straight to the
// parser) or a slow, byte-by-byte path whenever a span starts, continues, or
// ends within the buffer.
//
// # Sixel
//
// Sixel arrives as a DCS string whose header ends with final byte 'q'. Terminal's
// DcsHook/DcsPut/DcsUnhook intercept that one DCS kind and hand everything
// else to the embedder's [Handler]. The decoder keeps a flat palette-index
// pixel buffer seeded with the VT340's 16-color default palette, growing it
// on demand as raster attributes or out-of-bounds pixels extend the canvas,
// up to a hard 16384x16384 / 256 MiB ceiling.
//
// # Kitty graphics
//
// [KittyDecoder] assembles payload chunks, resolves the transmission medium
// (direct base64, a local file, a temp file, or POSIX shared memory — the
// latter three gated behind [WithAllowKittyRemote]), applies zlib
// decompression when requested, and decodes RGB/RGBA/PNG pixel data into a
// straight RGBA buffer. Terminal dispatches the finished decode according to
// the command's action: Transmit/TransmitAndDisplay register (and
// optionally place) an image, Display places an already-registered one,
// Delete removes one or all images, Frame updates a single animation frame
// (gap-filling any frames skipped in between), Compose blends one frame's
// rectangle into another, and Animate updates playback state.
//
// # Image registry
//
// [ImageRegistry] assigns monotonically increasing ids starting at 1 and
// tracks total byte usage across every image's root buffer and animation
// frames. Once either the entry count or the byte budget is exceeded,
// images are evicted smallest-id-first — a cheap proxy for "oldest" that
// needs no access-time bookkeeping. Terminal removes an evicted image's grid
// placements and marks it dirty so a renderer knows to stop drawing it.
//
// # Thread Safety
//
// [ImageRegistry] is safe for concurrent use; [Terminal] is not — it is
// meant to be driven by a single goroutine reading from one PTY, matching
// how [Handler]/[VTParser] are typically used elsewhere in this codebase.
package vtgfx
