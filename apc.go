package vtgfx

// maxAPCBufferSize bounds the APC payload buffer at 4 MiB (spec §6).
// Overflow is silent: further bytes are dropped but the state machine keeps
// parsing so the stream never desyncs.
const maxAPCBufferSize = 4 * 1024 * 1024

// apcState is the four states of the out-of-band pre-parser (spec §4.1).
type apcState byte

const (
	apcNormal apcState = iota
	apcEscape
	apcInApc
	apcApcEscape
)

// apcDispatcher rides above the VT parser, splitting `ESC _ ... ST` (APC)
// spans out of the byte stream before anything reaches the parser. It is
// the reason the facade never needs the VT parser to understand APC: by the
// time a byte reaches Handler, it is guaranteed not to be part of an APC
// payload.
type apcDispatcher struct {
	state  apcState
	buffer []byte
}

// reset returns the dispatcher to apcNormal with an empty buffer.
func (d *apcDispatcher) reset() {
	d.state = apcNormal
	d.buffer = d.buffer[:0]
}

// step advances the dispatcher by one byte. vtByte is called for every byte
// that must reach the VT parser (the held ESC plus the byte after an
// abandoned Escape state); dispatch is called once with the accumulated APC
// buffer when a terminator is recognized.
func (d *apcDispatcher) step(b byte, vtByte func(byte), dispatch func([]byte)) {
	switch d.state {
	case apcNormal:
		if b == 0x1B {
			d.state = apcEscape
		} else {
			vtByte(b)
		}

	case apcEscape:
		if b == '_' {
			d.state = apcInApc
			d.buffer = d.buffer[:0]
		} else {
			d.state = apcNormal
			vtByte(0x1B)
			vtByte(b)
		}

	case apcInApc:
		switch {
		case b == 0x9C: // 8-bit ST
			dispatch(d.buffer)
			d.state = apcNormal
		case b == 0x1B:
			d.state = apcApcEscape
		case len(d.buffer) < maxAPCBufferSize:
			d.buffer = append(d.buffer, b)
		}
		// else: silently dropped, buffer stays at the cap (spec §6, §7)

	case apcApcEscape:
		switch b {
		case '\\':
			dispatch(d.buffer)
			d.state = apcNormal
		case 0x1B:
			if len(d.buffer) < maxAPCBufferSize {
				d.buffer = append(d.buffer, 0x1B)
			}
			// stays in apcApcEscape
		default:
			if len(d.buffer) < maxAPCBufferSize {
				d.buffer = append(d.buffer, 0x1B, b)
			}
			d.state = apcInApc
		}
	}
}

// hasEscUnderscore does a linear two-byte scan for the APC opener, used to
// pick the fast path in ProcessPTYOutput (spec §4.1).
func hasEscUnderscore(buf []byte) bool {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == 0x1B && buf[i+1] == '_' {
			return true
		}
	}
	return false
}

// inAPCSpan reports whether the dispatcher is mid-span, i.e. the fast path
// must not be taken even though this particular read buffer has no ESC _.
func (d *apcDispatcher) inAPCSpan() bool {
	return d.state != apcNormal
}
