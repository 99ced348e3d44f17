package vtgfx

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestKittyDecoderDirectRGBA(t *testing.T) {
	pixels := []byte{255, 0, 0, 255, 0, 255, 0, 255} // 2x1 RGBA
	payload := base64.StdEncoding.EncodeToString(pixels)

	dec := newKittyDecoder()
	chunk := []byte("a=T,f=32,s=2,v=1;" + payload)
	if err := dec.Process(chunk); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !dec.Done() {
		t.Fatal("expected single-chunk transmission to be done")
	}
	img, err := dec.Finish(7, false)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("dims = %dx%d, want 2x1", img.Width, img.Height)
	}
	if img.Data[0] != 255 || img.Data[4] != 0 || img.Data[5] != 255 {
		t.Fatalf("pixel data = %v", img.Data)
	}
}

func TestKittyDecoderRGBExpandsToRGBA(t *testing.T) {
	pixels := []byte{10, 20, 30} // 1x1 RGB
	payload := base64.StdEncoding.EncodeToString(pixels)

	dec := newKittyDecoder()
	if err := dec.Process([]byte("a=t,f=24,s=1,v=1;" + payload)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	img, err := dec.Finish(1, false)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	want := []byte{10, 20, 30, 255}
	for i, b := range want {
		if img.Data[i] != b {
			t.Fatalf("Data[%d] = %d, want %d", i, img.Data[i], b)
		}
	}
}

func TestKittyDecoderRejectsSizeMismatch(t *testing.T) {
	dec := newKittyDecoder()
	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if err := dec.Process([]byte("a=t,f=32,s=2,v=2;" + payload)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := dec.Finish(1, false); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestKittyDecoderContinuationChunks(t *testing.T) {
	full := []byte{1, 2, 3, 4, 5, 6, 7, 8} // 2x1 RGBA
	half := len(full) / 2
	part1 := base64.StdEncoding.EncodeToString(full[:half])
	part2 := base64.StdEncoding.EncodeToString(full[half:])

	dec := newKittyDecoder()
	if err := dec.Process([]byte("a=t,f=32,s=2,v=1,m=1;" + part1)); err != nil {
		t.Fatalf("Process chunk1: %v", err)
	}
	if dec.Done() {
		t.Fatal("decoder should not be done while m=1")
	}
	// Continuation chunks only re-read `m=`; the rest of the key list is
	// not required to repeat.
	if err := dec.Process([]byte("m=0;" + part2)); err != nil {
		t.Fatalf("Process chunk2: %v", err)
	}
	if !dec.Done() {
		t.Fatal("decoder should be done after m=0")
	}
	img, err := dec.Finish(1, false)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	for i, b := range full {
		if img.Data[i] != b {
			t.Fatalf("Data[%d] = %d, want %d", i, img.Data[i], b)
		}
	}
}

func TestKittyDecoderRemoteTransmissionDeniedByDefault(t *testing.T) {
	dec := newKittyDecoder()
	path := base64.StdEncoding.EncodeToString([]byte("/tmp/does-not-matter"))
	if err := dec.Process([]byte("a=t,t=f,f=32,s=1,v=1;" + path)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := dec.Finish(1, false); err == nil {
		t.Fatal("expected permission error when remote transmission is disallowed")
	}
}

func TestDecodeBase64TolerantSkipsWhitespace(t *testing.T) {
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	encoded := base64.StdEncoding.EncodeToString(raw)
	wrapped := []byte(encoded[:2] + "\n" + encoded[2:] + " \r\n")
	decoded, err := decodeBase64Tolerant(wrapped)
	if err != nil {
		t.Fatalf("decodeBase64Tolerant: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatalf("decoded = %v, want %v", decoded, raw)
	}
}

func TestFormatKittyResponse(t *testing.T) {
	ok := formatKittyResponse(5, nil)
	if ok != "\x1b_Gi=5;OK\x1b\\" {
		t.Fatalf("ok response = %q", ok)
	}
	errResp := formatKittyResponse(5, errNotFound("image %d not found", 5))
	if !strings.HasPrefix(errResp, "\x1b_Gi=5;ENOENT:") {
		t.Fatalf("error response = %q", errResp)
	}
}
