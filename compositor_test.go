package vtgfx

import "testing"

func solidImage(w, h int, r, g, b, a byte) *TerminalImage {
	data := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		data[i*4], data[i*4+1], data[i*4+2], data[i*4+3] = r, g, b, a
	}
	return &TerminalImage{ID: 1, Width: w, Height: h, Data: data}
}

func TestComposeOverwriteReplacesDestination(t *testing.T) {
	img := solidImage(2, 2, 0, 0, 0, 0)
	img.Frames = []ImageFrame{{Number: 2, Width: 2, Height: 2, Data: solidImage(2, 2, 255, 0, 0, 255).Data}}

	if err := ComposeFrames(img, 2, 1, 0, 0, 0, 0, 2, 2, ComposeOverwrite); err != nil {
		t.Fatalf("ComposeFrames: %v", err)
	}
	if img.Data[0] != 255 || img.Data[3] != 255 {
		t.Fatalf("root pixel = %v, want opaque red", img.Data[0:4])
	}
}

func TestComposeAlphaBlendTransparentSourceIsNoOp(t *testing.T) {
	dst := solidImage(1, 1, 0, 0, 255, 255) // opaque blue
	dst.Frames = []ImageFrame{{Number: 2, Width: 1, Height: 1, Data: solidImage(1, 1, 255, 0, 0, 0).Data}} // fully transparent red

	if err := ComposeFrames(dst, 2, 1, 0, 0, 0, 0, 1, 1, ComposeAlphaBlend); err != nil {
		t.Fatalf("ComposeFrames: %v", err)
	}
	if dst.Data[0] != 0 || dst.Data[2] != 255 {
		t.Fatalf("dest = %v, want unchanged opaque blue", dst.Data[0:4])
	}
}

func TestComposeAlphaBlendFullyOpaqueSourceOverwrites(t *testing.T) {
	dst := solidImage(1, 1, 0, 0, 255, 255)
	dst.Frames = []ImageFrame{{Number: 2, Width: 1, Height: 1, Data: solidImage(1, 1, 255, 0, 0, 255).Data}}

	if err := ComposeFrames(dst, 2, 1, 0, 0, 0, 0, 1, 1, ComposeAlphaBlend); err != nil {
		t.Fatalf("ComposeFrames: %v", err)
	}
	if dst.Data[0] != 255 || dst.Data[2] != 0 {
		t.Fatalf("dest = %v, want opaque red", dst.Data[0:4])
	}
}

func TestComposeOutOfBoundsOriginIsNoOp(t *testing.T) {
	img := solidImage(2, 2, 0, 0, 0, 255)
	before := append([]byte(nil), img.Data...)
	if err := ComposeFrames(img, 1, 1, 5, 5, 0, 0, 1, 1, ComposeOverwrite); err != nil {
		t.Fatalf("ComposeFrames: %v", err)
	}
	for i := range before {
		if img.Data[i] != before[i] {
			t.Fatalf("data changed at %d despite out-of-bounds src origin", i)
		}
	}
}

func TestComposeMissingFrameReturnsNotFound(t *testing.T) {
	img := solidImage(1, 1, 0, 0, 0, 255)
	err := ComposeFrames(img, 5, 1, 0, 0, 0, 0, 1, 1, ComposeOverwrite)
	if err == nil {
		t.Fatal("expected error for missing source frame")
	}
}

func TestComposeSelfCopyHandlesOverlap(t *testing.T) {
	// 3x1 image: red, green, blue. Copy [0,1) onto [1,2): should become red,red,blue.
	img := &TerminalImage{ID: 1, Width: 3, Height: 1, Data: []byte{
		255, 0, 0, 255,
		0, 255, 0, 255,
		0, 0, 255, 255,
	}}
	if err := ComposeFrames(img, 1, 1, 0, 0, 1, 0, 1, 1, ComposeOverwrite); err != nil {
		t.Fatalf("ComposeFrames: %v", err)
	}
	if img.Data[4] != 255 || img.Data[5] != 0 {
		t.Fatalf("middle pixel = %v, want copied red", img.Data[4:8])
	}
	if img.Data[8] != 0 || img.Data[10] != 255 {
		t.Fatalf("last pixel = %v, want untouched blue", img.Data[8:12])
	}
}
