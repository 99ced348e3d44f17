package vtgfx

import (
	stdimage "image"

	"golang.org/x/image/draw"
)

// ComposeMode selects how Compose blends the staged source rectangle into
// the destination frame.
type ComposeMode int

const (
	// ComposeOverwrite replaces destination pixels outright.
	ComposeOverwrite ComposeMode = 1
	// ComposeAlphaBlend composites source over destination using straight
	// alpha (spec §6.4's "src_over" formula). This is the default for any
	// mode value other than ComposeOverwrite.
	ComposeAlphaBlend ComposeMode = 2
)

// frameBytes resolves frame number 1 as the root image and N>=2 as
// Frames[N-2], the storage convention used throughout the registry.
func frameBytes(img *TerminalImage, frameNumber int) ([]byte, int, int, error) {
	if frameNumber == 1 {
		return img.Data, img.Width, img.Height, nil
	}
	idx := frameNumber - 2
	if idx < 0 || idx >= len(img.Frames) {
		return nil, 0, 0, errNotFound("frame %d not found on image %d", frameNumber, img.ID)
	}
	f := img.Frames[idx]
	return f.Data, f.Width, f.Height, nil
}

// ComposeFrames copies a width x height rectangle from (srcX,srcY) in
// srcFrame to (dstX,dstY) in dstFrame, both within img, blending per mode.
// Out-of-bounds origins are a silent no-op; the copy region is clamped to
// whatever actually fits in both frames. Supports src==dst (including a
// frame composed onto itself) by staging the source rectangle into a
// temporary buffer before writing.
func ComposeFrames(img *TerminalImage, srcFrame, dstFrame, srcX, srcY, dstX, dstY, width, height int, mode ComposeMode) error {
	srcData, srcW, srcH, err := frameBytes(img, srcFrame)
	if err != nil {
		return err
	}
	dstData, dstW, dstH, err := frameBytes(img, dstFrame)
	if err != nil {
		return err
	}

	if srcX < 0 || srcY < 0 || dstX < 0 || dstY < 0 ||
		srcX >= srcW || srcY >= srcH || dstX >= dstW || dstY >= dstH {
		return nil
	}

	copyW, copyH := width, height
	if srcX+copyW > srcW {
		copyW = srcW - srcX
	}
	if dstX+copyW > dstW {
		copyW = dstW - dstX
	}
	if srcY+copyH > srcH {
		copyH = srcH - srcY
	}
	if dstY+copyH > dstH {
		copyH = dstH - dstY
	}
	if copyW <= 0 || copyH <= 0 {
		return nil
	}

	staged := make([]byte, copyW*copyH*4)
	for row := 0; row < copyH; row++ {
		so := ((srcY+row)*srcW + srcX) * 4
		do := row * copyW * 4
		copy(staged[do:do+copyW*4], srcData[so:so+copyW*4])
	}

	if mode == ComposeOverwrite {
		dstImg := &stdimage.RGBA{Pix: dstData, Stride: dstW * 4, Rect: stdimage.Rect(0, 0, dstW, dstH)}
		stagedImg := &stdimage.RGBA{Pix: staged, Stride: copyW * 4, Rect: stdimage.Rect(0, 0, copyW, copyH)}
		dstRect := stdimage.Rect(dstX, dstY, dstX+copyW, dstY+copyH)
		draw.Draw(dstImg, dstRect, stagedImg, stdimage.Pt(0, 0), draw.Src)
		return nil
	}

	for row := 0; row < copyH; row++ {
		for col := 0; col < copyW; col++ {
			so := (row*copyW + col) * 4
			sr, sg, sb, sa := staged[so], staged[so+1], staged[so+2], staged[so+3]
			do := ((dstY+row)*dstW + (dstX + col)) * 4

			switch sa {
			case 255:
				dstData[do], dstData[do+1], dstData[do+2], dstData[do+3] = sr, sg, sb, sa
				continue
			case 0:
				continue
			}

			dr, dg, db, da := dstData[do], dstData[do+1], dstData[do+2], dstData[do+3]
			outA := int(sa) + int(da)*(255-int(sa))/255
			if outA > 0 {
				dstData[do] = byte((int(sr)*int(sa) + int(dr)*int(da)*(255-int(sa))/255) / outA)
				dstData[do+1] = byte((int(sg)*int(sa) + int(dg)*int(da)*(255-int(sa))/255) / outA)
				dstData[do+2] = byte((int(sb)*int(sa) + int(db)*int(da)*(255-int(sa))/255) / outA)
			}
			dstData[do+3] = byte(outA)
		}
	}
	return nil
}
