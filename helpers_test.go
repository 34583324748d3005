package watermark

import (
	"image"
	"image/color"
	"testing"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	eng, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// noiseImage fills an image with a deterministic pseudo-random texture
// around a mid grey.
func noiseImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	state := uint32(2463534242)
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			state ^= state << 13
			state ^= state >> 17
			state ^= state << 5
			img.Pix[i+c] = uint8(80 + state%81)
		}
		img.Pix[i+3] = 0xff
	}
	return img
}

// paste composites the logo onto img at rect using the forward blend.
func paste(img *image.RGBA, mask *AlphaMask, rect image.Rectangle) {
	for row := 0; row < rect.Dy(); row++ {
		for col := 0; col < rect.Dx(); col++ {
			a := float64(mask.At(col, row))
			if a < alphaThreshold {
				continue
			}
			off := img.PixOffset(rect.Min.X+col, rect.Min.Y+row)
			for c := 0; c < 3; c++ {
				img.Pix[off+c] = Blend(img.Pix[off+c], a)
			}
		}
	}
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}
