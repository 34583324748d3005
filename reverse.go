package watermark

import (
	"image"
	"math"
)

const (
	// Weights below alphaThreshold are treated as zero: the pixel is left
	// byte-for-byte unchanged.
	alphaThreshold = 0.002
	// Weights at or above maxAlpha destroyed the original pixel; it is left
	// as is rather than dividing by a near-zero (1 - alpha).
	maxAlpha = 0.99

	// LogoValue is the calibrated fill of the logo in every channel.
	LogoValue = 255.0
)

// toChannel clamps v to [0, 255] and rounds half away from zero. Both
// directions of the blend use this rule.
func toChannel(v float64) uint8 {
	v = math.Max(0, math.Min(255, v))
	return uint8(math.Round(v))
}

// Blend applies the forward watermark composite to a single channel value.
func Blend(base uint8, alpha float64) uint8 {
	return toChannel(alpha*LogoValue + (1-alpha)*float64(base))
}

// Unblend inverts Blend. ok is false when alpha is outside the recoverable
// range and v is returned unchanged.
func Unblend(v uint8, alpha float64) (uint8, bool) {
	if alpha < alphaThreshold || alpha >= maxAlpha {
		return v, false
	}
	return toChannel((float64(v) - alpha*LogoValue) / (1 - alpha)), true
}

// applyReverseAlpha performs the reverse alpha blending within rect, which
// must have the mask's dimensions. It mutates the RGB channels of img in
// place, leaves alpha alone, and returns how many pixels changed.
func applyReverseAlpha(img *image.RGBA, mask *AlphaMask, rect image.Rectangle) int {
	changed := 0

	for row := 0; row < rect.Dy(); row++ {
		offset := img.PixOffset(rect.Min.X, rect.Min.Y+row)
		for col := 0; col < rect.Dx(); col, offset = col+1, offset+4 {
			alpha := float64(mask.At(col, row))
			if alpha < alphaThreshold || alpha >= maxAlpha {
				continue
			}

			touched := false
			for c := 0; c < 3; c++ {
				original, _ := Unblend(img.Pix[offset+c], alpha)
				if original != img.Pix[offset+c] {
					img.Pix[offset+c] = original
					touched = true
				}
			}
			if touched {
				changed++
			}
		}
	}

	return changed
}
