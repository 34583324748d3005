// Package watermark removes the visible Gemini sparkle watermark by reversing
// the alpha blending used to apply it.
//
// The package ships calibrated 48x48 and 96x96 alpha masks for the logo.
// An Engine resolves where the logo sits for a given image size, scores how
// likely it is that the logo is actually there (spatial correlation, edge
// correlation and texture damping), and inverts
//
//	watermarked = alpha*logo + (1-alpha)*original
//
// for every covered pixel. Everything runs in memory on an *image.RGBA; the
// Engine holds no mutable state and is safe for concurrent use.
//
// Invisible watermarks such as SynthID are out of reach of this technique.
package watermark
