package watermark

import "image"

// DefaultThreshold is the fused confidence required before Remove rewrites
// pixels.
const DefaultThreshold = 0.35

// ProcessOptions configures a single Detect or Remove call.
type ProcessOptions struct {
	// Threshold is the minimum confidence for Remove to proceed. Zero, the
	// zero value, accepts every image; see DefaultProcessOptions.
	Threshold float64
	// Force skips detection entirely.
	Force bool
	// Size overrides the size class chosen from the image dimensions.
	Size SizeClass
	// Region, when set, replaces the computed footprint. It must be square;
	// the mask is scaled to its side.
	Region *image.Rectangle
}

// DefaultProcessOptions returns options with DefaultThreshold and automatic
// placement.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{Threshold: DefaultThreshold}
}

// ProcessResult summarizes a Remove call.
type ProcessResult struct {
	Modified bool
	// Detection is nil when the call was forced.
	Detection     *DetectionResult
	Placement     Placement
	PixelsChanged int
}
