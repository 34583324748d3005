package watermark

import (
	"image"
)

const (
	spatialWeight  = 0.50
	gradientWeight = 0.30
	varianceWeight = 0.20

	// Spatial scores below min(threshold, spatialCircuitBreaker) end
	// detection early with confidence spatial/2.
	spatialCircuitBreaker = 0.25

	// Reference strips thinner than this are not used for variance analysis.
	minRefExtent = 8
	// Reference texture below this (normalized luma) counts as flat.
	minRefVariation = 5.0 / 255.0
)

// DetectionResult reports how strongly the watermark pattern shows up at
// the resolved placement.
type DetectionResult struct {
	// Detected is Confidence >= the threshold the detection ran with.
	Detected   bool
	Confidence float64
	Placement  Placement

	// Individual signals, each in [0, 1].
	Spatial  float64
	Gradient float64
	Variance float64
}

type scoreFunc func(img *image.RGBA, mask *AlphaMask, p Placement, threshold float64) DetectionResult

// score runs the three detection signals over p.Rect. mask must already be
// sized to the footprint.
func score(img *image.RGBA, mask *AlphaMask, p Placement, threshold float64) DetectionResult {
	res := DetectionResult{Placement: p}

	rect := p.Rect
	w, h := rect.Dx(), rect.Dy()

	gray := regionLuma(img, rect)
	alpha := make([]float64, len(mask.weights))
	keep := make([]bool, len(mask.weights))
	support := make([]int, 0, len(mask.weights))
	for i, a := range mask.weights {
		alpha[i] = float64(a)
		if a >= alphaThreshold {
			keep[i] = true
			support = append(support, i)
		}
	}
	if len(support) < 2 {
		return res
	}

	res.Spatial = clamp01(ncc(gather(gray, support), gather(alpha, support)))

	if res.Spatial < min(threshold, spatialCircuitBreaker) {
		res.Confidence = res.Spatial * 0.5
		res.Detected = res.Confidence >= threshold
		return res
	}

	grayGrad := sobelMagnitude(gray, w, h)
	alphaGrad := sobelMagnitude(alpha, w, h)
	res.Gradient = clamp01(ncc(gather(grayGrad, support), gather(alphaGrad, support)))

	res.Variance = varianceScore(img, rect, gray, alpha, keep, support)

	res.Confidence = clamp01(spatialWeight*res.Spatial +
		gradientWeight*res.Gradient +
		varianceWeight*res.Variance)
	res.Detected = res.Confidence >= threshold

	return res
}

// varianceScore measures how much of the texture damping predicted by the
// mask is present. Compositing scales local variation by (1-alpha), so the
// supported pixels are compared against an unaffected strip next to rect.
func varianceScore(img *image.RGBA, rect image.Rectangle, gray, alpha []float64, keep []bool, support []int) float64 {
	ref, ok := referenceStrip(img.Bounds(), rect)
	if !ok {
		return 0
	}

	refVar := localVariation(regionLuma(img, ref), ref.Dx(), ref.Dy(), nil)
	if refVar < minRefVariation {
		return 1
	}

	var damping float64
	for _, i := range support {
		damping += alpha[i]
	}
	damping /= float64(len(support))
	if damping < alphaThreshold {
		return 0
	}

	observed := localVariation(gray, rect.Dx(), rect.Dy(), keep) / refVar
	return clamp01((1 - observed) / damping)
}

// referenceStrip picks a strip of the same shape as rect directly above it,
// falling back to the left, below and right.
func referenceStrip(bounds, rect image.Rectangle) (image.Rectangle, bool) {
	w, h := rect.Dx(), rect.Dy()
	candidates := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y-h, rect.Max.X, rect.Min.Y),
		image.Rect(rect.Min.X-w, rect.Min.Y, rect.Min.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Max.Y, rect.Max.X, rect.Max.Y+h),
		image.Rect(rect.Max.X, rect.Min.Y, rect.Max.X+w, rect.Max.Y),
	}
	for _, c := range candidates {
		c = c.Intersect(bounds)
		if c.Dx() >= minRefExtent && c.Dy() >= minRefExtent {
			return c, true
		}
	}
	return image.Rectangle{}, false
}
