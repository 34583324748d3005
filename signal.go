package watermark

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// minStdDev guards correlations against flat inputs whose deviations are
// only floating point noise.
const minStdDev = 1e-6

// regionLuma converts rect of img to row-major luminance in [0, 1].
func regionLuma(img *image.RGBA, rect image.Rectangle) []float64 {
	gray := make([]float64, 0, rect.Dx()*rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r, g, b := float64(img.Pix[off]), float64(img.Pix[off+1]), float64(img.Pix[off+2])
			gray = append(gray, (0.299*r+0.587*g+0.114*b)/255.0)
			off += 4
		}
	}
	return gray
}

// ncc is the normalized cross-correlation of a and b in [-1, 1]. Flat or
// too-short inputs carry no pattern and score 0.
func ncc(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	if stat.PopStdDev(a, nil) < minStdDev || stat.PopStdDev(b, nil) < minStdDev {
		return 0
	}

	c := stat.Correlation(a, b, nil)
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}

// sobelMagnitude returns the 3x3 Sobel gradient magnitude of a w x h grid.
// Border cells are 0.
func sobelMagnitude(data []float64, w, h int) []float64 {
	out := make([]float64, len(data))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			gx := (data[i-w+1] + 2*data[i+1] + data[i+w+1]) - (data[i-w-1] + 2*data[i-1] + data[i+w-1])
			gy := (data[i+w-1] + 2*data[i+w] + data[i+w+1]) - (data[i-w-1] + 2*data[i-w] + data[i-w+1])
			out[i] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return out
}

// localVariation is the RMS difference between horizontally and vertically
// adjacent cells of a w x h grid. When keep is non-nil only pairs whose
// cells are both kept contribute.
func localVariation(data []float64, w, h int, keep []bool) float64 {
	var sum float64
	var n int

	pair := func(i, j int) {
		if keep != nil && (!keep[i] || !keep[j]) {
			return
		}
		d := data[i] - data[j]
		sum += d * d
		n++
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x+1 < w {
				pair(i, i+1)
			}
			if y+1 < h {
				pair(i, i+w)
			}
		}
	}

	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// gather returns the values of data at the given indices.
func gather(data []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = data[i]
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
