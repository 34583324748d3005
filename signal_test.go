package watermark

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestNCC(t *testing.T) {
	a := []float64{0.1, 0.5, 0.9, 0.3, 0.7}
	inv := make([]float64, len(a))
	scaled := make([]float64, len(a))
	for i, v := range a {
		inv[i] = 1 - v
		scaled[i] = 3*v + 7
	}

	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", a, a, 1},
		{"inverse", a, inv, -1},
		{"affine", a, scaled, 1},
		{"empty", nil, nil, 0},
		{"flat", a, []float64{0.4, 0.4, 0.4, 0.4, 0.4}, 0},
		{"length mismatch", a, a[:3], 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ncc(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("ncc = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSobelMagnitude(t *testing.T) {
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 0.5
	}
	for i, g := range sobelMagnitude(flat, 10, 10) {
		if g != 0 {
			t.Fatalf("flat grid has gradient %v at %d", g, i)
		}
	}

	edge := make([]float64, 100)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			edge[y*10+x] = 1
		}
	}
	grad := sobelMagnitude(edge, 10, 10)
	if grad[5*10+5] < 0.1 {
		t.Fatalf("expected a response on the edge, got %v", grad[5*10+5])
	}
	if grad[5*10+8] != 0 {
		t.Fatalf("expected no response away from the edge, got %v", grad[5*10+8])
	}
	if grad[0] != 0 || grad[99] != 0 {
		t.Fatalf("border cells must be zero")
	}
}

func TestLocalVariation(t *testing.T) {
	// Checkerboard of 0/1: every neighbour pair differs by 1.
	data := make([]float64, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			data[y*4+x] = float64((x + y) % 2)
		}
	}
	if got := localVariation(data, 4, 4, nil); math.Abs(got-1) > 1e-12 {
		t.Fatalf("checkerboard variation %v, want 1", got)
	}

	keep := make([]bool, 16)
	if got := localVariation(data, 4, 4, keep); got != 0 {
		t.Fatalf("no kept pairs should give 0, got %v", got)
	}
}

func TestRegionLuma(t *testing.T) {
	img := solidImage(4, 4, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	gray := regionLuma(img, image.Rect(1, 1, 3, 3))
	if len(gray) != 4 {
		t.Fatalf("len %d, want 4", len(gray))
	}
	for _, g := range gray {
		if math.Abs(g-0.299) > 1e-9 {
			t.Fatalf("luma %v, want 0.299", g)
		}
	}
}

func TestReferenceStrip(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 200)

	ref, ok := referenceStrip(bounds, image.Rect(120, 120, 168, 168))
	if !ok || ref != image.Rect(120, 72, 168, 120) {
		t.Fatalf("above: got %v %v", ref, ok)
	}

	ref, ok = referenceStrip(bounds, image.Rect(120, 2, 168, 50))
	if !ok || ref != image.Rect(72, 2, 120, 50) {
		t.Fatalf("left fallback: got %v %v", ref, ok)
	}

	if _, ok := referenceStrip(image.Rect(0, 0, 50, 50), image.Rect(1, 1, 49, 49)); ok {
		t.Fatalf("no strip should fit")
	}
}
