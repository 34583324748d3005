package watermark

import (
	"errors"
	"image"
	"testing"
)

func TestSizeFor(t *testing.T) {
	cfg := DefaultPlacementConfig()
	cases := []struct {
		w, h int
		want SizeClass
	}{
		{800, 600, SizeSmall},
		{1024, 1024, SizeSmall},
		{2048, 512, SizeSmall},
		{512, 2048, SizeSmall},
		{1025, 1025, SizeLarge},
		{4096, 2048, SizeLarge},
	}
	for _, tc := range cases {
		if got := cfg.SizeFor(tc.w, tc.h); got != tc.want {
			t.Errorf("SizeFor(%d, %d) = %v, want %v", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestResolveDefaultAnchor(t *testing.T) {
	cfg := DefaultPlacementConfig()

	p, err := cfg.Resolve(image.Rect(0, 0, 256, 200), ProcessOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := image.Rect(176, 120, 224, 168); p.Rect != want || p.Size != SizeSmall || p.Scale != 1 {
		t.Fatalf("got %+v, want small at %v", p, want)
	}

	p, err = cfg.Resolve(image.Rect(0, 0, 2048, 1536), ProcessOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := image.Rect(1888, 1376, 1984, 1472); p.Rect != want || p.Size != SizeLarge {
		t.Fatalf("got %+v, want large at %v", p, want)
	}

	p, err = cfg.Resolve(image.Rect(10, 20, 266, 220), ProcessOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := image.Rect(186, 140, 234, 188); p.Rect != want {
		t.Fatalf("offset bounds: got %v, want %v", p.Rect, want)
	}
}

func TestResolveCorners(t *testing.T) {
	bounds := image.Rect(0, 0, 300, 200)
	cases := []struct {
		corner Corner
		want   image.Rectangle
	}{
		{BottomRight, image.Rect(220, 120, 268, 168)},
		{BottomLeft, image.Rect(32, 120, 80, 168)},
		{TopRight, image.Rect(220, 32, 268, 80)},
		{TopLeft, image.Rect(32, 32, 80, 80)},
	}
	for _, tc := range cases {
		t.Run(tc.corner.String(), func(t *testing.T) {
			cfg := DefaultPlacementConfig()
			cfg.Corner = tc.corner
			p, err := cfg.Resolve(bounds, ProcessOptions{})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if p.Rect != tc.want {
				t.Fatalf("rect %v, want %v", p.Rect, tc.want)
			}
		})
	}
}

func TestResolveUnsupportedSize(t *testing.T) {
	cfg := DefaultPlacementConfig()

	for _, tc := range []struct {
		w, h int
		opts ProcessOptions
	}{
		{79, 200, ProcessOptions{}},
		{200, 79, ProcessOptions{}},
		{0, 0, ProcessOptions{}},
		{150, 150, ProcessOptions{Size: SizeLarge}},
	} {
		_, err := cfg.Resolve(image.Rect(0, 0, tc.w, tc.h), tc.opts)
		if !errors.Is(err, ErrUnsupportedSize) {
			t.Fatalf("%dx%d: want ErrUnsupportedSize, got %v", tc.w, tc.h, err)
		}
		var sizeErr *SizeError
		if !errors.As(err, &sizeErr) || sizeErr.Width != tc.w {
			t.Fatalf("%dx%d: want *SizeError, got %v", tc.w, tc.h, err)
		}
	}

	if _, err := cfg.Resolve(image.Rect(0, 0, 80, 80), ProcessOptions{}); err != nil {
		t.Fatalf("80x80 is the smallest supported image: %v", err)
	}
}

func TestResolveForcedSize(t *testing.T) {
	cfg := DefaultPlacementConfig()
	p, err := cfg.Resolve(image.Rect(0, 0, 800, 800), ProcessOptions{Size: SizeLarge})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := image.Rect(640, 640, 736, 736); p.Rect != want || p.Size != SizeLarge {
		t.Fatalf("got %+v, want large at %v", p, want)
	}
}

func TestResolveRegionOverride(t *testing.T) {
	cfg := DefaultPlacementConfig()
	bounds := image.Rect(0, 0, 400, 300)

	region := image.Rect(100, 50, 172, 122)
	p, err := cfg.Resolve(bounds, ProcessOptions{Region: &region})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Rect != region || p.Size != SizeSmall || p.Scale != 1.5 {
		t.Fatalf("got %+v", p)
	}

	region = image.Rect(0, 0, 90, 90)
	if p, _ = cfg.Resolve(bounds, ProcessOptions{Region: &region}); p.Size != SizeLarge {
		t.Fatalf("90px region should use the large mask, got %v", p.Size)
	}

	for _, bad := range []image.Rectangle{
		image.Rect(380, 280, 420, 320),
		image.Rect(10, 10, 10, 40),
		image.Rect(10, 10, 106, 58),
	} {
		bad := bad
		if _, err := cfg.Resolve(bounds, ProcessOptions{Region: &bad}); !errors.Is(err, ErrInvalidRegion) {
			t.Fatalf("region %v: want ErrInvalidRegion, got %v", bad, err)
		}
	}
}

func TestResolveReferenceScaling(t *testing.T) {
	cfg := DefaultPlacementConfig()
	cfg.Small.ReferenceSide = 512

	p, err := cfg.Resolve(image.Rect(0, 0, 768, 1024), ProcessOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// 1.5x: 72px logo, 48px margin.
	if want := image.Rect(648, 904, 720, 976); p.Rect != want || p.Scale != 1.5 {
		t.Fatalf("got %+v, want %v at scale 1.5", p, want)
	}
}

func TestParseCorner(t *testing.T) {
	for _, c := range []Corner{BottomRight, BottomLeft, TopRight, TopLeft} {
		got, err := ParseCorner(c.String())
		if err != nil || got != c {
			t.Fatalf("round trip %v: got %v, %v", c, got, err)
		}
	}
	if _, err := ParseCorner("middle"); err == nil {
		t.Fatalf("expected error")
	}
}
