package watermark

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Corner is the image corner the logo is anchored to.
type Corner int

// Supported anchors. BottomRight is where Gemini places its logo.
const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

var cornerNames = map[Corner]string{
	BottomRight: "bottom-right",
	BottomLeft:  "bottom-left",
	TopRight:    "top-right",
	TopLeft:     "top-left",
}

func (c Corner) String() string {
	if s, ok := cornerNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Corner(%d)", int(c))
}

// ParseCorner accepts the names printed by Corner.String.
func ParseCorner(v string) (Corner, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return BottomRight, nil
	}
	for c, name := range cornerNames {
		if name == v {
			return c, nil
		}
	}
	return BottomRight, fmt.Errorf("unknown corner %q", v)
}

// ClassPlacement tunes the placement of one size class.
type ClassPlacement struct {
	// Margin is the gap in pixels between the logo and both image edges at
	// native scale.
	Margin int
	// ReferenceSide, when positive, is the shorter image side at which the
	// logo is rendered at native size. Other images scale the footprint and
	// margin by min(width, height) / ReferenceSide.
	ReferenceSide int
}

// PlacementConfig holds the tunable placement model.
type PlacementConfig struct {
	// Breakpoint: images whose shorter side exceeds it use the large mask.
	Breakpoint int
	Corner     Corner
	Small      ClassPlacement
	Large      ClassPlacement
}

// DefaultPlacementConfig matches where Gemini places its logo: 48x48 with a
// 32px margin, or 96x96 with a 64px margin once both sides exceed 1024px,
// anchored bottom-right.
func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		Breakpoint: 1024,
		Corner:     BottomRight,
		Small:      ClassPlacement{Margin: 32},
		Large:      ClassPlacement{Margin: 64},
	}
}

// Placement is where a mask is aligned within an image.
type Placement struct {
	Size SizeClass
	// Rect is the footprint in image coordinates.
	Rect image.Rectangle
	// Scale is footprint width over native mask width; 1 when unscaled.
	Scale float64
}

// SizeFor picks the size class for an image of the given dimensions.
func (c PlacementConfig) SizeFor(width, height int) SizeClass {
	if min(width, height) > c.Breakpoint {
		return SizeLarge
	}
	return SizeSmall
}

func (c PlacementConfig) class(s SizeClass) ClassPlacement {
	if s == SizeLarge {
		return c.Large
	}
	return c.Small
}

// Resolve computes the placement for an image with the given bounds.
func (c PlacementConfig) Resolve(bounds image.Rectangle, opts ProcessOptions) (Placement, error) {
	if opts.Region != nil {
		return resolveRegion(bounds, *opts.Region, opts.Size)
	}

	width, height := bounds.Dx(), bounds.Dy()
	size := opts.Size
	if size == SizeAuto {
		size = c.SizeFor(width, height)
	}

	native := size.NativeSize()
	cp := c.class(size)

	scale := 1.0
	if cp.ReferenceSide > 0 {
		scale = float64(min(width, height)) / float64(cp.ReferenceSide)
	}
	footprint := max(1, int(math.Round(float64(native)*scale)))
	margin := int(math.Round(float64(cp.Margin) * scale))

	var x, y int
	switch c.Corner {
	case BottomLeft:
		x, y = bounds.Min.X+margin, bounds.Max.Y-margin-footprint
	case TopRight:
		x, y = bounds.Max.X-margin-footprint, bounds.Min.Y+margin
	case TopLeft:
		x, y = bounds.Min.X+margin, bounds.Min.Y+margin
	default:
		x, y = bounds.Max.X-margin-footprint, bounds.Max.Y-margin-footprint
	}

	rect := image.Rect(x, y, x+footprint, y+footprint)
	if bounds.Empty() || !rect.In(bounds) {
		return Placement{}, &SizeError{Width: width, Height: height, Footprint: footprint}
	}

	return Placement{
		Size:  size,
		Rect:  rect,
		Scale: float64(footprint) / float64(native),
	}, nil
}

func resolveRegion(bounds, region image.Rectangle, size SizeClass) (Placement, error) {
	region = region.Canon()
	if region.Empty() || !region.In(bounds) {
		return Placement{}, fmt.Errorf("%w: %v not within %v", ErrInvalidRegion, region, bounds)
	}
	// The logo is square; a stretched mask would not match it.
	if region.Dx() != region.Dy() {
		return Placement{}, fmt.Errorf("%w: %v is not square", ErrInvalidRegion, region)
	}

	side := region.Dx()
	if size == SizeAuto {
		size = SizeSmall
		if side > (SizeSmall.NativeSize()+SizeLarge.NativeSize())/2 {
			size = SizeLarge
		}
	}

	return Placement{
		Size:  size,
		Rect:  region,
		Scale: float64(region.Dx()) / float64(size.NativeSize()),
	}, nil
}
