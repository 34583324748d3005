package watermark

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// SizeClass selects one of the two calibrated masks.
type SizeClass int

const (
	// SizeAuto lets the placement resolver pick the class from image size.
	SizeAuto SizeClass = iota
	// SizeSmall is the 48x48 logo used on images up to the breakpoint.
	SizeSmall
	// SizeLarge is the 96x96 logo used on images above the breakpoint.
	SizeLarge
)

// NativeSize returns the side of the calibrated mask in pixels.
func (s SizeClass) NativeSize() int {
	switch s {
	case SizeSmall:
		return 48
	case SizeLarge:
		return 96
	default:
		return 0
	}
}

func (s SizeClass) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeLarge:
		return "large"
	default:
		return "auto"
	}
}

// ParseSizeClass maps "small", "large", "auto" or "" to a SizeClass.
func ParseSizeClass(v string) (SizeClass, error) {
	switch v {
	case "", "auto":
		return SizeAuto, nil
	case "small", "48":
		return SizeSmall, nil
	case "large", "96":
		return SizeLarge, nil
	}
	return SizeAuto, fmt.Errorf("unknown watermark size %q", v)
}

// AlphaMask is an immutable grid of blend weights in [0, 1].
type AlphaMask struct {
	width, height int
	weights       []float32
}

// NewAlphaMask validates weights (row-major, width*height entries) and wraps
// them in a mask. The slice is copied.
func NewAlphaMask(width, height int, weights []float32) (*AlphaMask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask dimensions %dx%d", width, height)
	}
	if len(weights) != width*height {
		return nil, fmt.Errorf("alpha map size mismatch: have %d, want %d", len(weights), width*height)
	}
	for i, w := range weights {
		if math.IsNaN(float64(w)) || w < 0 || w > 1 {
			return nil, fmt.Errorf("alpha weight %v at index %d outside [0, 1]", w, i)
		}
	}

	m := &AlphaMask{width: width, height: height, weights: make([]float32, len(weights))}
	copy(m.weights, weights)
	return m, nil
}

// Bounds returns the mask extent with its origin at (0, 0).
func (m *AlphaMask) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// At returns the weight at column x, row y.
func (m *AlphaMask) At(x, y int) float32 { return m.weights[y*m.width+x] }

// Resample returns the mask scaled to width x height with bilinear
// interpolation. The receiver is returned when no scaling is needed.
func (m *AlphaMask) Resample(width, height int) *AlphaMask {
	if width == m.width && height == m.height {
		return m
	}

	src := image.NewGray16(m.Bounds())
	for i, w := range m.weights {
		v := uint16(math.Round(float64(w) * 0xffff))
		src.Pix[2*i] = uint8(v >> 8)
		src.Pix[2*i+1] = uint8(v)
	}

	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := &AlphaMask{width: width, height: height, weights: make([]float32, width*height)}
	for i := range out.weights {
		v := uint16(dst.Pix[2*i])<<8 | uint16(dst.Pix[2*i+1])
		out.weights[i] = float32(v) / 0xffff
	}
	return out
}

// MaskRepository holds the calibrated masks. It is never mutated after
// construction, so one repository may be shared by any number of goroutines.
type MaskRepository struct {
	small *AlphaMask
	large *AlphaMask
}

// NewMaskRepository builds a repository from already validated masks.
func NewMaskRepository(small, large *AlphaMask) (*MaskRepository, error) {
	if err := checkNative(SizeSmall, small); err != nil {
		return nil, err
	}
	if err := checkNative(SizeLarge, large); err != nil {
		return nil, err
	}
	return &MaskRepository{small: small, large: large}, nil
}

func checkNative(class SizeClass, m *AlphaMask) error {
	n := class.NativeSize()
	if m == nil {
		return &InitError{Asset: class.String(), Err: fmt.Errorf("mask missing")}
	}
	if m.width != n || m.height != n {
		return &InitError{
			Asset: class.String(),
			Err:   fmt.Errorf("mask is %dx%d, want %dx%d", m.width, m.height, n, n),
		}
	}
	return nil
}

// Get returns the mask for class. SizeAuto and unknown values fall back to
// the small mask.
func (r *MaskRepository) Get(class SizeClass) *AlphaMask {
	if class == SizeLarge {
		return r.large
	}
	return r.small
}
