package watermark

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSize is matched by errors returned for images that cannot
	// hold the watermark footprint.
	ErrUnsupportedSize = errors.New("unsupported image size")

	// ErrInvalidRegion reports an explicit region override that is empty or
	// falls outside the image.
	ErrInvalidRegion = errors.New("invalid watermark region")

	// ErrNilImage is returned when a nil image is passed in.
	ErrNilImage = errors.New("nil image provided")
)

// InitError reports missing or malformed calibration data. An Engine cannot
// be built when it occurs.
type InitError struct {
	Asset string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("load calibration %s: %v", e.Asset, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// SizeError describes an image too small for the resolved footprint.
type SizeError struct {
	Width, Height int
	Footprint     int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("image too small (%dx%d) for %dx%d watermark", e.Width, e.Height, e.Footprint, e.Footprint)
}

// Is lets errors.Is(err, ErrUnsupportedSize) match.
func (e *SizeError) Is(target error) bool { return target == ErrUnsupportedSize }
