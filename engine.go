package watermark

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// Engine detects and removes the watermark. It only reads its mask
// repository, so one Engine may serve many goroutines.
type Engine struct {
	masks     *MaskRepository
	placement PlacementConfig
	score     scoreFunc
}

// EngineOption customizes NewEngine.
type EngineOption func(*Engine)

// WithMasks uses repo instead of the embedded calibration.
func WithMasks(repo *MaskRepository) EngineOption {
	return func(e *Engine) { e.masks = repo }
}

// WithPlacement replaces the default placement model.
func WithPlacement(cfg PlacementConfig) EngineOption {
	return func(e *Engine) { e.placement = cfg }
}

// NewEngine builds an Engine. It fails with *InitError when the embedded
// calibration data cannot be loaded.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		placement: DefaultPlacementConfig(),
		score:     score,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.masks == nil {
		masks, err := DefaultMasks()
		if err != nil {
			return nil, err
		}
		e.masks = masks
	}

	return e, nil
}

var defaultEngine struct {
	once sync.Once
	eng  *Engine
	err  error
}

// Default returns a process-wide Engine built with default settings.
func Default() (*Engine, error) {
	defaultEngine.once.Do(func() {
		defaultEngine.eng, defaultEngine.err = NewEngine()
	})
	return defaultEngine.eng, defaultEngine.err
}

// Placement resolves where the watermark is expected in an image with the
// given bounds.
func (e *Engine) Placement(bounds image.Rectangle, opts ProcessOptions) (Placement, error) {
	return e.placement.Resolve(bounds, opts)
}

func (e *Engine) maskFor(p Placement) *AlphaMask {
	return e.masks.Get(p.Size).Resample(p.Rect.Dx(), p.Rect.Dy())
}

// Detect scores the expected watermark footprint of img. It never modifies
// img and only fails when the footprint cannot be placed.
func (e *Engine) Detect(img *image.RGBA, opts ProcessOptions) (DetectionResult, error) {
	if img == nil {
		return DetectionResult{}, ErrNilImage
	}

	p, err := e.Placement(img.Bounds(), opts)
	if err != nil {
		return DetectionResult{}, err
	}

	return e.score(img, e.maskFor(p), p, opts.Threshold), nil
}

// Remove reverses the watermark in place. Unless opts.Force is set the
// footprint is scored first and left untouched when the confidence is
// below opts.Threshold; the detection is attached to the result either way.
//
// The zero ProcessOptions has a threshold of 0 and therefore rewrites every
// image; start from DefaultProcessOptions instead. img is treated as opaque
// straight colour; use CloneRGBA for inputs with transparency.
func (e *Engine) Remove(img *image.RGBA, opts ProcessOptions) (ProcessResult, error) {
	if img == nil {
		return ProcessResult{}, ErrNilImage
	}

	p, err := e.Placement(img.Bounds(), opts)
	if err != nil {
		return ProcessResult{}, err
	}

	mask := e.maskFor(p)
	res := ProcessResult{Placement: p}

	if !opts.Force {
		det := e.score(img, mask, p, opts.Threshold)
		res.Detection = &det
		if det.Confidence < opts.Threshold {
			return res, nil
		}
	}

	res.PixelsChanged = applyReverseAlpha(img, mask, p.Rect)
	res.Modified = true

	return res, nil
}

// RemoveWatermark runs Remove on a copy of img and returns the copy.
func (e *Engine) RemoveWatermark(img image.Image, opts ProcessOptions) (*image.RGBA, ProcessResult, error) {
	if img == nil {
		return nil, ProcessResult{}, ErrNilImage
	}

	rgba := CloneRGBA(img)
	res, err := e.Remove(rgba, opts)
	if err != nil {
		return nil, ProcessResult{}, err
	}
	return rgba, res, nil
}

// DetectImage runs Detect on any image.Image, converting to RGBA when needed.
func (e *Engine) DetectImage(img image.Image, opts ProcessOptions) (DetectionResult, error) {
	if img == nil {
		return DetectionResult{}, ErrNilImage
	}
	return e.Detect(asRGBA(img), opts)
}

// RemoveWatermark applies the default engine with default options to a copy
// of img.
func RemoveWatermark(img image.Image) (*image.RGBA, ProcessResult, error) {
	eng, err := Default()
	if err != nil {
		return nil, ProcessResult{}, err
	}
	return eng.RemoveWatermark(img, DefaultProcessOptions())
}

// DetectWatermark scores img with the default engine and options.
func DetectWatermark(img image.Image) (DetectionResult, error) {
	eng, err := Default()
	if err != nil {
		return DetectionResult{}, err
	}
	return eng.DetectImage(img, DefaultProcessOptions())
}

// WatermarkInfo reports the default placement for an image size.
func WatermarkInfo(width, height int) (Placement, error) {
	return DefaultPlacementConfig().Resolve(image.Rect(0, 0, width, height), ProcessOptions{})
}

// CloneRGBA copies the image into a new opaque RGBA buffer. Transparency is
// dropped and colour is kept unpremultiplied, so the blend is reversed on
// the colour that was composited rather than on colour scaled by alpha.
func CloneRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)

	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
		return dst
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		off := dst.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x, off = x+1, off+4 {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2], dst.Pix[off+3] = c.R, c.G, c.B, 0xff
		}
	}
	return dst
}

// asRGBA avoids the copy when src already is an opaque *image.RGBA.
func asRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Opaque() {
		return rgba
	}
	return CloneRGBA(src)
}
