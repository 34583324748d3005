package watermark

import (
	"embed"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"sync"
)

//go:embed assets/bg_48.png assets/bg_96.png
var embeddedAssets embed.FS

var defaultMasks struct {
	once sync.Once
	repo *MaskRepository
	err  error
}

// DefaultMasks returns the repository decoded from the embedded calibration
// captures. Decoding happens once per process.
func DefaultMasks() (*MaskRepository, error) {
	defaultMasks.once.Do(func() {
		defaultMasks.repo, defaultMasks.err = LoadMasks(embeddedAssets)
	})
	return defaultMasks.repo, defaultMasks.err
}

// LoadMasks decodes assets/bg_48.png and assets/bg_96.png from fsys.
func LoadMasks(fsys fs.FS) (*MaskRepository, error) {
	small, err := loadMask(fsys, SizeSmall)
	if err != nil {
		return nil, err
	}
	large, err := loadMask(fsys, SizeLarge)
	if err != nil {
		return nil, err
	}
	return NewMaskRepository(small, large)
}

func loadMask(fsys fs.FS, class SizeClass) (*AlphaMask, error) {
	filename := fmt.Sprintf("assets/bg_%d.png", class.NativeSize())

	f, err := fsys.Open(filename)
	if err != nil {
		return nil, &InitError{Asset: filename, Err: err}
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, &InitError{Asset: filename, Err: fmt.Errorf("decode: %w", err)}
	}

	b := img.Bounds()
	if n := class.NativeSize(); b.Dx() != n || b.Dy() != n {
		return nil, &InitError{
			Asset: filename,
			Err:   fmt.Errorf("capture is %dx%d, want %dx%d", b.Dx(), b.Dy(), n, n),
		}
	}

	mask, err := NewAlphaMask(b.Dx(), b.Dy(), calculateAlphaMap(img))
	if err != nil {
		return nil, &InitError{Asset: filename, Err: err}
	}
	return mask, nil
}

// calculateAlphaMap extracts the maximum RGB channel per pixel of a capture
// of the logo over black and scales it to [0, 1].
func calculateAlphaMap(img image.Image) []float32 {
	bounds := img.Bounds()
	alpha := make([]float32, bounds.Dx()*bounds.Dy())

	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()

			max := r
			if g > max {
				max = g
			}
			if b > max {
				max = b
			}

			alpha[idx] = float32(max) / 65535.0
			idx++
		}
	}

	return alpha
}
