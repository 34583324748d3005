package watermark

import "bytes"

// DetectWatermarkBytes checks raw image bytes for the watermark without
// performing any cleanup.
func DetectWatermarkBytes(data []byte) (DetectionResult, error) {
	img, _, err := DecodeImageBytes(data)
	if err != nil {
		return DetectionResult{}, err
	}
	return DetectWatermark(img)
}

// RemoveWatermarkBytes decodes data, removes the watermark with default
// options and returns the cleaned image as PNG. out is nil when detection
// fell below the threshold and nothing was changed.
func RemoveWatermarkBytes(data []byte) (out []byte, res ProcessResult, err error) {
	img, _, err := DecodeImageBytes(data)
	if err != nil {
		return nil, ProcessResult{}, err
	}

	cleaned, res, err := RemoveWatermark(img)
	if err != nil {
		return nil, ProcessResult{}, err
	}
	if !res.Modified {
		return nil, res, nil
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, cleaned); err != nil {
		return nil, ProcessResult{}, err
	}
	return buf.Bytes(), res, nil
}
