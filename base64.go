package watermark

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
)

// DecodeBase64Image decodes a base64-encoded image (optionally a data URL) into
// an image.Image. It returns the decoded image and the detected format string
// ("png", "jpeg", "webp", etc.).
func DecodeBase64Image(input string) (image.Image, string, error) {
	raw := stripDataPrefix(input)

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}

	return DecodeImageBytes(data)
}

// EncodePNGToBase64 encodes an image as PNG and returns a base64 string.
func EncodePNGToBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// RemoveWatermarkBase64 removes the watermark from a base64-encoded image and
// returns the cleaned image as base64 PNG. output is empty when the image
// was left untouched.
func RemoveWatermarkBase64(input string) (output string, res ProcessResult, err error) {
	img, _, err := DecodeBase64Image(input)
	if err != nil {
		return "", ProcessResult{}, err
	}

	cleaned, res, err := RemoveWatermark(img)
	if err != nil {
		return "", ProcessResult{}, err
	}
	if !res.Modified {
		return "", res, nil
	}

	output, err = EncodePNGToBase64(cleaned)
	if err != nil {
		return "", ProcessResult{}, err
	}
	return output, res, nil
}

func stripDataPrefix(input string) string {
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "data:") {
		if idx := strings.Index(input, ","); idx != -1 {
			return input[idx+1:]
		}
	}
	return input
}
