package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	watermark "github.com/gcslaoli/gwatermark"
	"github.com/gcslaoli/gwatermark/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) *Server {
	t.Helper()
	eng, err := watermark.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return New(eng, watermark.DefaultProcessOptions(), config.Default().Server, nil)
}

func greyPNG(t *testing.T, w, h int, marked bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 200, 200, 255
	}

	if marked {
		p, err := watermark.WatermarkInfo(w, h)
		if err != nil {
			t.Fatalf("WatermarkInfo: %v", err)
		}
		masks, _ := watermark.DefaultMasks()
		mask := masks.Get(p.Size)
		for y := 0; y < p.Rect.Dy(); y++ {
			for x := 0; x < p.Rect.Dx(); x++ {
				v := watermark.Blend(200, float64(mask.At(x, y)))
				img.Set(p.Rect.Min.X+x, p.Rect.Min.Y+y, color.RGBA{R: v, G: v, B: v, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, srv *Server, path string, file []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("image", "upload.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %s: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestDetectEndpoint(t *testing.T) {
	srv := newServer(t)

	rec := upload(t, srv, "/api/v1/detect", greyPNG(t, 256, 256, true), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" || !resp.Detected || resp.Data != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Box != (Box{X: 176, Y: 176, W: 48, H: 48}) || resp.Size != "small" {
		t.Fatalf("box %+v size %s", resp.Box, resp.Size)
	}

	rec = upload(t, srv, "/api/v1/detect", greyPNG(t, 256, 256, false), nil)
	if resp := decodeResponse(t, rec); resp.Status != "skipped" || resp.Detected {
		t.Fatalf("clean image: %+v", resp)
	}
}

func TestRemoveEndpoint(t *testing.T) {
	srv := newServer(t)

	rec := upload(t, srv, "/api/v1/remove", greyPNG(t, 256, 256, true), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" || resp.Data == "" || resp.PixelsChanged == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}

	cleaned, _, err := watermark.DecodeBase64Image(resp.Data)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	r, _, _, _ := cleaned.At(200, 200).RGBA()
	if d := int(r>>8) - 200; d < -1 || d > 1 {
		t.Fatalf("centre pixel %d, want 200±1", r>>8)
	}

	rec = upload(t, srv, "/api/v1/remove", greyPNG(t, 256, 256, false), nil)
	if resp := decodeResponse(t, rec); resp.Status != "skipped" || resp.Data != "" {
		t.Fatalf("clean image: %+v", resp)
	}

	rec = upload(t, srv, "/api/v1/remove", greyPNG(t, 256, 256, false), map[string]string{"force": "true"})
	if resp := decodeResponse(t, rec); resp.Status != "success" || resp.Data == "" {
		t.Fatalf("forced: %+v", resp)
	}
}

func TestRegionOverride(t *testing.T) {
	srv := newServer(t)
	rec := upload(t, srv, "/api/v1/detect", greyPNG(t, 256, 256, true), map[string]string{"x": "176", "y": "176"})
	resp := decodeResponse(t, rec)
	if !resp.Detected || resp.Box != (Box{X: 176, Y: 176, W: 48, H: 48}) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRegionSideField(t *testing.T) {
	srv := newServer(t)
	rec := upload(t, srv, "/api/v1/detect", greyPNG(t, 256, 256, false), map[string]string{"x": "10", "y": "20", "w": "72"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Box != (Box{X: 10, Y: 20, W: 72, H: 72}) || resp.Size != "small" {
		t.Fatalf("box %+v size %s", resp.Box, resp.Size)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newServer(t)
	cases := []struct {
		name   string
		file   []byte
		fields map[string]string
		want   int
	}{
		{"missing file", nil, nil, http.StatusBadRequest},
		{"not an image", []byte("hello"), nil, http.StatusBadRequest},
		{"bad threshold", greyPNG(t, 128, 128, false), map[string]string{"threshold": "2"}, http.StatusBadRequest},
		{"bad size", greyPNG(t, 128, 128, false), map[string]string{"size": "huge"}, http.StatusBadRequest},
		{"region outside", greyPNG(t, 128, 128, false), map[string]string{"x": "120", "y": "120"}, http.StatusBadRequest},
		{"bad side", greyPNG(t, 128, 128, false), map[string]string{"x": "10", "y": "10", "w": "big"}, http.StatusBadRequest},
		{"too small", greyPNG(t, 60, 60, false), nil, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := upload(t, srv, "/api/v1/remove", tc.file, tc.fields)
			if rec.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}
