// Package server exposes the engine over HTTP: upload an image, get back the
// detection scores and, for removal, the cleaned PNG as base64.
package server

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	watermark "github.com/gcslaoli/gwatermark"
	"github.com/gcslaoli/gwatermark/internal/config"
)

// Server serves detection and removal requests with a shared engine.
type Server struct {
	engine   *watermark.Engine
	defaults watermark.ProcessOptions
	cfg      config.ServerConfig
	logger   *zap.Logger
}

// New builds a Server. defaults are the per-request options before form
// overrides; a nil logger disables logging.
func New(engine *watermark.Engine, defaults watermark.ProcessOptions, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, defaults: defaults, cfg: cfg, logger: logger}
}

// Box is the watermark footprint in image coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Response is the JSON body of a successful detect or remove call. Data holds
// the cleaned PNG as base64 and is only set when pixels were rewritten.
type Response struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	Detected      bool    `json:"detected"`
	Confidence    float64 `json:"confidence"`
	Spatial       float64 `json:"spatial"`
	Gradient      float64 `json:"gradient"`
	Variance      float64 `json:"variance"`
	Size          string  `json:"size"`
	Box           Box     `json:"box"`
	PixelsChanged int     `json:"pixels_changed"`
	Data          string  `json:"data,omitempty"`
}

// ErrorResponse is the JSON body of a rejected request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", limitBody(s.cfg.MaxUpload))
	{
		api.POST("/detect", s.detect)
		api.POST("/remove", s.remove)
	}

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	if s.cfg.Mode != "" {
		gin.SetMode(s.cfg.Mode)
	}
	s.logger.Info("server starting", zap.String("port", s.cfg.Port))
	return s.Router().Run(s.cfg.Port)
}

func (s *Server) detect(c *gin.Context) {
	img, opts, ok := s.parse(c)
	if !ok {
		return
	}

	det, err := s.engine.Detect(img, opts)
	if err != nil {
		s.engineError(c, err)
		return
	}

	resp := fromDetection(det)
	resp.Status = "success"
	resp.Message = "watermark detected"
	if !det.Detected {
		resp.Status = "skipped"
		resp.Message = fmt.Sprintf("no watermark detected (%.0f%% < %.0f%%)", det.Confidence*100, opts.Threshold*100)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) remove(c *gin.Context) {
	img, opts, ok := s.parse(c)
	if !ok {
		return
	}

	res, err := s.engine.Remove(img, opts)
	if err != nil {
		s.engineError(c, err)
		return
	}

	resp := Response{Size: res.Placement.Size.String(), Box: toBox(res.Placement.Rect)}
	if res.Detection != nil {
		resp = fromDetection(*res.Detection)
	}
	resp.PixelsChanged = res.PixelsChanged

	if !res.Modified {
		resp.Status = "skipped"
		resp.Message = fmt.Sprintf("confidence too low (%.0f%% < %.0f%%)", resp.Confidence*100, opts.Threshold*100)
		c.JSON(http.StatusOK, resp)
		return
	}

	data, err := watermark.EncodePNGToBase64(img)
	if err != nil {
		s.logger.Error("failed to encode result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "encode failed", Error: err.Error()})
		return
	}

	resp.Status = "success"
	resp.Message = "watermark removed"
	resp.Data = data
	c.JSON(http.StatusOK, resp)
}

// parse reads the uploaded image and per-request options. It writes the
// error response itself and reports ok=false on failure.
func (s *Server) parse(c *gin.Context) (*image.RGBA, watermark.ProcessOptions, bool) {
	opts := s.defaults

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "missing image file", Error: err.Error()})
		return nil, opts, false
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid file", Error: err.Error()})
		return nil, opts, false
	}
	defer f.Close()

	src, _, err := watermark.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "decode failed", Error: err.Error()})
		return nil, opts, false
	}

	if err := applyForm(c, &opts); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid parameters", Error: err.Error()})
		return nil, opts, false
	}

	return watermark.CloneRGBA(src), opts, true
}

func applyForm(c *gin.Context, opts *watermark.ProcessOptions) error {
	if v := c.PostForm("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			return fmt.Errorf("threshold must be a number in [0, 1], got %q", v)
		}
		opts.Threshold = t
	}

	if v := c.PostForm("force"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("force: %w", err)
		}
		opts.Force = force
	}

	size, err := watermark.ParseSizeClass(c.PostForm("size"))
	if err != nil {
		return err
	}
	opts.Size = size

	if c.PostForm("x") == "" && c.PostForm("y") == "" {
		return nil
	}
	x, errX := strconv.Atoi(c.PostForm("x"))
	y, errY := strconv.Atoi(c.PostForm("y"))
	if errX != nil || errY != nil {
		return errors.New("x and y must both be integers")
	}
	side := size.NativeSize()
	if side == 0 {
		side = watermark.SizeSmall.NativeSize()
	}
	if v := c.PostForm("w"); v != "" {
		if side, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("w: %w", err)
		}
	}
	region := image.Rect(x, y, x+side, y+side)
	opts.Region = &region
	return nil
}

func (s *Server) engineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, watermark.ErrUnsupportedSize):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "image too small", Error: err.Error()})
	case errors.Is(err, watermark.ErrInvalidRegion):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid region", Error: err.Error()})
	default:
		s.logger.Error("engine failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "processing failed", Error: err.Error()})
	}
}

func fromDetection(det watermark.DetectionResult) Response {
	return Response{
		Detected:   det.Detected,
		Confidence: det.Confidence,
		Spatial:    det.Spatial,
		Gradient:   det.Gradient,
		Variance:   det.Variance,
		Size:       det.Placement.Size.String(),
		Box:        toBox(det.Placement.Rect),
	}
}

func toBox(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}
