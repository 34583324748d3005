// Package batch runs the engine over files and directories with bounded
// parallelism. Per-file failures are collected rather than aborting the run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	watermark "github.com/gcslaoli/gwatermark"
)

// Status is the outcome for a single file.
type Status string

// Per-file outcomes. Only StatusFailed affects the exit code.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result describes what happened to one input file.
type Result struct {
	Path          string
	Output        string
	Status        Status
	Detection     *watermark.DetectionResult
	PixelsChanged int
	Message       string
	Err           error
}

// Summary aggregates the results of a run, in input order.
type Summary struct {
	Results   []Result
	Processed int
	Skipped   int
	Failed    int
}

// ExitCode is 1 when any file failed. Skips do not count as failures.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusOK:
		s.Processed++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Processor holds the settings for a run. The zero value is not usable;
// Engine is required.
type Processor struct {
	Engine  *watermark.Engine
	Options watermark.ProcessOptions
	Logger  *zap.Logger

	// Workers bounds concurrently processed files; values below 1 mean 1.
	Workers int
	// Suffix is appended to the file stem for default output names.
	Suffix      string
	JPEGQuality int
	// DetectOnly reports detections without writing anything.
	DetectOnly bool
}

var supportedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true,
}

// IsSupported reports whether path has an image extension the tool handles.
func IsSupported(path string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(path))]
}

// DefaultOutputPath turns "dir/photo.jpg" into "dir/photo<suffix>.jpg".
// WebP inputs get a .png output since only decoding is available for WebP.
func DefaultOutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(input), stem+suffix+outputExt(ext))
}

func outputExt(ext string) string {
	if strings.EqualFold(ext, ".webp") {
		return ".png"
	}
	return ext
}

type job struct {
	in, out string
}

// Run processes input, which may be a file or a directory. For a directory
// output must name the destination directory; for a file an empty output
// selects DefaultOutputPath. The returned error covers problems with the
// run itself; per-file problems land in the Summary.
func (p *Processor) Run(ctx context.Context, input, output string) (Summary, error) {
	if p.Engine == nil {
		return Summary{}, errors.New("batch: no engine configured")
	}

	info, err := os.Stat(input)
	if err != nil {
		return Summary{}, fmt.Errorf("input path: %w", err)
	}

	var jobs []job
	if info.IsDir() {
		jobs, err = p.dirJobs(input, output)
		if err != nil {
			return Summary{}, err
		}
	} else {
		out := output
		if out == "" {
			out = DefaultOutputPath(input, p.suffix())
		} else if ext := filepath.Ext(out); outputExt(ext) != ext {
			out = strings.TrimSuffix(out, ext) + outputExt(ext)
		}
		jobs = []job{{in: input, out: out}}
	}

	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Workers))
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Path: j.in, Status: StatusFailed, Err: err, Message: "cancelled"}
				return nil
			}
			results[i] = p.ProcessFile(j.in, j.out)
			return nil
		})
	}
	_ = g.Wait()

	var sum Summary
	for _, r := range results {
		sum.add(r)
	}
	return sum, ctx.Err()
}

func (p *Processor) dirJobs(input, output string) ([]job, error) {
	if output == "" && !p.DetectOnly {
		return nil, errors.New("output directory is required for batch processing")
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	if !p.DetectOnly {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	var jobs []job
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsSupported(e.Name()) {
			continue
		}
		ext := filepath.Ext(e.Name())
		name := strings.TrimSuffix(e.Name(), ext) + outputExt(ext)
		jobs = append(jobs, job{
			in:  filepath.Join(input, e.Name()),
			out: filepath.Join(output, name),
		})
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].in < jobs[b].in })

	return jobs, nil
}

func (p *Processor) suffix() string {
	if p.Suffix == "" {
		return "_cleaned"
	}
	return p.Suffix
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// ProcessFile loads in, runs detection or removal, and writes the result to
// out. It is safe to call from several goroutines.
func (p *Processor) ProcessFile(in, out string) Result {
	log := p.logger().With(zap.String("path", in))
	res := Result{Path: in}

	src, err := imaging.Open(in)
	if err != nil {
		return p.fail(log, res, "failed to load", err)
	}
	img := watermark.CloneRGBA(src)

	if p.DetectOnly {
		det, err := p.Engine.Detect(img, p.Options)
		if err != nil {
			return p.unsupported(log, res, err)
		}
		res.Detection = &det
		res.Status = StatusSkipped
		res.Message = describe(det)
		if det.Detected {
			res.Status = StatusOK
		}
		log.Info("detected", zap.Bool("present", det.Detected), zap.Float64("confidence", det.Confidence))
		return res
	}

	pr, err := p.Engine.Remove(img, p.Options)
	if err != nil {
		return p.unsupported(log, res, err)
	}
	res.Detection = pr.Detection
	res.PixelsChanged = pr.PixelsChanged

	if !pr.Modified {
		res.Status = StatusSkipped
		res.Message = "No watermark detected (" + describe(*pr.Detection) + ")"
		log.Info("skipped", zap.String("reason", res.Message))
		return res
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return p.fail(log, res, "failed to create output directory", err)
	}

	quality := p.JPEGQuality
	if quality <= 0 {
		quality = 100
	}
	if err := imaging.Save(img, out, imaging.JPEGQuality(quality)); err != nil {
		return p.fail(log, res, "failed to save", err)
	}

	res.Output = out
	res.Status = StatusOK
	res.Message = "Watermark removed"

	fields := []zap.Field{
		zap.String("output", out),
		zap.Int("pixels_changed", pr.PixelsChanged),
		zap.Stringer("size", pr.Placement.Size),
	}
	if pr.Detection != nil {
		fields = append(fields, zap.Float64("confidence", pr.Detection.Confidence))
	}
	log.Info("watermark removed", fields...)

	return res
}

// unsupported turns a size error into a skip and anything else into a
// failure.
func (p *Processor) unsupported(log *zap.Logger, res Result, err error) Result {
	if errors.Is(err, watermark.ErrUnsupportedSize) {
		res.Status = StatusSkipped
		res.Err = err
		res.Message = err.Error()
		log.Info("skipped", zap.Error(err))
		return res
	}
	return p.fail(log, res, "failed to process", err)
}

func (p *Processor) fail(log *zap.Logger, res Result, msg string, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	res.Message = fmt.Sprintf("%s: %v", msg, err)
	log.Error(msg, zap.Error(err))
	return res
}

func describe(det watermark.DetectionResult) string {
	return fmt.Sprintf("%.0f%% confidence, spatial=%.2f, grad=%.2f, var=%.2f",
		det.Confidence*100, det.Spatial, det.Gradient, det.Variance)
}
