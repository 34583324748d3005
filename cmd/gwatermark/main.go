package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	watermark "github.com/gcslaoli/gwatermark"
	"github.com/gcslaoli/gwatermark/internal/batch"
	"github.com/gcslaoli/gwatermark/internal/config"
	"github.com/gcslaoli/gwatermark/internal/logging"
	"github.com/gcslaoli/gwatermark/internal/server"
)

// gwatermark photo.png                     -> photo_cleaned.png
// gwatermark -o out.jpg photo.jpg
// gwatermark -o cleaned/ ./generated/      batch a directory
// gwatermark -detect photo.png             report only
// gwatermark serve -config gwatermark.yaml

const usageFooter = `
NOTE: only the VISIBLE Gemini watermark (sparkle logo) is removed.
Invisible watermarks such as SynthID are not affected.
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		os.Exit(runServe(os.Args[2:]))
	}
	os.Exit(runRemove(os.Args[1:]))
}

type commonFlags struct {
	configPath string
	verbose    bool
	quiet      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Config file (default ./"+config.DefaultFile+" if present)")
	fs.BoolVar(&c.verbose, "verbose", false, "Enable debug output")
	fs.BoolVar(&c.quiet, "quiet", false, "Only print errors")
}

func (c *commonFlags) setup() (*config.Config, *zap.Logger, *watermark.Engine, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Mode, c.verbose, c.quiet)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize logger: %w", err)
	}

	engine, err := watermark.NewEngine(watermark.WithPlacement(cfg.PlacementConfig()))
	if err != nil {
		logging.Sync(logger)
		return nil, nil, nil, fmt.Errorf("initialize engine: %w", err)
	}

	return cfg, logger, engine, nil
}

func runRemove(args []string) int {
	fs := flag.NewFlagSet("gwatermark", flag.ExitOnError)
	var (
		common     commonFlags
		output     string
		force      = fs.Bool("force", false, "Skip detection and always remove")
		threshold  = fs.Float64("threshold", -1, "Detection confidence threshold in [0, 1] (default from config)")
		forceSmall = fs.Bool("force-small", false, "Use the 48x48 watermark regardless of image size")
		forceLarge = fs.Bool("force-large", false, "Use the 96x96 watermark regardless of image size")
		detectOnly = fs.Bool("detect", false, "Only report detection results")
		workers    = fs.Int("workers", 0, "Files processed in parallel (default from config)")
	)
	common.register(fs)
	fs.StringVar(&output, "o", "", "Output file or directory (default <name>_cleaned.<ext>)")
	fs.StringVar(&output, "out", "", "Alias for -o")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gwatermark [flags] <image|directory>\n       gwatermark serve [flags]\n\n")
		fs.PrintDefaults()
		fmt.Fprint(fs.Output(), usageFooter)
	}
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	if *forceSmall && *forceLarge {
		fmt.Fprintln(os.Stderr, "Error: cannot specify both -force-small and -force-large")
		return 1
	}
	if *threshold != -1 && (*threshold < 0 || *threshold > 1) {
		fmt.Fprintln(os.Stderr, "Error: threshold must be between 0.0 and 1.0")
		return 1
	}

	cfg, logger, engine, err := common.setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		return 1
	}
	defer logging.Sync(logger)

	opts := cfg.ProcessOptions()
	if *force {
		opts.Force = true
	}
	if *threshold != -1 {
		opts.Threshold = *threshold
	}
	switch {
	case *forceSmall:
		opts.Size = watermark.SizeSmall
	case *forceLarge:
		opts.Size = watermark.SizeLarge
	}

	proc := &batch.Processor{
		Engine:      engine,
		Options:     opts,
		Logger:      logger,
		Workers:     cfg.Batch.Workers,
		Suffix:      cfg.Batch.Suffix,
		JPEGQuality: cfg.Output.JPEGQuality,
		DetectOnly:  *detectOnly,
	}
	if *workers > 0 {
		proc.Workers = *workers
	}

	if opts.Force && !*detectOnly {
		logger.Warn("force mode: processing all images without detection")
	} else {
		logger.Info("auto-detection enabled", zap.Float64("threshold", opts.Threshold))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, err := proc.Run(ctx, fs.Arg(0), output)
	if err != nil && len(sum.Results) == 0 {
		logger.Error("run failed", zap.Error(err))
		return 1
	}

	for _, r := range sum.Results {
		report(logger, r)
	}
	if len(sum.Results) > 1 {
		logger.Info("summary",
			zap.Int("processed", sum.Processed),
			zap.Int("skipped", sum.Skipped),
			zap.Int("failed", sum.Failed),
			zap.Int("total", len(sum.Results)))
	}

	return sum.ExitCode()
}

func report(logger *zap.Logger, r batch.Result) {
	name := filepath.Base(r.Path)
	fields := []zap.Field{zap.String("file", name)}
	if r.Detection != nil {
		fields = append(fields, zap.Float64("confidence", r.Detection.Confidence))
	}

	switch r.Status {
	case batch.StatusOK:
		if r.Output != "" {
			fields = append(fields, zap.String("output", r.Output))
		}
		logger.Info("[OK] "+r.Message, fields...)
	case batch.StatusSkipped:
		logger.Info("[SKIP] "+r.Message, fields...)
	default:
		logger.Error("[FAIL] "+r.Message, fields...)
	}
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	port := fs.String("port", "", "Listen address (default from config)")
	fs.Parse(args)

	cfg, logger, engine, err := common.setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		return 1
	}
	defer logging.Sync(logger)

	if *port != "" {
		cfg.Server.Port = *port
	}

	srv := server.New(engine, cfg.ProcessOptions(), cfg.Server, logger)
	if err := srv.Run(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return 1
	}
	return 0
}
