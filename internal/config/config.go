// Package config loads gwatermark settings from an optional YAML file and
// GWATERMARK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	watermark "github.com/gcslaoli/gwatermark"
)

// DefaultFile is read when no path is given and it exists.
const DefaultFile = "gwatermark.yaml"

// Config is the full gwatermark configuration.
type Config struct {
	Detection DetectionConfig `mapstructure:"detection"`
	Placement PlacementConfig `mapstructure:"placement"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DetectionConfig holds the default per-image options.
type DetectionConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Force     bool    `mapstructure:"force"`
}

// ClassConfig tunes the placement of one logo size.
type ClassConfig struct {
	Margin        int `mapstructure:"margin"`
	ReferenceSide int `mapstructure:"reference_side"`
}

// PlacementConfig mirrors watermark.PlacementConfig with a named corner.
type PlacementConfig struct {
	Breakpoint int         `mapstructure:"breakpoint"`
	Corner     string      `mapstructure:"corner"`
	Small      ClassConfig `mapstructure:"small"`
	Large      ClassConfig `mapstructure:"large"`
}

// BatchConfig controls file and directory runs.
type BatchConfig struct {
	Workers int    `mapstructure:"workers"`
	Suffix  string `mapstructure:"suffix"`
}

// OutputConfig controls how cleaned images are written.
type OutputConfig struct {
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// LogConfig selects the logger preset.
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// ServerConfig configures the HTTP surface. MaxUpload is in bytes.
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`
	MaxUpload int64  `mapstructure:"max_upload"`
}

// Load reads configPath. An empty path reads DefaultFile if present and
// otherwise falls back to defaults; environment variables apply either way.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GWATERMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("detection.threshold", d.Detection.Threshold)
	v.SetDefault("detection.force", d.Detection.Force)

	v.SetDefault("placement.breakpoint", d.Placement.Breakpoint)
	v.SetDefault("placement.corner", d.Placement.Corner)
	v.SetDefault("placement.small.margin", d.Placement.Small.Margin)
	v.SetDefault("placement.small.reference_side", d.Placement.Small.ReferenceSide)
	v.SetDefault("placement.large.margin", d.Placement.Large.Margin)
	v.SetDefault("placement.large.reference_side", d.Placement.Large.ReferenceSide)

	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.suffix", d.Batch.Suffix)

	v.SetDefault("output.jpeg_quality", d.Output.JPEGQuality)

	v.SetDefault("log.mode", d.Log.Mode)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.max_upload", d.Server.MaxUpload)
}

// Default returns the built-in configuration.
func Default() *Config {
	placement := watermark.DefaultPlacementConfig()

	return &Config{
		Detection: DetectionConfig{
			Threshold: watermark.DefaultThreshold,
		},
		Placement: PlacementConfig{
			Breakpoint: placement.Breakpoint,
			Corner:     placement.Corner.String(),
			Small:      ClassConfig{Margin: placement.Small.Margin},
			Large:      ClassConfig{Margin: placement.Large.Margin},
		},
		Batch: BatchConfig{
			Workers: runtime.NumCPU(),
			Suffix:  "_cleaned",
		},
		Output: OutputConfig{
			JPEGQuality: 100,
		},
		Log: LogConfig{
			Mode: "development",
		},
		Server: ServerConfig{
			Port:      ":8080",
			Mode:      "release",
			MaxUpload: 50 << 20,
		},
	}
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	if c.Detection.Threshold < 0 || c.Detection.Threshold > 1 {
		return fmt.Errorf("detection.threshold %v outside [0, 1]", c.Detection.Threshold)
	}
	if _, err := watermark.ParseCorner(c.Placement.Corner); err != nil {
		return fmt.Errorf("placement.corner: %w", err)
	}
	if c.Placement.Breakpoint <= 0 {
		return fmt.Errorf("placement.breakpoint must be positive, got %d", c.Placement.Breakpoint)
	}
	for name, cls := range map[string]ClassConfig{"small": c.Placement.Small, "large": c.Placement.Large} {
		if cls.Margin < 0 || cls.ReferenceSide < 0 {
			return fmt.Errorf("placement.%s: negative margin or reference side", name)
		}
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality %d outside [1, 100]", c.Output.JPEGQuality)
	}
	if c.Batch.Workers < 1 {
		c.Batch.Workers = 1
	}
	return nil
}

// PlacementConfig converts the placement section for the engine.
func (c *Config) PlacementConfig() watermark.PlacementConfig {
	corner, _ := watermark.ParseCorner(c.Placement.Corner)
	return watermark.PlacementConfig{
		Breakpoint: c.Placement.Breakpoint,
		Corner:     corner,
		Small:      watermark.ClassPlacement{Margin: c.Placement.Small.Margin, ReferenceSide: c.Placement.Small.ReferenceSide},
		Large:      watermark.ClassPlacement{Margin: c.Placement.Large.Margin, ReferenceSide: c.Placement.Large.ReferenceSide},
	}
}

// ProcessOptions returns the per-call engine options from the detection
// section.
func (c *Config) ProcessOptions() watermark.ProcessOptions {
	return watermark.ProcessOptions{
		Threshold: c.Detection.Threshold,
		Force:     c.Detection.Force,
	}
}
