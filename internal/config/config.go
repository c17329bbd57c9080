// Package config holds runtime settings for panel extraction. Values come
// from an optional YAML file and are then overridden by command-line flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Input        string           `yaml:"-"`        // set from the command line
	Strategy     string           `yaml:"strategy"` // contour | projection
	Contour      ContourConfig    `yaml:"contour"`
	Projection   ProjectionConfig `yaml:"projection"`
	Workers      int              `yaml:"workers"` // 0 = pick from CPU and memory
	DPI          int              `yaml:"dpi"`     // rasterisation of PDF/CBZ/EPUB pages
	OutputDir    string           `yaml:"output_dir"`
	OutputFormat string           `yaml:"output_format"`
	Composite    string           `yaml:"composite"` // optional strip of every panel
	CatalogPath  string           `yaml:"catalog"`   // optional SQLite run catalog
	LogLevel     string           `yaml:"log_level"`
}

type ContourConfig struct {
	Threshold    int     `yaml:"threshold"`
	KernelSize   int     `yaml:"kernel_size"`
	Iterations   int     `yaml:"iterations"`
	MinAreaRatio float64 `yaml:"min_area_ratio"`
}

type ProjectionConfig struct {
	BusyRatio float64 `yaml:"busy_ratio"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Strategy: "contour",
		Contour: ContourConfig{
			Threshold:    200,
			KernelSize:   5,
			Iterations:   5,
			MinAreaRatio: 0.01,
		},
		Projection: ProjectionConfig{
			BusyRatio: 0.01,
		},
		Workers:      0,
		DPI:          150,
		OutputDir:    "panels",
		OutputFormat: "png",
		LogLevel:     "info",
	}
}

// Validate clamps/normalizes values to safe ranges. Only an unknown
// strategy is reported as an error.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}
	if c.Strategy != "contour" && c.Strategy != "projection" {
		return fmt.Errorf("unknown strategy %q (want contour or projection)", c.Strategy)
	}
	if c.Contour.Threshold <= 0 || c.Contour.Threshold > 255 {
		c.Contour.Threshold = def.Contour.Threshold
	}
	if c.Contour.KernelSize <= 0 {
		c.Contour.KernelSize = def.Contour.KernelSize
	}
	if c.Contour.KernelSize%2 == 0 {
		c.Contour.KernelSize++
	}
	if c.Contour.Iterations < 0 {
		c.Contour.Iterations = def.Contour.Iterations
	}
	if c.Contour.MinAreaRatio < 0 || c.Contour.MinAreaRatio >= 1 {
		c.Contour.MinAreaRatio = def.Contour.MinAreaRatio
	}
	if c.Projection.BusyRatio <= 0 || c.Projection.BusyRatio >= 1 {
		c.Projection.BusyRatio = def.Projection.BusyRatio
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.DPI <= 0 {
		c.DPI = def.DPI
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	switch c.OutputFormat {
	case "png", "jpg", "jpeg", "bmp", "gif", "tif", "tiff":
	default:
		c.OutputFormat = def.OutputFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return nil
}

// Load reads configuration from the given YAML file. A missing file yields
// DefaultConfig(). Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save validates the configuration and writes it to path as YAML. A config
// that Load would reject is not written.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
