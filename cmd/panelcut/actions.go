package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/ivlev/panelcut/internal/catalog"
	"github.com/ivlev/panelcut/internal/compose"
	"github.com/ivlev/panelcut/internal/config"
	"github.com/ivlev/panelcut/internal/engine"
	"github.com/ivlev/panelcut/internal/manifest"
	"github.com/ivlev/panelcut/internal/source"
	"github.com/ivlev/panelcut/internal/system"
)

// loadConfig reads the settings file and applies the flags that were given.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("out") {
		cfg.OutputDir = c.String("out")
	}
	if c.IsSet("format") {
		cfg.OutputFormat = c.String("format")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("dpi") {
		cfg.DPI = c.Int("dpi")
	}
	if c.IsSet("composite") {
		cfg.Composite = c.String("composite")
	}
	if c.IsSet("catalog") {
		cfg.CatalogPath = c.String("catalog")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func extractAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one INPUT (image, folder of images, PDF or CBZ), got %d arguments", c.NArg())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Input = c.Args().First()

	logger := newLogger(cfg.LogLevel, c.Bool("json"))
	system.InitResourceLimits(logger)

	det, err := engine.NewDetector(cfg)
	if err != nil {
		return err
	}

	src, err := source.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()
	fmt.Printf("[*] Source: %s (%d pages, strategy %s)\n", cfg.Input, src.PageCount(), cfg.Strategy)

	project := engine.NewProject(cfg, src, det, logger)
	if cfg.CatalogPath != "" {
		cat, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer cat.Close()
		project.Catalog = cat
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := project.Run(ctx)
	if err != nil {
		return err
	}

	for _, p := range report.Manifest.Pages {
		if p.Error != "" {
			fmt.Printf("[!] Page %s skipped: %s\n", p.Name, p.Error)
		}
	}
	fmt.Printf("[+] %d panels from %d pages (%d failed) in %s\n",
		report.Panels, report.Pages, report.Failed, report.Elapsed.Round(time.Millisecond))
	fmt.Printf("[+] Manifest: %s\n", report.ManifestPath)
	if report.RunID != "" {
		fmt.Printf("[+] Catalog run: %s\n", report.RunID)
	}

	if cfg.Composite != "" {
		return writeComposite(report.Manifest, report.ManifestPath, cfg.Composite)
	}
	return nil
}

func composeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one OUTPUT image path, got %d arguments", c.NArg())
	}

	manifestPath := c.String("manifest")
	if manifestPath == "" {
		dir := c.String("out")
		if dir == "" {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			dir = cfg.OutputDir
		}
		latest, err := manifest.FindLatest(dir)
		if err != nil {
			return err
		}
		manifestPath = latest
		fmt.Printf("[*] Using manifest: %s\n", manifestPath)
	}

	m, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}
	return writeComposite(m, manifestPath, c.Args().First())
}

func writeComposite(m *manifest.Manifest, manifestPath, outPath string) error {
	_, _, included := m.Counts()

	bounds, err := engine.ComposeManifest(m, manifestPath, outPath)
	if errors.Is(err, compose.ErrEmptySelection) {
		fmt.Println("[!] Nothing to compose: no panel is marked as included")
		return err
	}
	if err != nil {
		return err
	}

	size := "unknown size"
	if fi, err := os.Stat(outPath); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	fmt.Printf("[+] Composite: %s (%d panels, %dx%d, %s)\n", outPath, included, bounds.Dx(), bounds.Dy(), size)
	return nil
}
