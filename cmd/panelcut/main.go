package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "panelcut",
		Usage: "cut comic and manga pages into panels",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "panelcut.yaml", Usage: "YAML settings file (optional)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "json", Usage: "log as JSON to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "detect panels on every page and export them with a manifest",
				ArgsUsage: "INPUT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "contour or projection"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory for panels and manifest"},
					&cli.StringFlag{Name: "format", Usage: "panel image format (png, jpg, bmp, gif, tiff)"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "pages processed in parallel (0 = auto)"},
					&cli.IntFlag{Name: "dpi", Usage: "rasterisation DPI for PDF, CBZ and EPUB input"},
					&cli.StringFlag{Name: "composite", Usage: "also stitch every panel into this image"},
					&cli.StringFlag{Name: "catalog", Usage: "record the run in this SQLite database"},
				},
				Action: extractAction,
			},
			{
				Name:      "compose",
				Usage:     "stitch the panels included in a manifest into one image",
				ArgsUsage: "OUTPUT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "manifest to read (default: newest in --out)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "directory searched for the newest manifest"},
				},
				Action: composeAction,
			},
		},
	}
}

func newLogger(level string, asJSON bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
