package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/panelcut/internal/analyzer"
	"github.com/ivlev/panelcut/internal/catalog"
	"github.com/ivlev/panelcut/internal/config"
	"github.com/ivlev/panelcut/internal/manifest"
	"github.com/ivlev/panelcut/internal/page"
	"github.com/ivlev/panelcut/internal/source"
	"github.com/ivlev/panelcut/internal/system"
)

// Project runs one detector over every page of a source and exports the
// panels next to a review manifest.
type Project struct {
	Config   *config.Config
	Source   source.Source
	Detector analyzer.Detector
	Catalog  *catalog.Catalog // optional
	Logger   *slog.Logger
}

// Report summarises a finished run.
type Report struct {
	Manifest     *manifest.Manifest
	ManifestPath string
	RunID        string
	Pages        int
	Failed       int
	Panels       int
	Elapsed      time.Duration
}

type pageResult struct {
	name   string
	panels []manifest.Panel
	err    error
}

func NewProject(cfg *config.Config, src source.Source, det analyzer.Detector, logger *slog.Logger) *Project {
	if logger == nil {
		logger = slog.Default()
	}
	return &Project{
		Config:   cfg,
		Source:   src,
		Detector: det,
		Logger:   logger,
	}
}

// NewDetector builds the configured strategy.
func NewDetector(cfg *config.Config) (analyzer.Detector, error) {
	det, err := analyzer.NewDetector(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	switch d := det.(type) {
	case *analyzer.ContourDetector:
		d.Threshold = uint8(cfg.Contour.Threshold)
		d.KernelSize = cfg.Contour.KernelSize
		d.Iterations = cfg.Contour.Iterations
		d.MinAreaRatio = cfg.Contour.MinAreaRatio
	case *analyzer.ProjectionSlicer:
		d.BusyRatio = cfg.Projection.BusyRatio
	}
	return det, nil
}

// Run processes all pages. A page that fails to render, decode, segment or
// save is logged, recorded with its error and skipped; the other pages are
// unaffected. Cancelling ctx stops scheduling new pages.
func (p *Project) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()

	pageCount := p.Source.PageCount()
	if pageCount == 0 {
		return nil, fmt.Errorf("source contains no pages")
	}
	// Panel files are named after their page, so names must not repeat.
	names := make([]string, pageCount)
	seen := make(map[string]int, pageCount)
	for i := range names {
		names[i] = p.Source.PageName(i)
		if j, dup := seen[names[i]]; dup {
			return nil, fmt.Errorf("pages %d and %d share the name %q", j, i, names[i])
		}
		seen[names[i]] = i
	}

	if err := os.MkdirAll(p.Config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var runID string
	if p.Catalog != nil {
		id, err := p.Catalog.BeginRun(p.Config.Input, p.Config.Strategy)
		if err != nil {
			return nil, err
		}
		runID = id
	}

	workers := system.RecommendedWorkers(p.Config.Workers)
	if workers > pageCount {
		workers = pageCount
	}
	p.Logger.Info("extracting panels",
		"source", p.Config.Input,
		"pages", pageCount,
		"strategy", p.Config.Strategy,
		"workers", workers,
	)

	// Each worker owns its slot, so results need no lock.
	results := make([]pageResult, pageCount)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < pageCount; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.processPage(ctx, i, names[i])
			if p.Catalog != nil {
				p.record(runID, i, results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &manifest.Manifest{
		Version:     manifest.Version,
		Source:      p.Config.Input,
		Strategy:    p.Config.Strategy,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
	for i, r := range results {
		mp := manifest.Page{Index: i, Name: r.name, Panels: r.panels}
		if r.err != nil {
			mp.Error = r.err.Error()
		}
		m.Pages = append(m.Pages, mp)
	}

	manifestPath := manifest.DefaultPath(p.Config.OutputDir)
	if err := manifest.Write(m, manifestPath); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	failed, panels, _ := m.Counts()
	report := &Report{
		Manifest:     m,
		ManifestPath: manifestPath,
		RunID:        runID,
		Pages:        pageCount,
		Failed:       failed,
		Panels:       panels,
		Elapsed:      time.Since(startTime),
	}
	p.Logger.Info("extraction finished",
		"pages", report.Pages,
		"failed", report.Failed,
		"panels", report.Panels,
		"manifest", manifestPath,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (p *Project) processPage(ctx context.Context, index int, name string) pageResult {
	res := pageResult{name: name}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	p.Logger.Debug("page start", "page", index, "name", res.name)
	res.panels, res.err = p.extract(index, res.name)
	if res.err != nil {
		p.Logger.Warn("page failed", "page", index, "name", res.name, "error", res.err)
		return res
	}
	p.Logger.Debug("page done", "page", index, "name", res.name, "panels", len(res.panels))
	return res
}

func (p *Project) extract(index int, name string) ([]manifest.Panel, error) {
	img, err := p.Source.RenderPage(index, p.Config.DPI)
	if err != nil {
		var de *page.DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, fmt.Errorf("render page %d: %w", index, err)
	}

	pg, err := page.New(img)
	if err != nil {
		return nil, err
	}

	cands, err := p.Detector.Detect(pg)
	if err != nil {
		return nil, fmt.Errorf("detect panels: %w", err)
	}

	// A page is exported whole or not at all.
	panels := make([]manifest.Panel, 0, len(cands))
	written := make([]string, 0, len(cands))
	for seq, c := range cands {
		file := fmt.Sprintf("%s_%02d.%s", name, seq, p.Config.OutputFormat)
		path := filepath.Join(p.Config.OutputDir, file)
		if err := page.Save(c.Image, path); err != nil {
			for _, w := range written {
				if rmErr := os.Remove(w); rmErr != nil {
					p.Logger.Warn("could not remove partial panel", "file", w, "error", rmErr)
				}
			}
			return nil, err
		}
		written = append(written, path)
		panels = append(panels, manifest.Panel{
			Seq:      seq,
			File:     file,
			Rect:     manifest.FromRect(c.Rect),
			Included: true,
		})
	}
	return panels, nil
}

func (p *Project) record(runID string, index int, r pageResult) {
	rec := catalog.PageRecord{Index: index, Name: r.name, Err: r.err}
	for _, panel := range r.panels {
		rec.Panels = append(rec.Panels, catalog.PanelRecord{
			Seq:  panel.Seq,
			Rect: panel.Rect.Rect(),
			File: filepath.Join(p.Config.OutputDir, panel.File),
		})
	}
	if err := p.Catalog.RecordPage(runID, rec); err != nil {
		p.Logger.Warn("catalog write failed", "page", index, "error", err)
	}
}
