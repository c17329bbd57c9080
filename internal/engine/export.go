package engine

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ivlev/panelcut/internal/analyzer"
	"github.com/ivlev/panelcut/internal/compose"
	"github.com/ivlev/panelcut/internal/manifest"
	"github.com/ivlev/panelcut/internal/page"
)

// ComposeManifest stitches the panels marked as included in m into one
// image at outPath. Panel files are resolved relative to manifestPath.
// compose.ErrEmptySelection is returned unchanged and no file is written.
func ComposeManifest(m *manifest.Manifest, manifestPath, outPath string) (image.Rectangle, error) {
	if !page.SupportedOutput(outPath) {
		return image.Rectangle{}, fmt.Errorf("unsupported output format: %s", outPath)
	}

	var panels []compose.Panel
	for _, e := range m.Panels() {
		if !e.Panel.Included {
			continue
		}
		img, err := page.Load(manifest.Resolve(manifestPath, e.Panel.File))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("page %d panel %d: %w", e.Page, e.Panel.Seq, err)
		}
		panels = append(panels, compose.Panel{
			Candidate: analyzer.Candidate{Rect: e.Panel.Rect.Rect(), Image: imaging.Clone(img)},
			Included:  true,
		})
	}

	out, err := compose.Compose(panels)
	if err != nil {
		return image.Rectangle{}, err
	}
	if err := page.Save(out, outPath); err != nil {
		return image.Rectangle{}, err
	}
	return out.Bounds(), nil
}
