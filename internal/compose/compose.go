// Package compose stitches selected panels into one vertical strip.
package compose

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/ivlev/panelcut/internal/analyzer"
)

// ErrEmptySelection is returned when no panel is marked as included.
var ErrEmptySelection = errors.New("no panels selected for export")

// Panel is a candidate together with the caller's include decision.
type Panel struct {
	analyzer.Candidate
	Included bool
}

// Selected returns the included panels, keeping their order.
func Selected(panels []Panel) []Panel {
	var out []Panel
	for _, p := range panels {
		if p.Included && p.Image != nil {
			out = append(out, p)
		}
	}
	return out
}

// Compose rescales every included panel to the narrowest included width,
// keeping aspect ratio, and stacks them top to bottom in the given order.
// Downscaling averages source pixel areas.
func Compose(panels []Panel) (*image.NRGBA, error) {
	selected := Selected(panels)
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	targetWidth := selected[0].Image.Bounds().Dx()
	for _, p := range selected[1:] {
		if w := p.Image.Bounds().Dx(); w < targetWidth {
			targetWidth = w
		}
	}
	if targetWidth <= 0 {
		return nil, fmt.Errorf("panel has non-positive width")
	}

	resized := make([]*image.NRGBA, len(selected))
	totalHeight := 0
	for i, p := range selected {
		b := p.Image.Bounds()
		h := b.Dy() * targetWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		img := imaging.Resize(p.Image, targetWidth, h, imaging.Box)
		if img.Bounds().Dx() != targetWidth {
			return nil, fmt.Errorf("panel %d rescaled to width %d, want %d", i, img.Bounds().Dx(), targetWidth)
		}
		resized[i] = img
		totalHeight += img.Bounds().Dy()
	}

	out := image.NewNRGBA(image.Rect(0, 0, targetWidth, totalHeight))
	y := 0
	for _, img := range resized {
		b := img.Bounds()
		draw.Draw(out, image.Rect(0, y, targetWidth, y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}

	return out, nil
}
