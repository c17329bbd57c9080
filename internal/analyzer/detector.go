package analyzer

import (
	"image"
	"sort"

	"github.com/ivlev/panelcut/internal/page"
)

// Candidate is one rectangular panel found on a page.
type Candidate struct {
	Rect  image.Rectangle // page coordinates
	Image *image.NRGBA    // copy of the source pixels under Rect, origin at (0,0)
}

// Detector is the interface for panel extraction strategies. Implementations
// return candidates ordered by ascending top edge.
type Detector interface {
	Detect(p *page.Page) ([]Candidate, error)
}

// checkPage rejects pages that cannot be segmented.
func checkPage(p *page.Page) error {
	if p == nil || p.Bounds().Empty() {
		return &page.DecodeError{Err: page.ErrEmptyImage}
	}
	return nil
}

// crop turns surviving rectangles into candidates, dropping degenerate ones.
func crop(p *page.Page, rects []image.Rectangle) []Candidate {
	out := make([]Candidate, 0, len(rects))
	for _, r := range rects {
		r = r.Intersect(p.Bounds())
		if r.Dx() <= 0 || r.Dy() <= 0 {
			continue
		}
		out = append(out, Candidate{Rect: r, Image: p.Crop(r)})
	}
	return out
}

// sortByTop orders rectangles top to bottom, keeping discovery order on ties.
// Panels sharing a row are not reordered left-to-right or right-to-left.
func sortByTop(rects []image.Rectangle) {
	sort.SliceStable(rects, func(i, j int) bool {
		return rects[i].Min.Y < rects[j].Min.Y
	})
}
