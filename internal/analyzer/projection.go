package analyzer

import (
	"image"

	"github.com/ivlev/panelcut/internal/page"
)

// ProjectionSlicer cuts a page into horizontal bands at blank gutters found
// from row intensity sums, then trims blank columns from each band.
type ProjectionSlicer struct {
	// BusyRatio scales the brightest inverted pixel into the per-pixel
	// level a row or column must average to count as content.
	BusyRatio float64
}

// NewProjectionSlicer creates a new slicer with default settings
func NewProjectionSlicer() *ProjectionSlicer {
	return &ProjectionSlicer{BusyRatio: 0.01}
}

type scanState int

const (
	stateIdle          scanState = iota // between panels
	stateCutoffPending                  // content seen, waiting for a gutter
	stateEmit                           // band [start, i) is complete
)

func (s scanState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCutoffPending:
		return "cutoff-pending"
	case stateEmit:
		return "emit"
	}
	return "unknown"
}

// band holds the emitted rows [start, end). Column trimming also sums row
// end, the row just before the one that closed the band.
type band struct {
	start, end int
}

// Detect slices p top to bottom. A page where no row is busy comes back as
// a single full-page candidate.
func (s *ProjectionSlicer) Detect(p *page.Page) ([]Candidate, error) {
	if err := checkPage(p); err != nil {
		return nil, err
	}

	inv := invert(p.Gray())
	w, h := p.Width(), p.Height()

	maxIntensity := 0
	for _, v := range inv {
		if int(v) > maxIntensity {
			maxIntensity = int(v)
		}
	}
	level := float64(maxIntensity) * s.BusyRatio
	rowThreshold := float64(w) * level
	colThreshold := float64(h) * level

	rowSums := make([]int64, h)
	busy := false
	for y := 0; y < h; y++ {
		var sum int64
		for _, v := range inv[y*w : (y+1)*w] {
			sum += int64(v)
		}
		rowSums[y] = sum
		if float64(sum) > rowThreshold {
			busy = true
		}
	}

	if !busy {
		return crop(p, []image.Rectangle{p.Bounds()}), nil
	}

	var rects []image.Rectangle
	for _, b := range scanRows(rowSums, rowThreshold) {
		left, right, ok := trimColumns(inv, w, b.start, b.end+1, colThreshold)
		if !ok {
			continue
		}
		r := image.Rect(left, b.start, right+1, b.end)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}

	return crop(p, rects), nil
}

// scanRows runs the gutter automaton over the row sums and returns the
// emitted bands in scan order. A band closed at row i covers rows
// [start, i-1): the last row before the closing row is not included.
func scanRows(rowSums []int64, rowThreshold float64) []band {
	var bands []band
	state := stateIdle
	start := 0
	last := len(rowSums) - 1

	for i, sum := range rowSums {
		switch state {
		case stateIdle:
			if sum == 0 {
				start = i
			} else if float64(sum) > rowThreshold {
				state = stateCutoffPending
			}
		case stateCutoffPending:
			if sum == 0 || i == last {
				state = stateEmit
			}
		}

		if state == stateEmit {
			bands = append(bands, band{start: start, end: i - 1})
			start = i
			state = stateIdle
		}
	}

	return bands
}

// trimColumns finds the first and last column whose sum over rows
// [top, bottom) exceeds threshold. ok is false when no column does.
func trimColumns(inv []uint8, w, top, bottom int, threshold float64) (left, right int, ok bool) {
	colSums := make([]int64, w)
	for y := top; y < bottom; y++ {
		for x, v := range inv[y*w : (y+1)*w] {
			colSums[x] += int64(v)
		}
	}

	left, right = -1, -1
	for x, sum := range colSums {
		if float64(sum) > threshold {
			if left < 0 {
				left = x
			}
			right = x
		}
	}
	return left, right, left >= 0
}

// invert returns the bitwise complement of gray as a packed w*h buffer.
func invert(gray *image.Gray) []uint8 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		dst := out[y*w : (y+1)*w]
		for x, v := range row {
			dst[x] = ^v
		}
	}
	return out
}
