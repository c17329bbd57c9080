package analyzer

import (
	"image"

	"github.com/ivlev/panelcut/internal/page"
	"github.com/ivlev/panelcut/internal/system"
)

// ContourDetector finds panels as the outer connected regions of a
// binarized, dilated page.
type ContourDetector struct {
	Threshold    uint8   // Gray values below this become foreground
	KernelSize   int     // Side of the square dilation element (odd)
	Iterations   int     // Dilation passes
	MinAreaRatio float64 // Rectangles covering at most this share of the page are noise
}

// NewContourDetector creates a new contour detector with default settings
func NewContourDetector() *ContourDetector {
	return &ContourDetector{
		Threshold:    200,
		KernelSize:   5,
		Iterations:   5,
		MinAreaRatio: 0.01,
	}
}

// Detect returns the panels of p ordered by top edge. A page without any
// surviving region yields an empty slice.
func (d *ContourDetector) Detect(p *page.Page) ([]Candidate, error) {
	if err := checkPage(p); err != nil {
		return nil, err
	}

	gray := p.Gray()
	w, h := p.Width(), p.Height()

	// Step 1: Binarize (inverse threshold)
	mask := system.GetScratch(w * h)
	defer system.PutScratch(mask)
	binarize(gray, mask, d.Threshold)

	// Step 2: Dilate to close gaps in panel borders
	dilate(mask, w, h, d.KernelSize, d.Iterations)

	// Step 3: Outer regions only
	rects := findExternalContours(mask, w, h)

	// Step 4: Drop noise
	minArea := d.MinAreaRatio * float64(w*h)
	kept := rects[:0]
	for _, r := range rects {
		if float64(r.Dx()*r.Dy()) > minArea {
			kept = append(kept, r)
		}
	}

	sortByTop(kept)

	// Step 5: Crop the undilated source
	return crop(p, kept), nil
}

// binarize writes 1 into mask where gray is below threshold, else 0.
func binarize(gray *image.Gray, mask []uint8, threshold uint8) {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		out := mask[y*w : (y+1)*w]
		for x, v := range row {
			if v < threshold {
				out[x] = 1
			} else {
				out[x] = 0
			}
		}
	}
}

// dilate performs morphological dilation of a 0/1 mask in place with a
// kernelSize x kernelSize all-ones element. Neighbours outside the image are
// ignored. The square element is separable, so each pass is a horizontal
// then a vertical sliding-window max.
func dilate(mask []uint8, w, h, kernelSize, iterations int) {
	half := kernelSize / 2
	if half <= 0 || iterations <= 0 {
		return
	}

	tmp := system.GetScratch(w * h)
	defer system.PutScratch(tmp)
	counts := make([]int32, w)

	for iter := 0; iter < iterations; iter++ {
		// Horizontal: mask -> tmp
		for y := 0; y < h; y++ {
			row := mask[y*w : (y+1)*w]
			out := tmp[y*w : (y+1)*w]
			count := 0
			for x := 0; x < half && x < w; x++ {
				count += int(row[x])
			}
			for x := 0; x < w; x++ {
				if r := x + half; r < w {
					count += int(row[r])
				}
				if l := x - half - 1; l >= 0 {
					count -= int(row[l])
				}
				out[x] = flag(count > 0)
			}
		}

		// Vertical: tmp -> mask, with one running count per column
		for x := range counts {
			counts[x] = 0
		}
		for y := 0; y < half && y < h; y++ {
			row := tmp[y*w : (y+1)*w]
			for x, v := range row {
				counts[x] += int32(v)
			}
		}
		for y := 0; y < h; y++ {
			if r := y + half; r < h {
				row := tmp[r*w : (r+1)*w]
				for x, v := range row {
					counts[x] += int32(v)
				}
			}
			if l := y - half - 1; l >= 0 {
				row := tmp[l*w : (l+1)*w]
				for x, v := range row {
					counts[x] -= int32(v)
				}
			}
			out := mask[y*w : (y+1)*w]
			for x, c := range counts {
				out[x] = flag(c > 0)
			}
		}
	}
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

const outside = -1

// findExternalContours returns the bounding rectangles of the outermost
// foreground regions of mask, in raster order of their first pixel.
// Foreground is 8-connected, background 4-connected, and everything beyond
// the image edge is background. A region lying inside a hole of another
// region is not outermost and is skipped.
func findExternalContours(mask []uint8, w, h int) []image.Rectangle {
	labels := make([]int32, w*h)
	stack := make([]int32, 0, 1024)

	// Mark the background reachable from the image edge.
	push := func(i int) {
		if mask[i] == 0 && labels[i] == 0 {
			labels[i] = outside
			stack = append(stack, int32(i))
		}
	}
	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}
	for len(stack) > 0 {
		i := int(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(i - 1)
		}
		if x < w-1 {
			push(i + 1)
		}
		if y > 0 {
			push(i - w)
		}
		if y < h-1 {
			push(i + w)
		}
	}

	contours := []image.Rectangle{}
	var id int32

	for start := range mask {
		if mask[start] == 0 || labels[start] != 0 {
			continue
		}

		// Found a new component, flood fill to find bounds
		id++
		labels[start] = id
		stack = append(stack[:0], int32(start))
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		external := false

		for len(stack) > 0 {
			i := int(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w

			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			if !external && touchesOutside(labels, i, x, y, w, h) {
				external = true
			}

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w || (dx == 0 && dy == 0) {
						continue
					}
					n := ny*w + nx
					if mask[n] == 1 && labels[n] == 0 {
						labels[n] = id
						stack = append(stack, int32(n))
					}
				}
			}
		}

		if external {
			contours = append(contours, image.Rect(minX, minY, maxX+1, maxY+1))
		}
	}

	return contours
}

// touchesOutside reports whether pixel i lies on the image edge or has a
// 4-neighbour in the outer background.
func touchesOutside(labels []int32, i, x, y, w, h int) bool {
	if x == 0 || y == 0 || x == w-1 || y == h-1 {
		return true
	}
	return labels[i-1] == outside || labels[i+1] == outside ||
		labels[i-w] == outside || labels[i+w] == outside
}
