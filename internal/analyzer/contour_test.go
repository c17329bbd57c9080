package analyzer

import (
	"image"
	"image/color"
	"testing"
)

func TestContourDetectorFindsFramedPanels(t *testing.T) {
	img := whitePage(300, 400)
	drawFrame(img, image.Rect(20, 20, 280, 180), 3)
	drawFrame(img, image.Rect(20, 220, 280, 380), 3)
	// Artwork inside each frame, well clear of the border
	fillRect(img, image.Rect(130, 90, 150, 110), 0)
	fillRect(img, image.Rect(100, 280, 180, 320), 60)
	p := mustPage(t, img)

	cands, err := NewContourDetector().Detect(p)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	checkCandidates(t, p, cands)

	if len(cands) != 2 {
		for i, c := range cands {
			t.Logf("Candidate %d: %v", i, c.Rect)
		}
		t.Fatalf("Expected 2 panels, got %d", len(cands))
	}

	// 5 passes of a 5x5 element grow each frame by 10 px per side
	want := []image.Rectangle{
		image.Rect(10, 10, 290, 190),
		image.Rect(10, 210, 290, 390),
	}
	for i, c := range cands {
		if c.Rect != want[i] {
			t.Errorf("panel %d: expected %v, got %v", i, want[i], c.Rect)
		}
	}
}

func TestContourDetectorCropsUndilatedSource(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	red := color.RGBA{R: 120, A: 255}
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			img.Set(x, y, red)
		}
	}
	p := mustPage(t, img)

	cands, err := NewContourDetector().Detect(p)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("Expected 1 panel, got %d", len(cands))
	}

	c := cands[0]
	if c.Rect != image.Rect(40, 40, 160, 160) {
		t.Fatalf("unexpected rect %v", c.Rect)
	}
	// The dilated margin keeps the page's white, not the mask
	if got := color.RGBAModel.Convert(c.Image.At(0, 0)).(color.RGBA); got.G != 255 {
		t.Errorf("expected white margin, got %v", got)
	}
	if got := color.RGBAModel.Convert(c.Image.At(10, 10)).(color.RGBA); got != red {
		t.Errorf("expected source color %v, got %v", red, got)
	}
}

func TestContourDetectorAreaFilter(t *testing.T) {
	img := whitePage(400, 400)
	fillRect(img, image.Rect(300, 300, 305, 305), 0) // 25x25 after dilation: 0.4% of page
	fillRect(img, image.Rect(100, 100, 140, 140), 0) // 60x60 after dilation: 2.25%
	p := mustPage(t, img)

	cands, err := NewContourDetector().Detect(p)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("Expected 1 panel, got %d", len(cands))
	}
	if cands[0].Rect != image.Rect(90, 90, 150, 150) {
		t.Errorf("unexpected rect %v", cands[0].Rect)
	}

	minArea := 0.01 * float64(p.Width()*p.Height())
	for _, c := range cands {
		if float64(c.Rect.Dx()*c.Rect.Dy()) <= minArea {
			t.Errorf("rect %v at or below 1%% of page area", c.Rect)
		}
	}
}

func TestContourDetectorAreaBoundary(t *testing.T) {
	// Without dilation the blob rectangles are exact.
	d := &ContourDetector{Threshold: 200, KernelSize: 1, Iterations: 0, MinAreaRatio: 0.01}

	tests := []struct {
		name string
		blob image.Rectangle
		want int
	}{
		{"exactly one percent", image.Rect(40, 40, 50, 50), 0},
		{"just above one percent", image.Rect(40, 40, 50, 51), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := whitePage(100, 100)
			fillRect(img, tt.blob, 0)

			cands, err := d.Detect(mustPage(t, img))
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(cands) != tt.want {
				t.Errorf("expected %d panels, got %d", tt.want, len(cands))
			}
		})
	}
}

func TestContourDetectorIgnoresNestedRegions(t *testing.T) {
	d := &ContourDetector{Threshold: 200, KernelSize: 1, Iterations: 0}

	img := whitePage(100, 100)
	drawFrame(img, image.Rect(10, 10, 90, 90), 2)
	fillRect(img, image.Rect(40, 40, 60, 60), 0) // inside the frame's hole

	cands, err := d.Detect(mustPage(t, img))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("Expected only the outer frame, got %d regions", len(cands))
	}
	if cands[0].Rect != image.Rect(10, 10, 90, 90) {
		t.Errorf("unexpected rect %v", cands[0].Rect)
	}
}

func TestContourDetectorDiagonalPixelsConnect(t *testing.T) {
	d := &ContourDetector{Threshold: 200, KernelSize: 1, Iterations: 0}

	img := whitePage(20, 20)
	for i := 5; i < 15; i++ {
		img.SetGray(i, i, color.Gray{Y: 0})
	}

	cands, err := d.Detect(mustPage(t, img))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 1 || cands[0].Rect != image.Rect(5, 5, 15, 15) {
		t.Fatalf("expected one diagonal region, got %d", len(cands))
	}
}

func TestContourDetectorSameRowKeepsScanOrder(t *testing.T) {
	img := whitePage(400, 200)
	drawFrame(img, image.Rect(20, 20, 180, 180), 3)
	drawFrame(img, image.Rect(220, 20, 380, 180), 3)
	p := mustPage(t, img)

	cands, err := NewContourDetector().Detect(p)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("Expected 2 panels, got %d", len(cands))
	}
	if cands[0].Rect.Min.Y != cands[1].Rect.Min.Y {
		t.Fatalf("expected a tie on the top edge: %v %v", cands[0].Rect, cands[1].Rect)
	}
	// Left panel is met first in raster order; no right-to-left reordering
	if cands[0].Rect.Min.X >= cands[1].Rect.Min.X {
		t.Errorf("expected discovery order left then right, got %v then %v", cands[0].Rect, cands[1].Rect)
	}
}

func TestContourDetectorEdgeCases(t *testing.T) {
	t.Run("blank page", func(t *testing.T) {
		cands, err := NewContourDetector().Detect(mustPage(t, whitePage(100, 100)))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 0 {
			t.Errorf("expected no panels, got %d", len(cands))
		}
	})

	t.Run("full bleed", func(t *testing.T) {
		img := whitePage(120, 80)
		fillRect(img, img.Bounds(), 30)
		p := mustPage(t, img)

		cands, err := NewContourDetector().Detect(p)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 1 || cands[0].Rect != p.Bounds() {
			t.Errorf("expected the whole page as one panel, got %d", len(cands))
		}
	})
}

func TestDilateClipsAtBorder(t *testing.T) {
	w, h := 7, 5
	mask := make([]uint8, w*h)
	mask[0] = 1 // top-left corner

	dilate(mask, w, h, 3, 2)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := uint8(0)
			if x <= 2 && y <= 2 {
				want = 1
			}
			if mask[y*w+x] != want {
				t.Errorf("(%d,%d): expected %d, got %d", x, y, want, mask[y*w+x])
			}
		}
	}
}
