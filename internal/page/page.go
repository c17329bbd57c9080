// Package page decodes scanned page images into an immutable Page value
// shared by every panel detector.
package page

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Page is a decoded raster page. The grayscale buffer is derived once at
// construction and never modified afterwards, so a Page can be shared by
// concurrent readers.
type Page struct {
	img  image.Image
	gray *image.Gray
}

// DecodeError reports a page that could not be read or converted.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode page: %v", e.Err)
	}
	return fmt.Sprintf("decode page %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrEmptyImage is wrapped by DecodeError for nil or zero-sized images.
var ErrEmptyImage = errors.New("empty image")

// New wraps an already decoded image.
func New(img image.Image) (*Page, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &DecodeError{Err: ErrEmptyImage}
	}
	return &Page{img: img, gray: toGrayscale(img)}, nil
}

// Decode reads a PNG, JPEG, GIF (first frame), BMP, TIFF or WebP page.
// EXIF orientation is applied so scans come out upright.
func Decode(r io.Reader) (*Page, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return New(img)
}

// Open decodes the page stored at path.
func Open(path string) (*Page, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	p, err := New(img)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: ErrEmptyImage}
	}
	return p, nil
}

// Load decodes the image at path without building a Page. Failures are
// reported as *DecodeError.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// Image returns the color image the page was built from.
func (p *Page) Image() image.Image { return p.img }

// Gray returns the grayscale buffer. Its bounds start at (0, 0).
// Callers must treat it as read-only.
func (p *Page) Gray() *image.Gray { return p.gray }

// Width in pixels.
func (p *Page) Width() int { return p.gray.Rect.Dx() }

// Height in pixels.
func (p *Page) Height() int { return p.gray.Rect.Dy() }

// Bounds returns the page rectangle in page coordinates, (0,0)-(w,h).
func (p *Page) Bounds() image.Rectangle { return p.gray.Rect }

// Crop returns a freshly allocated copy of the page pixels under r, given
// in page coordinates.
func (p *Page) Crop(r image.Rectangle) *image.NRGBA {
	r = r.Intersect(p.Bounds())
	return imaging.Crop(p.img, r.Add(p.img.Bounds().Min))
}

// toGrayscale converts an image to an 8-bit grayscale buffer anchored at the
// origin, using the ITU-R 601 luma weights of color.GrayModel.
func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+w], src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y+y):])
		}
		return gray
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			gray.Pix[y*gray.Stride+x] = c.Y
		}
	}

	return gray
}
