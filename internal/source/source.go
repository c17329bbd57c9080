// Package source enumerates and rasterises the pages of an input: a folder
// of scans, a single image, or a paged document such as a PDF or CBZ.
package source

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/panelcut/internal/page"
)

type Source interface {
	PageCount() int
	// PageName is a short, file-name friendly label for page index.
	PageName(index int) string
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

var documentExts = map[string]bool{
	".pdf":  true,
	".cbz":  true,
	".epub": true,
	".xps":  true,
}

// IsDocument reports whether path is a paged document rendered through
// MuPDF rather than decoded as a single raster image.
func IsDocument(path string) bool {
	return documentExts[strings.ToLower(filepath.Ext(path))]
}

// Open picks the source implementation from the input path.
func Open(path string) (Source, error) {
	if IsDocument(path) {
		return NewFitzSource(path)
	}
	return NewImageSource(path)
}

// FitzSource renders pages of PDF, CBZ, EPUB and XPS documents.
type FitzSource struct {
	doc  *fitz.Document
	path string
	stem string
}

func NewFitzSource(path string) (*FitzSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzSource{doc: doc, path: path, stem: stem(path)}, nil
}

func (f *FitzSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzSource) PageName(index int) string {
	return fmt.Sprintf("%s_p%03d", f.stem, index+1)
}

// RenderPage opens its own document handle so workers can render
// concurrently without sharing MuPDF state. Failures are reported as
// *page.DecodeError, like unreadable image files.
func (f *FitzSource) RenderPage(index int, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, &page.DecodeError{Path: f.PageName(index), Err: err}
	}
	defer workerDoc.Close()

	img, err := workerDoc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, &page.DecodeError{Path: f.PageName(index), Err: err}
	}
	return img, nil
}

func (f *FitzSource) Close() error {
	return f.doc.Close()
}

func stem(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(name, " ", "_")
}
