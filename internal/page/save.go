package page

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// SupportedOutput reports whether path has an extension Save can encode.
func SupportedOutput(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

// Save encodes img to path, picking the format from the file extension
// (png, jpg, jpeg, gif, bmp, tif, tiff). Parent directories are created.
func Save(img image.Image, path string) error {
	if !SupportedOutput(path) {
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
