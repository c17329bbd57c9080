package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/panelcut/internal/page"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has a raster extension the page decoder reads.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// ImageSource serves a single image or every image in a directory, in file
// name order.
type ImageSource struct {
	paths []string
	names []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && IsImage(entry.Name()) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths, names: uniqueNames(paths)}, nil
}

// uniqueNames derives one page name per file from its stem. Stems shared by
// several files (01.png and 01.bmp, "page 1.png" and page_1.png) get the
// 1-based page number appended the way document pages are named.
func uniqueNames(paths []string) []string {
	count := make(map[string]int, len(paths))
	for _, p := range paths {
		count[stem(p)]++
	}

	used := make(map[string]bool, len(paths))
	names := make([]string, len(paths))
	for i, p := range paths {
		base := stem(p)
		if count[base] > 1 {
			base = fmt.Sprintf("%s_p%03d", base, i+1)
		}
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) PageName(index int) string {
	return s.names[index]
}

// Path returns the file backing page index.
func (s *ImageSource) Path(index int) string {
	return s.paths[index]
}

// RenderPage decodes the file; dpi is ignored for raster inputs.
func (s *ImageSource) RenderPage(index int, dpi int) (image.Image, error) {
	return page.Load(s.paths[index])
}

func (s *ImageSource) Close() error {
	return nil
}
