// Package manifest records the panels extracted from a source as an
// editable YAML document. Reviewers flip the included flags and hand the
// file back to compose.
package manifest

import "image"

// Version of the manifest layout written by this package.
const Version = "1.0"

// Manifest represents one extraction run over a source
type Manifest struct {
	Version     string `yaml:"version"`
	Source      string `yaml:"source"`
	Strategy    string `yaml:"strategy"`
	GeneratedAt string `yaml:"generated_at"`
	Pages       []Page `yaml:"pages"`
}

// Page lists the panels cut from one source page
type Page struct {
	Index  int     `yaml:"index"`
	Name   string  `yaml:"name"`
	Error  string  `yaml:"error,omitempty"` // set when the page was skipped
	Panels []Panel `yaml:"panels"`
}

// Panel is one exported panel file
type Panel struct {
	Seq      int       `yaml:"seq"`
	File     string    `yaml:"file"` // relative to the manifest directory unless absolute
	Rect     Rectangle `yaml:"rect"` // position on the source page
	Included bool      `yaml:"included"`
}

// Rectangle represents a bounding box
type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// FromRect converts an image rectangle.
func FromRect(r image.Rectangle) Rectangle {
	return Rectangle{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect converts back to an image rectangle.
func (r Rectangle) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Entry is a panel together with the page it came from.
type Entry struct {
	Page  int
	Panel Panel
}

// Panels flattens the manifest into reading order: pages as listed, panels
// in their per-page sequence.
func (m *Manifest) Panels() []Entry {
	var out []Entry
	for _, p := range m.Pages {
		for _, panel := range p.Panels {
			out = append(out, Entry{Page: p.Index, Panel: panel})
		}
	}
	return out
}

// Counts returns the number of pages that failed, the number of panels and
// how many of them are included.
func (m *Manifest) Counts() (failed, panels, included int) {
	for _, p := range m.Pages {
		if p.Error != "" {
			failed++
		}
		for _, panel := range p.Panels {
			panels++
			if panel.Included {
				included++
			}
		}
	}
	return failed, panels, included
}
