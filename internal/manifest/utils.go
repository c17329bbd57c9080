package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultPath creates a timestamped manifest filename inside dir
func DefaultPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("manifest_%s.yaml", timestamp))
}

// FindLatest finds the most recent manifest file in dir
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var manifests []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "manifest_") || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		manifests = append(manifests, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	if len(manifests) == 0 {
		return "", fmt.Errorf("no manifest files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].modTime.After(manifests[j].modTime)
	})

	return manifests[0].path, nil
}
