package manager

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// discoverSources expands each glob relative to dir and returns the
// union of matches, deduplicated and sorted lexicographically.
func discoverSources(dir string, globs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string

	for _, pattern := range globs {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			paths = append(paths, match)
		}
	}

	sortPaths(paths)
	return paths, nil
}

func sortPaths(paths []string) {
	sort.Strings(paths)
}

// provenanceFor derives a source label from a file path. Entity and
// annotation provenance use the bare file name so exported snapshots
// stay stable across working directories.
func provenanceFor(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
