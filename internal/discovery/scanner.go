// Package discovery finds log files under directory trees
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

// DefaultPattern selects files by the usual log extension at any depth
const DefaultPattern = "**/*.log"

// ScanForLogs walks every root and returns the absolute paths of regular files
// whose path relative to the root matches pattern. A root that is itself a
// file is returned as is. Inaccessible entries below a root are skipped.
func ScanForLogs(roots []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range roots {
		root, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
		}

		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		log.Debug().Str("root_dir", root).Str("pattern", pattern).Msg("Scanning for logs...")

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Skipping inaccessible path")
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
		}
	}

	sort.Strings(files)

	log.Debug().Int("total_files", len(files)).Msg("Log scan complete")
	return files, nil
}
