package catalog

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// WalkOptions controls which files a FileWalker yields.
type WalkOptions struct {
	Recursive bool

	// Extensions is an allow-list of suffixes including the leading dot.
	// Empty means every file.
	Extensions []string

	// Exclude holds absolute paths that are never yielded.
	Exclude []string
}

// FileWalker enumerates candidate files and reads their metadata.
type FileWalker interface {
	// Walk lazily yields absolute paths of regular files under root.
	// Unreadable directories are skipped rather than ending the walk.
	Walk(root string, opts WalkOptions) iter.Seq[string]

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)
}

// NormalizeExtensions prefixes bare extensions with "." and drops blanks
// and duplicates, keeping first-seen order.
func NormalizeExtensions(exts []string) []string {
	var out []string
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

// MatchesExtension reports whether path ends in one of exts.
// Matching is exact and case-sensitive; an empty list matches everything.
func MatchesExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
