package fs

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"filechk/internal/catalog"
)

// OSWalker enumerates candidate files on the real filesystem.
type OSWalker struct {
	logger catalog.Logger
	ignore []string
}

// NewOSWalker creates a walker. ignorePatterns are applied in addition to
// the patterns found in the root's .filechkignore file.
func NewOSWalker(logger catalog.Logger, ignorePatterns []string) *OSWalker {
	if logger == nil {
		logger = catalog.NewNopLogger()
	}
	return &OSWalker{
		logger: logger,
		ignore: ignorePatterns,
	}
}

// Walk returns a lazy sequence of absolute regular-file paths under root,
// including symlinks that resolve to regular files.
// Unreadable directories and entries are logged and skipped.
func (w *OSWalker) Walk(root string, opts catalog.WalkOptions) iter.Seq[string] {
	return func(yield func(string) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			w.logger.Warn("resolving walk root", "root", root, "error", err)
			return
		}

		f := w.newFilter(absRoot, opts)

		if !opts.Recursive {
			// os.ReadDir returns the entries it could read alongside the error.
			entries, err := os.ReadDir(absRoot)
			if err != nil {
				w.logger.Warn("reading directory", "path", absRoot, "error", err)
			}
			for _, entry := range entries {
				p := filepath.Join(absRoot, entry.Name())
				if !f.accept(p) || !w.isFile(p, entry) {
					continue
				}
				if !yield(p) {
					return
				}
			}
			return
		}

		filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				w.logger.Warn("walking", "path", p, "error", err)
				return nil
			}
			if d.IsDir() {
				if p != absRoot && f.ignored(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if !f.accept(p) || !w.isFile(p, d) {
				return nil
			}
			if !yield(p) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// isFile reports whether d is a regular file or a symlink to one. Symlinked
// directories are not followed.
func (w *OSWalker) isFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	if err != nil {
		w.logger.Warn("resolving symlink", "path", p, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}

// Stat returns fresh file info for a path.
func (w *OSWalker) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// walkFilter holds the per-walk exclusion, ignore, and extension rules.
type walkFilter struct {
	root       string
	exclude    map[string]struct{}
	extensions []string
	matcher    *IgnoreMatcher
}

func (w *OSWalker) newFilter(root string, opts catalog.WalkOptions) *walkFilter {
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, p := range opts.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			exclude[abs] = struct{}{}
		}
	}

	patterns := append([]string{}, defaultIgnorePatterns...)
	patterns = append(patterns, w.ignore...)
	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		w.logger.Warn("reading ignore file", "root", root, "error", err)
	}
	patterns = append(patterns, filePatterns...)

	return &walkFilter{
		root:       root,
		exclude:    exclude,
		extensions: catalog.NormalizeExtensions(opts.Extensions),
		matcher:    NewIgnoreMatcher(patterns),
	}
}

func (f *walkFilter) ignored(p string) bool {
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return false
	}
	return f.matcher.Match(rel)
}

func (f *walkFilter) accept(p string) bool {
	if _, ok := f.exclude[p]; ok {
		return false
	}
	if !catalog.MatchesExtension(p, f.extensions) {
		return false
	}
	return !f.ignored(p)
}

var _ catalog.FileWalker = (*OSWalker)(nil)
