package testutil

import (
	"fmt"
	"io/fs"
	"iter"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"filechk/internal/catalog"
)

// MockFile represents a file in the mock tree.
type MockFile struct {
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// MockWalker is an in-memory catalog.FileWalker. Paths are yielded in
// lexical order.
type MockWalker struct {
	files    map[string]*MockFile
	statErrs map[string]error
}

// NewMockWalker creates an empty mock tree.
func NewMockWalker() *MockWalker {
	return &MockWalker{
		files:    make(map[string]*MockFile),
		statErrs: make(map[string]error),
	}
}

// AddFile adds a regular file.
func (w *MockWalker) AddFile(path string, size int64, modTime time.Time) {
	w.files[path] = &MockFile{Size: size, ModTime: modTime, Mode: 0644}
}

// AddSpecial adds a non-regular entry (for example a named pipe) that
// Walk still yields.
func (w *MockWalker) AddSpecial(path string, mode fs.FileMode) {
	w.files[path] = &MockFile{Mode: mode}
}

// Touch changes a file's size and mtime.
func (w *MockWalker) Touch(path string, size int64, modTime time.Time) {
	if f, ok := w.files[path]; ok {
		f.Size = size
		f.ModTime = modTime
	}
}

// FailStat makes Stat(path) return err while Walk still yields path,
// as when a file vanishes between enumeration and stat.
func (w *MockWalker) FailStat(path string, err error) {
	w.statErrs[path] = err
}

func (w *MockWalker) Walk(root string, opts catalog.WalkOptions) iter.Seq[string] {
	return func(yield func(string) bool) {
		exts := catalog.NormalizeExtensions(opts.Extensions)
		for _, p := range slices.Sorted(maps.Keys(w.files)) {
			if !w.under(root, p, opts.Recursive) {
				continue
			}
			if slices.Contains(opts.Exclude, p) || !catalog.MatchesExtension(p, exts) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func (w *MockWalker) Stat(path string) (fs.FileInfo, error) {
	if err, ok := w.statErrs[path]; ok {
		return nil, err
	}
	f, ok := w.files[path]
	if !ok {
		return nil, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
	}
	return &mockFileInfo{name: filepath.Base(path), file: f}, nil
}

func (w *MockWalker) under(root, path string, recursive bool) bool {
	if recursive {
		return strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
	}
	return filepath.Dir(path) == filepath.Clean(root)
}

type mockFileInfo struct {
	name string
	file *MockFile
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.file.Size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.file.Mode }
func (m *mockFileInfo) ModTime() time.Time { return m.file.ModTime }
func (m *mockFileInfo) IsDir() bool        { return m.file.Mode.IsDir() }
func (m *mockFileInfo) Sys() any           { return m.file }

var _ catalog.FileWalker = (*MockWalker)(nil)
