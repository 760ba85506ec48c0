package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-root file listing extra ignore patterns.
const IgnoreFileName = ".filechkignore"

// defaultIgnorePatterns apply to every walk.
var defaultIgnorePatterns = []string{IgnoreFileName}

type patternKind int

const (
	matchBase patternKind = iota // glob against the basename
	matchPath                    // glob against the root-relative path
	matchDir                     // glob against any directory component
)

type ignorePattern struct {
	glob string
	kind patternKind
}

// IgnoreMatcher decides which root-relative paths a walk skips.
//
//	*.tmp      basename glob
//	build/*.o  relative-path glob (contains '/')
//	cache/     any directory named cache, and everything below it
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw pattern lines. Blank lines and '#' comments
// are dropped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		switch {
		case strings.HasSuffix(raw, "/") && len(raw) > 1:
			m.patterns = append(m.patterns, ignorePattern{glob: strings.TrimSuffix(raw, "/"), kind: matchDir})
		case strings.Contains(raw, "/"):
			m.patterns = append(m.patterns, ignorePattern{glob: raw, kind: matchPath})
		default:
			m.patterns = append(m.patterns, ignorePattern{glob: raw, kind: matchBase})
		}
	}
	return m
}

// Len returns the number of effective patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.patterns)
}

// Match reports whether relativePath is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if relativePath == "" || len(m.patterns) == 0 {
		return false
	}

	slashed := filepath.ToSlash(relativePath)
	base := filepath.Base(relativePath)

	for _, p := range m.patterns {
		switch p.kind {
		case matchBase:
			if ok, _ := filepath.Match(p.glob, base); ok {
				return true
			}
		case matchPath:
			if ok, _ := filepath.Match(p.glob, slashed); ok {
				return true
			}
		case matchDir:
			for _, part := range strings.Split(slashed, "/") {
				if ok, _ := filepath.Match(p.glob, part); ok {
					return true
				}
			}
		}
	}
	return false
}

// ParseIgnoreFile returns the raw lines of an ignore file, or nil when the
// file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
