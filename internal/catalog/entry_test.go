package catalog

import (
	"errors"
	"slices"
	"testing"
)

func TestStatus_Toggle(t *testing.T) {
	for _, s := range []Status{StatusUnchecked, StatusChecked} {
		if got := s.Toggle().Toggle(); got != s {
			t.Errorf("%v.Toggle().Toggle() = %v", s, got)
		}
		if s.Toggle() == s {
			t.Errorf("%v.Toggle() did not change state", s)
		}
	}
}

func TestStatus_Labels(t *testing.T) {
	tests := []struct {
		status Status
		label  string
		glyph  string
	}{
		{StatusUnchecked, "unchecked", "☐"},
		{StatusChecked, "checked", "☒"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.label {
			t.Errorf("String() = %q, want %q", got, tt.label)
		}
		if got := tt.status.Glyph(); got != tt.glyph {
			t.Errorf("Glyph() = %q, want %q", got, tt.glyph)
		}
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortNone, false},
		{"path", SortPath, false},
		{"name", SortName, false},
		{"modified", SortModified, false},
		{"mtime", SortModified, false},
		{"modifiedTime", SortModified, false},
		{"size", SortSize, false},
		{"status", SortStatus, false},
		{"notes", SortNotes, false},
		{"id", SortNone, true},
		{"Path", SortNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownSortKey) {
				t.Errorf("error = %v, want ErrUnknownSortKey", err)
			}
			if got != tt.want {
				t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	for _, k := range SortKeys {
		if got, err := ParseSortKey(string(k)); err != nil || got != k {
			t.Errorf("ParseSortKey(%q) = %q, %v", k, got, err)
		}
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"mp3", ".flac", " ", ".mp3", " wav "})
	want := []string{".mp3", ".flac", ".wav"}
	if !slices.Equal(got, want) {
		t.Errorf("NormalizeExtensions() = %v, want %v", got, want)
	}
	if got := NormalizeExtensions(nil); got != nil {
		t.Errorf("NormalizeExtensions(nil) = %v, want nil", got)
	}
}

func TestMatchesExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"/r/a.mp3", nil, true},
		{"/r/a.mp3", []string{".mp3"}, true},
		{"/r/a.MP3", []string{".mp3"}, false},
		{"/r/a.tar.gz", []string{".gz"}, true},
		{"/r/a.tar.gz", []string{".tar.gz"}, false},
		{"/r/noext", []string{".mp3"}, false},
		{"/r/.mp3/file", []string{".mp3"}, false},
	}
	for _, tt := range tests {
		if got := MatchesExtension(tt.path, tt.exts); got != tt.want {
			t.Errorf("MatchesExtension(%q, %v) = %v, want %v", tt.path, tt.exts, got, tt.want)
		}
	}
}

func TestNeedsScan(t *testing.T) {
	tests := []struct {
		existed, noRescan, want bool
	}{
		{false, false, true},
		{false, true, true},
		{true, false, true},
		{true, true, false},
	}
	for _, tt := range tests {
		if got := NeedsScan(tt.existed, tt.noRescan); got != tt.want {
			t.Errorf("NeedsScan(%v, %v) = %v, want %v", tt.existed, tt.noRescan, got, tt.want)
		}
	}
}
