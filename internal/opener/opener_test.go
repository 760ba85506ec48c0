package opener

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		want []string
	}{
		{"darwin", []string{"open", "/m/a.mp3"}},
		{"linux", []string{"xdg-open", "/m/a.mp3"}},
		{"freebsd", []string{"xdg-open", "/m/a.mp3"}},
		{"windows", []string{"cmd", "/c", "start", "", "/m/a.mp3"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := Command(tt.goos, "/m/a.mp3")
			if err != nil {
				t.Fatalf("Command() error = %v", err)
			}
			if !slices.Equal(cmd.Args, tt.want) {
				t.Errorf("Args = %q, want %q", cmd.Args, tt.want)
			}
		})
	}

	if _, err := Command("plan9", "/m/a.mp3"); err == nil {
		t.Error("Command() expected error for unsupported os")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	err := Open(filepath.Join(t.TempDir(), "gone.mp3"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open() error = %v, want not-exist", err)
	}
}
