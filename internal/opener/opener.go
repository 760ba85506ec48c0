// Package opener hands a file to the desktop's default application.
package opener

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Command returns the command that opens path with the default application
// on goos.
func Command(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// Open opens path with the default application for this platform.
func Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	cmd, err := Command(runtime.GOOS, path)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", cmd.Args[0], err)
	}
	return nil
}
