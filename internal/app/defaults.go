package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the per-user locations filechk reads its config from and keeps
// its logs in.
type Paths struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// DefaultPaths resolves Paths from the environment. Each location is taken
// from the first source that is set:
//
//	config file: FILECHK_CONFIG_PATH, $XDG_CONFIG_HOME/filechk.toml, ~/.config/filechk.toml
//	data dir:    FILECHK_HOME, $XDG_DATA_HOME/filechk, ~/.local/share/filechk
//
// Logs always live in <data dir>/log.
func DefaultPaths() (Paths, error) {
	return resolvePaths(os.Getenv, os.UserHomeDir)
}

func resolvePaths(getenv func(string) string, homeDir func() (string, error)) (Paths, error) {
	home := func(elem ...string) (string, error) {
		dir, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(append([]string{dir}, elem...)...), nil
	}

	var p Paths
	var err error
	switch {
	case getenv("FILECHK_CONFIG_PATH") != "":
		p.ConfigPath = getenv("FILECHK_CONFIG_PATH")
	case getenv("XDG_CONFIG_HOME") != "":
		p.ConfigPath = filepath.Join(getenv("XDG_CONFIG_HOME"), "filechk.toml")
	default:
		if p.ConfigPath, err = home(".config", "filechk.toml"); err != nil {
			return Paths{}, err
		}
	}

	switch {
	case getenv("FILECHK_HOME") != "":
		p.BaseDir = getenv("FILECHK_HOME")
	case getenv("XDG_DATA_HOME") != "":
		p.BaseDir = filepath.Join(getenv("XDG_DATA_HOME"), "filechk")
	default:
		if p.BaseDir, err = home(".local", "share", "filechk"); err != nil {
			return Paths{}, err
		}
	}

	p.LogDir = filepath.Join(p.BaseDir, "log")
	return p, nil
}
