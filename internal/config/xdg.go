// Package config provides path helpers and TOML parsing.
package config

import (
	"os"
	"path/filepath"
)

const appName = "tuisplit"

// Paths holds the roots every other path is derived from.
type Paths struct {
	ConfigRoot string
	DataRoot   string
}

// DefaultPaths resolves the XDG directories for tuisplit.
func DefaultPaths() Paths {
	return Paths{
		ConfigRoot: filepath.Join(XDGConfigHome(), appName),
		DataRoot:   filepath.Join(XDGDataHome(), appName),
	}
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// ConfigPath returns the TOML config path.
func (p Paths) ConfigPath() string {
	return filepath.Join(p.ConfigRoot, "config.toml")
}

// RunDir resolves a run directory. Relative paths live under the config root.
func (p Paths) RunDir(path string) string {
	if path == "" {
		path = DefaultRunPath
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ConfigRoot, path)
}

// DBPath resolves the archive database. Relative paths live under the data root.
func (p Paths) DBPath(path string) string {
	if path == "" {
		return filepath.Join(p.DataRoot, appName+".db")
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.DataRoot, path)
}

// SocketPath resolves the command socket. XDG_RUNTIME_DIR is preferred for
// the default location.
func (p Paths) SocketPath(path string) string {
	if path != "" {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(p.DataRoot, path)
	}
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, appName, appName+".sock")
	}
	return filepath.Join(p.DataRoot, appName+".sock")
}
