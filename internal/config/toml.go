package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults shared by the CLI flags and the config template.
const (
	DefaultRunPath    = "splits/sample"
	DefaultDebounceMS = 300
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Run     RunConfig     `toml:"run"`
	Server  ServerConfig  `toml:"server"`
	Archive ArchiveConfig `toml:"archive"`
	Display DisplayConfig `toml:"display"`
	Watch   WatchConfig   `toml:"watch"`
}

// RunConfig selects the run document.
type RunConfig struct {
	Path *string `toml:"path"`
}

// ServerConfig maps command listener settings.
type ServerConfig struct {
	Socket  *string `toml:"socket"`
	Enabled *bool   `toml:"enabled"`
}

// ArchiveConfig maps attempt archive settings.
type ArchiveConfig struct {
	DB      *string `toml:"db"`
	Enabled *bool   `toml:"enabled"`
}

// DisplayConfig maps colors and help visibility.
type DisplayConfig struct {
	Timer    *string `toml:"timer"`
	Split    *string `toml:"split"`
	Selected *string `toml:"selected"`
	Ahead    *string `toml:"ahead"`
	Behind   *string `toml:"behind"`
	Gold     *string `toml:"gold"`
	ShowHelp *bool   `toml:"show-help"`
}

// WatchConfig maps the run file watcher settings.
type WatchConfig struct {
	Enabled    *bool `toml:"enabled"`
	DebounceMS *int  `toml:"debounce-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if cfg.Watch.DebounceMS != nil && *cfg.Watch.DebounceMS < 0 {
		return FileConfig{}, fmt.Errorf("watch.debounce-ms must be >= 0")
	}
	return cfg, nil
}

// DefaultTemplate returns the commented config written by `tuisplit config`.
func DefaultTemplate() string {
	return fmt.Sprintf(`# tuisplit configuration
# Uncomment a value to enable it. CLI flags override config values.

[run]
# path = %q   # Run directory, relative to the config directory

[server]
# enabled = true          # Listen for commands on a local socket
# socket = ""             # Socket path (default under $XDG_RUNTIME_DIR)

[archive]
# enabled = true          # Record every attempt for tuisplit stats
# db = ""                 # Database path (default under the data directory)

[display]
# timer = "#F0F0F0"
# split = "#B0B0B0"
# selected = "#C89A3A"
# ahead = "#3FB950"
# behind = "#FF4D4F"
# gold = "#FFD700"
# show-help = false

[watch]
# enabled = true          # Reload the run when split.json changes on disk
# debounce-ms = %d
`,
		DefaultRunPath,
		DefaultDebounceMS,
	)
}

// WriteDefault creates path with DefaultTemplate unless it already exists.
// It reports whether the file was created.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultTemplate()), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
