// Package runfile loads and saves run documents as JSON files.
package runfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/verte-zerg/tuisplit/internal/model"
)

// FileName is the run document name inside a run directory.
const FileName = "split.json"

// Repository persists one run document.
type Repository struct {
	path string
}

// New returns a repository for the run stored in dir.
func New(dir string) *Repository {
	return &Repository{path: filepath.Join(dir, FileName)}
}

// Path returns the document path.
func (r *Repository) Path() string {
	return r.path
}

// Dir returns the run directory.
func (r *Repository) Dir() string {
	return filepath.Dir(r.path)
}

// Load reads and decodes the run document.
func (r *Repository) Load() (model.Run, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to read run: %w", err)
	}
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, fmt.Errorf("failed to decode run %s: %w", r.path, err)
	}
	return run, nil
}

// Save writes the run with in-progress times cleared. The file is replaced
// atomically so a failed write never leaves a truncated document.
func (r *Repository) Save(run model.Run) error {
	out := run.Clone()
	out.ClearLastTimes()
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return writeFileAtomic(r.path, data)
}

// LoadOrDefault loads the document, falling back to model.DefaultRun when it
// is missing or malformed.
func (r *Repository) LoadOrDefault(logger *slog.Logger) model.Run {
	run, err := r.Load()
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("using default run", "path", r.path, "error", err)
		return model.DefaultRun()
	}
	return run
}

// EnsureExists writes run to the repository when no document exists yet.
// It reports whether a document was created.
func (r *Repository) EnsureExists(run model.Run) (bool, error) {
	if _, err := os.Stat(r.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat run: %w", err)
	}
	if err := r.Save(run); err != nil {
		return false, err
	}
	return true, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "split-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp run: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync run: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to chmod run: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	return nil
}
