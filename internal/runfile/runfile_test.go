package runfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/verte-zerg/tuisplit/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := New(filepath.Join(t.TempDir(), "splits", "game"))
	run := model.NewRun("Game", "Any%", []string{"A", "B"})
	run.Splits[0].PBTime = model.Millis(10000)
	run.Splits[1].GoldTime = model.Millis(8000)
	run.Attempts = 2

	if err := repo.Save(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(run, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", run, got)
	}
}

func TestSaveClearsLastTimes(t *testing.T) {
	repo := New(t.TempDir())
	run := model.NewRun("Game", "Any%", []string{"A"})
	run.Splits[0].LastTime = model.Millis(500)
	if err := repo.Save(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !run.Splits[0].LastTime.Valid {
		t.Fatalf("save must not mutate the caller's run")
	}
	got, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Splits[0].LastTime.Valid {
		t.Fatalf("expected last_time to be cleared on disk")
	}
}

func TestLoadMissing(t *testing.T) {
	repo := New(t.TempDir())
	_, err := repo.Load()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadOrDefaultOnMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	run := New(dir).LoadOrDefault(nil)
	if run.Title != model.DefaultRun().Title || len(run.Splits) != 3 {
		t.Fatalf("expected default run, got %+v", run)
	}
}

func TestEnsureExists(t *testing.T) {
	repo := New(filepath.Join(t.TempDir(), "sample"))
	created, err := repo.EnsureExists(model.SampleRun())
	if err != nil || !created {
		t.Fatalf("expected created, got %v %v", created, err)
	}
	created, err = repo.EnsureExists(model.DefaultRun())
	if err != nil || created {
		t.Fatalf("expected existing document to be kept, got %v %v", created, err)
	}
	run, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if run.Title != "Sample Game" {
		t.Fatalf("unexpected title %q", run.Title)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	repo := New(dir)
	if err := repo.Save(model.DefaultRun()); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "split-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
