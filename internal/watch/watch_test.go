package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "split.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls atomic.Int32
	fired := make(chan struct{}, 8)
	w, err := New(path, 50*time.Millisecond, func() {
		calls.Add(1)
		fired <- struct{}{}
	}, quietLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`{"title":"x"}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected change callback")
	}
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one debounced callback, got %d", got)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "split.json")
	var calls atomic.Int32
	w, err := New(path, 20*time.Millisecond, func() { calls.Add(1) }, quietLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no callback for unrelated file, got %d", got)
	}
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "split.json")
	fired := make(chan struct{}, 8)
	w, err := New(path, 20*time.Millisecond, func() { fired <- struct{}{} }, quietLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	tmp := filepath.Join(dir, "split-123.json")
	if err := os.WriteFile(tmp, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected callback after rename into place")
	}
}

func TestNewFailsForMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "split.json"), 0, func() {}, quietLogger()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
