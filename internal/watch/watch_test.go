package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newWatchedFile(t *testing.T) (string, *Watcher) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte("return 1"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	w, err := New(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return path, w
}

func TestWatcherReportsWrite(t *testing.T) {
	path, w := newWatchedFile(t)

	if err := os.WriteFile(path, []byte("return 2"), 0o644); err != nil {
		t.Fatalf("modifying file: %v", err)
	}

	select {
	case got := <-w.Events():
		if got != path {
			t.Errorf("event path = %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event after modifying the watched file")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	path, w := newWatchedFile(t)

	sibling := filepath.Join(filepath.Dir(path), "other.lua")
	if err := os.WriteFile(sibling, []byte("return 3"), 0o644); err != nil {
		t.Fatalf("writing sibling: %v", err)
	}

	select {
	case got := <-w.Events():
		t.Errorf("unexpected event %q for a sibling write", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path, w := newWatchedFile(t)

	// An editor-style burst of rapid writes.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("return 4"), 0o644); err != nil {
			t.Fatalf("modifying file: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event after burst of writes")
	}

	// The burst coalesces; no trailing second event arrives.
	select {
	case <-w.Events():
		t.Error("burst of writes produced more than one event")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherSurvivesReplace(t *testing.T) {
	path, w := newWatchedFile(t)

	// Replace-on-save: write a temp file and rename it over the target.
	tmp := filepath.Join(filepath.Dir(path), ".script.lua.tmp")
	if err := os.WriteFile(tmp, []byte("return 5"), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("renaming over target: %v", err)
	}

	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event after replacing the watched file")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	_, w := newWatchedFile(t)

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
