package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForEvent(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case _, ok := <-w.Events():
		return ok
	case <-time.After(timeout):
		return false
	}
}

func TestWatcherDetectsWrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := New(dir, 50*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>v2</html>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !waitForEvent(t, w, 3*time.Second) {
		t.Fatalf("no change notification after write")
	}
}

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 100*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	// a generator-style burst of writes
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "plot"+string(rune('0'+i))+".png")
		if err := os.WriteFile(name, []byte("png"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitForEvent(t, w, 3*time.Second) {
		t.Fatalf("no change notification after burst")
	}

	// the burst must have collapsed; no second notification pending
	select {
	case <-w.Events():
		t.Errorf("burst produced a second notification, want coalesced")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	sub := filepath.Join(dir, "plots")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !waitForEvent(t, w, 3*time.Second) {
		t.Fatalf("no notification for new directory")
	}

	// the new directory itself is now watched
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "radar.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !waitForEvent(t, w, 3*time.Second) {
		t.Fatalf("no notification for file in new directory")
	}
}

func TestWatcherIgnoresEditorDroppings(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	for _, name := range []string{"index.html~", ".#index.html", "index.html.swp", ".DS_Store"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	select {
	case <-w.Events():
		t.Errorf("editor droppings produced a notification")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStopClosesEvents(t *testing.T) {
	w, err := New(t.TempDir(), 0, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Start(context.Background())
	w.Stop()
	w.Stop() // idempotent

	if _, ok := <-w.Events(); ok {
		t.Errorf("Events() open after Stop, want closed")
	}
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"index.html", false},
		{"plots/radar.png", false},
		{"index.html~", true},
		{"a/.#page.html", true},
		{"#page.html#", true},
		{"page.html.swp", true},
		{"upload.part", true},
		{"x.tmp", true},
		{".DS_Store", true},
		{"4913", true},
		{".nojekyll", false},
	}
	for _, tt := range tests {
		if got := ignored(tt.name); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
