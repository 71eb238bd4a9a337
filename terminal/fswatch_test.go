package terminal

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, root string, window time.Duration) (*dirWatcher, chan []string) {
	t.Helper()

	flushes := make(chan []string, 8)
	w, err := newDirWatcher(root, window, NopLogger{}, func(paths []string) {
		flushes <- paths
	})
	if err != nil {
		t.Fatalf("newDirWatcher failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, flushes
}

func TestDirWatcherCoalescesBurst(t *testing.T) {
	root := t.TempDir()
	_, flushes := newTestWatcher(t, root, 500*time.Millisecond)

	target := filepath.Join(root, "notes.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	var paths []string
	select {
	case paths = <-flushes:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for flush")
	}
	if len(paths) != 1 || paths[0] != target {
		t.Fatalf("expected a single distinct path %q, got %v", target, paths)
	}

	select {
	case extra := <-flushes:
		t.Fatalf("expected one flush for the burst, got another: %v", extra)
	case <-time.After(800 * time.Millisecond):
	}
}

func TestDirWatcherReportsSortedDistinctPaths(t *testing.T) {
	root := t.TempDir()
	_, flushes := newTestWatcher(t, root, 300*time.Millisecond)

	for _, name := range []string{"b.txt", "a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	select {
	case paths := <-flushes:
		want := []string{filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")}
		if !slices.Equal(paths, want) {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for flush")
	}
}

func TestDirWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, flushes := newTestWatcher(t, root, 200*time.Millisecond)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	select {
	case <-flushes:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for directory creation flush")
	}

	nested := filepath.Join(sub, "deep.txt")
	if err := os.WriteFile(nested, []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	select {
	case paths := <-flushes:
		if !slices.Contains(paths, nested) {
			t.Fatalf("expected %q in %v", nested, paths)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for nested flush")
	}
}

func TestDirWatcherCloseDropsPending(t *testing.T) {
	root := t.TempDir()
	w, flushes := newTestWatcher(t, root, 200*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "late.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	select {
	case paths := <-flushes:
		t.Fatalf("expected no flush after close, got %v", paths)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewDirWatcherRejectsMissingRoot(t *testing.T) {
	_, err := newDirWatcher(filepath.Join(t.TempDir(), "missing"), time.Second, NopLogger{}, func([]string) {})
	if err == nil {
		t.Fatalf("expected error for missing root")
	}
}
