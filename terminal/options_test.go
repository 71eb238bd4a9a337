package terminal

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func currentWatcher(s *Session) *dirWatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watcher
}

func TestSetOptionsIsIdempotent(t *testing.T) {
	manager := newTestManager(t)
	dir := t.TempDir()

	session, err := manager.CreateSession("opts", CreateOptions{WorkingDir: dir}, newCaptureHandler())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	opts := TermOptions{WorkingPath: dir, WatchDirs: true}
	if err := session.SetOptions(opts); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	first := currentWatcher(session)
	if first == nil {
		t.Fatalf("expected watcher to be started")
	}

	if err := session.SetOptions(opts); err != nil {
		t.Fatalf("second SetOptions failed: %v", err)
	}
	if currentWatcher(session) != first {
		t.Fatalf("expected identical options to keep the watcher")
	}

	// Same root expressed through the session working dir.
	if err := session.SetOptions(TermOptions{WatchDirs: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	if currentWatcher(session) != first {
		t.Fatalf("expected watcher on the same root to be kept")
	}

	stored, ok := session.Options()
	if !ok || stored != (TermOptions{WatchDirs: true}) {
		t.Fatalf("unexpected stored options: %+v (%v)", stored, ok)
	}
}

func TestSetOptionsReconcilesWatcher(t *testing.T) {
	manager := newTestManager(t)
	dir := t.TempDir()
	other := t.TempDir()

	session, err := manager.CreateSession("opts", CreateOptions{WorkingDir: dir}, newCaptureHandler())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := manager.SetOptions("opts", TermOptions{WorkingPath: dir, WatchDirs: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	first := currentWatcher(session)

	if err := manager.SetOptions("opts", TermOptions{WorkingPath: other, WatchDirs: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	second := currentWatcher(session)
	if second == nil || second == first {
		t.Fatalf("expected watcher to restart on path change")
	}

	if err := manager.SetOptions("opts", TermOptions{WorkingPath: other}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	if currentWatcher(session) != nil {
		t.Fatalf("expected watcher to be torn down")
	}
}

func TestSetOptionsInvalidPathKeepsPreviousOptions(t *testing.T) {
	manager := newTestManager(t)
	dir := t.TempDir()

	session, err := manager.CreateSession("opts", CreateOptions{WorkingDir: dir}, newCaptureHandler())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	good := TermOptions{WorkingPath: dir, WatchDirs: true}
	if err := session.SetOptions(good); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	watcher := currentWatcher(session)

	bad := TermOptions{WorkingPath: filepath.Join(dir, "missing"), WatchDirs: true}
	if err := session.SetOptions(bad); err == nil {
		t.Fatalf("expected error for missing directory")
	}

	stored, _ := session.Options()
	if stored != good {
		t.Fatalf("expected previous options to be kept, got %+v", stored)
	}
	if currentWatcher(session) != watcher {
		t.Fatalf("expected previous watcher to be kept")
	}
}

func TestSetOptionsAfterCloseIsNoop(t *testing.T) {
	manager := newTestManager(t)
	dir := t.TempDir()

	session, err := manager.CreateSession("opts", CreateOptions{WorkingDir: dir}, newCaptureHandler())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	_ = session.Close()

	if err := session.SetOptions(TermOptions{WorkingPath: dir, WatchDirs: true}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if currentWatcher(session) != nil {
		t.Fatalf("expected no watcher on a closed session")
	}
	if _, ok := session.Options(); ok {
		t.Fatalf("expected options to stay unset")
	}
}

func TestSessionDeliversDebouncedFSEvents(t *testing.T) {
	manager := newTestManager(t)
	dir := t.TempDir()
	handler := newCaptureHandler()

	session, err := manager.CreateSession("fs", CreateOptions{WorkingDir: dir}, handler)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := session.SetOptions(TermOptions{WatchDirs: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}

	target := filepath.Join(dir, "out.log")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte("line\n"), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case paths := <-handler.fsCh:
		if !slices.Equal(paths, []string{target}) {
			t.Fatalf("expected [%s], got %v", target, paths)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for fs event")
	}

	select {
	case extra := <-handler.fsCh:
		t.Fatalf("expected a single fs event, got another: %v", extra)
	case <-time.After(400 * time.Millisecond):
	}
}
