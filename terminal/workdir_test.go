package terminal

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestParseWorkingDirectorySequences(t *testing.T) {
	tmp := t.TempDir()

	cases := []struct {
		name  string
		input string
	}{
		{name: "vscode", input: "\x1b]633;P;Cwd=" + tmp + "\a"},
		{name: "iterm2", input: "\x1b]1337;CurrentDir=" + tmp + "\a"},
		{name: "osc7 st", input: "\x1b]7;file://localhost" + tmp + "\x1b\\"},
		{name: "osc7 bel", input: "prompt\x1b]7;file://host" + tmp + "\a$ "},
	}
	for _, tc := range cases {
		if got := parseWorkingDirectory(tc.input); got != tmp {
			t.Fatalf("%s: expected %q, got %q", tc.name, tmp, got)
		}
	}
}

func TestParseWorkingDirectoryRejectsUnusableHints(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cases := []string{
		"",
		"plain output",
		"\x1b]7;file://localhost" + tmp, // unterminated
		"\x1b]7;file://localhost/definitely/missing\a",
		"\x1b]633;P;Cwd=" + file + "\a",
		"\x1b]0;user@host:" + tmp + "\a", // titles are not trusted
	}
	for _, input := range cases {
		if got := parseWorkingDirectory(input); got != "" {
			t.Fatalf("expected no directory for %q, got %q", input, got)
		}
	}
}

func TestParseWorkingDirectoryPrecedenceAndDecoding(t *testing.T) {
	base := t.TempDir()
	spaced := filepath.Join(base, "with space")
	other := filepath.Join(base, "other")
	for _, dir := range []string{spaced, other} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}

	osc7 := "\x1b]7;file://localhost" + filepath.ToSlash(base) + "/with%20space\a"
	if got := parseWorkingDirectory(osc7); got != spaced {
		t.Fatalf("expected decoded path %q, got %q", spaced, got)
	}

	mixed := osc7 + "\x1b]633;P;Cwd=" + other + "\a"
	if got := parseWorkingDirectory(mixed); got != other {
		t.Fatalf("expected OSC 633 to win, got %q", got)
	}

	twice := "\x1b]7;file://h" + other + "\a" + osc7
	if got := parseWorkingDirectory(twice); got != spaced {
		t.Fatalf("expected the last OSC 7 to win, got %q", got)
	}
}

func currentWatchRoot(s *Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchRoot
}

func TestSessionWatcherFollowsReportedWorkingDir(t *testing.T) {
	base := t.TempDir()
	next := filepath.Join(base, "next")
	if err := os.Mkdir(next, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	manager := newTestManager(t, "-c", `sleep 0.3; printf '\033]7;file://localhost%s\033\\' "$T1_NEXT_DIR"; cat`)
	handler := newCaptureHandler()

	session, err := manager.CreateSession("cwd", CreateOptions{
		WorkingDir: base,
		Env:        map[string]string{"T1_NEXT_DIR": next},
	}, handler)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := session.SetOptions(TermOptions{WatchDirs: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	if root := currentWatchRoot(session); root != base {
		t.Fatalf("expected watcher on %q, got %q", base, root)
	}

	deadline := time.Now().Add(3 * time.Second)
	for currentWatchRoot(session) != next {
		if time.Now().After(deadline) {
			t.Fatalf("watcher did not follow; workingDir=%q root=%q", session.WorkingDir(), currentWatchRoot(session))
		}
		time.Sleep(20 * time.Millisecond)
	}
	if session.WorkingDir() != next {
		t.Fatalf("expected working dir %q, got %q", next, session.WorkingDir())
	}
	if session.StartDir() != base {
		t.Fatalf("expected start dir to stay %q, got %q", base, session.StartDir())
	}

	target := filepath.Join(next, "created.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case paths := <-handler.fsCh:
		if !slices.Equal(paths, []string{target}) {
			t.Fatalf("expected [%s], got %v", target, paths)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for fs event in followed directory")
	}
}

func TestSessionWatcherWithExplicitPathDoesNotFollow(t *testing.T) {
	base := t.TempDir()
	next := filepath.Join(base, "next")
	if err := os.Mkdir(next, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	manager := newTestManager(t, "-c", `printf '\033]7;file://localhost%s\033\\' "$T1_NEXT_DIR"; cat`)
	session, err := manager.CreateSession("pinned", CreateOptions{
		WorkingDir: base,
		Env:        map[string]string{"T1_NEXT_DIR": next},
	}, newCaptureHandler())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := session.SetOptions(TermOptions{WorkingPath: base, WatchDirs: true}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for session.WorkingDir() != next {
		if time.Now().After(deadline) {
			t.Fatalf("working dir never reported")
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if root := currentWatchRoot(session); root != base {
		t.Fatalf("expected pinned watcher on %q, got %q", base, root)
	}
}
