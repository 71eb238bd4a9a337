package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const readBufferSize = 4096

// Session is one shell running on a PTY.
//
// The PTY handle and writer are set at spawn and cleared exactly once by
// Close. The reader and exit-monitor goroutines hold only the *Session and
// tolerate those fields disappearing under them.
type Session struct {
	id       string
	pid      int
	startDir string
	handler  EventHandler
	config   sessionConfig

	mu         sync.Mutex
	pty        *os.File
	writer     io.Writer
	workingDir string
	options    *TermOptions
	watcher    *dirWatcher
	watchRoot  string

	// writeMu serializes PTY writes. A blocked write never holds mu, so
	// Close can always release the PTY and unblock it.
	writeMu sync.Mutex
	// optionsMu serializes watcher reconciliation so watcher setup runs
	// without mu held.
	optionsMu sync.Mutex

	done       chan struct{}
	exitStatus ExitStatus
}

func newSession(id string, handler EventHandler, cfg sessionConfig, sp *spawned) *Session {
	if handler == nil {
		handler = nopEventHandler{}
	}
	s := &Session{
		id:         id,
		startDir:   sp.workingDir,
		workingDir: sp.workingDir,
		handler:    handler,
		config:     cfg,
		pty:        sp.pty,
		writer:     sp.pty,
		done:       make(chan struct{}),
	}
	if sp.cmd.Process != nil {
		s.pid = sp.cmd.Process.Pid
	}

	go s.readLoop(sp.pty)
	go s.waitExit(sp.cmd)

	if writerGraceDelay > 0 {
		time.Sleep(writerGraceDelay)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// PID returns the shell's process id, or 0 when unknown.
func (s *Session) PID() int { return s.pid }

// StartDir returns the directory the shell was started in.
func (s *Session) StartDir() string { return s.startDir }

// WorkingDir returns the shell's current directory as last reported through
// OSC 7, OSC 633 or OSC 1337 output, or StartDir when nothing was reported.
func (s *Session) WorkingDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workingDir
}

// Options returns the last applied options.
func (s *Session) Options() (TermOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.options == nil {
		return TermOptions{}, false
	}
	return *s.options, true
}

// IsClosed reports whether Close has run.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pty == nil
}

// Done is closed once the shell has exited and OnExit has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitStatus returns the shell's exit status once Done is closed.
func (s *Session) ExitStatus() (ExitStatus, bool) {
	select {
	case <-s.done:
		return s.exitStatus, true
	default:
		return ExitStatus{}, false
	}
}

// Write forwards input to the shell. Writing to a closed session is dropped,
// and a write cut short by Close reports what was written before it.
func (s *Session) Write(data []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	writer := s.writer
	s.mu.Unlock()

	if writer == nil {
		s.config.logger.Warn("Write to closed session dropped", "sessionID", s.id, "dataLength", len(data))
		return 0, nil
	}

	n, err := writer.Write(data)
	if err != nil {
		if errors.Is(err, os.ErrClosed) {
			s.config.logger.Debug("Write interrupted by close", "sessionID", s.id, "written", n)
			return n, nil
		}
		s.config.logger.Error("Failed to write to PTY", "sessionID", s.id, "error", err)
		return n, err
	}
	return n, nil
}

// Resize changes the PTY window size. It is a no-op once closed.
func (s *Session) Resize(rows, cols uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pty == nil {
		return nil
	}

	if err := pty.Setsize(s.pty, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		s.config.logger.Warn("Failed to resize PTY", "sessionID", s.id, "rows", rows, "cols", cols, "error", err)
		return err
	}
	return nil
}

// Close releases the writer, the PTY and the watcher. Closing the PTY fails
// any write still blocked on it. The shell itself is not signalled; it
// normally exits on hangup. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.pty == nil {
		s.mu.Unlock()
		return nil
	}

	s.writer = nil
	err := s.pty.Close()
	s.pty = nil

	watcher := s.watcher
	s.watcher = nil
	s.watchRoot = ""
	s.mu.Unlock()

	if watcher != nil {
		if werr := watcher.Close(); werr != nil {
			s.config.logger.Debug("Failed to close watcher", "sessionID", s.id, "error", werr)
		}
	}

	if err != nil && !errors.Is(err, os.ErrClosed) {
		s.config.logger.Warn("Failed to close PTY", "sessionID", s.id, "error", err)
		return err
	}

	s.config.logger.Info("Closed terminal session", "sessionID", s.id)
	return nil
}

// SetOptions applies opts. Re-applying the stored options is a no-op, and a
// watcher that already covers the requested root is kept. When watcher setup
// fails the previous options and watcher stay in place.
func (s *Session) SetOptions(opts TermOptions) error {
	s.optionsMu.Lock()
	defer s.optionsMu.Unlock()

	s.mu.Lock()
	if s.pty == nil {
		s.mu.Unlock()
		return nil
	}
	if s.options != nil && *s.options == opts {
		s.mu.Unlock()
		return nil
	}
	current := s.watcher
	currentRoot := s.watchRoot
	s.mu.Unlock()

	root := opts.WorkingPath
	if root == "" {
		root = s.WorkingDir()
	}

	var next *dirWatcher
	switch {
	case !opts.WatchDirs:
		root = ""
	case current != nil && currentRoot == root:
		next = current
	default:
		w, err := newDirWatcher(root, s.config.fsDebounceWindow, s.config.logger, s.emitFSChanged)
		if err != nil {
			s.config.logger.Warn("Failed to start directory watcher", "sessionID", s.id, "root", root, "error", err)
			return err
		}
		next = w
	}

	s.mu.Lock()
	if s.pty == nil {
		s.mu.Unlock()
		if next != nil && next != current {
			_ = next.Close()
		}
		return nil
	}
	s.watcher = next
	s.watchRoot = root
	stored := opts
	s.options = &stored
	s.mu.Unlock()

	if current != nil && current != next {
		_ = current.Close()
	}

	s.config.logger.Debug("Applied terminal options", "sessionID", s.id, "watchDirs", opts.WatchDirs)
	return nil
}

// FetchStatistics samples the shell's descendants. It never fails; missing
// data is reported as zero.
func (s *Session) FetchStatistics(ctx context.Context) StatResult {
	if s.pid <= 0 || s.config.sampler == nil {
		return StatResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.statsTimeout)
	defer cancel()

	return s.config.sampler.Sample(ctx, int32(s.pid))
}

// trackWorkingDir records a directory change reported by shell integration
// output. A watcher without an explicit path follows the new directory.
func (s *Session) trackWorkingDir(data []byte) {
	if !bytes.Contains(data, []byte("\x1b]")) {
		return
	}
	dir := parseWorkingDirectory(string(data))
	if dir == "" {
		return
	}

	s.mu.Lock()
	if dir == s.workingDir {
		s.mu.Unlock()
		return
	}
	s.workingDir = dir
	follow := s.options != nil && s.options.WatchDirs && s.options.WorkingPath == ""
	s.mu.Unlock()

	s.config.logger.Debug("Working directory changed", "sessionID", s.id, "workingDir", dir)
	if follow {
		go s.followWorkingDir()
	}
}

// followWorkingDir moves a following watcher to the current directory. On
// failure the old watcher stays in place.
func (s *Session) followWorkingDir() {
	s.optionsMu.Lock()
	defer s.optionsMu.Unlock()

	s.mu.Lock()
	if s.pty == nil || s.options == nil || !s.options.WatchDirs || s.options.WorkingPath != "" {
		s.mu.Unlock()
		return
	}
	root := s.workingDir
	current := s.watcher
	if root == s.watchRoot {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	next, err := newDirWatcher(root, s.config.fsDebounceWindow, s.config.logger, s.emitFSChanged)
	if err != nil {
		s.config.logger.Warn("Failed to move directory watcher", "sessionID", s.id, "root", root, "error", err)
		return
	}

	s.mu.Lock()
	if s.pty == nil {
		s.mu.Unlock()
		_ = next.Close()
		return
	}
	s.watcher = next
	s.watchRoot = root
	s.mu.Unlock()

	if current != nil {
		_ = current.Close()
	}
}

func (s *Session) emitFSChanged(paths []string) {
	s.handler.OnFSChanged(s.id, paths)
}

func (s *Session) readLoop(reader io.Reader) {
	buffer := make([]byte, readBufferSize)
	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			s.trackWorkingDir(data)
			s.handler.OnData(s.id, data)
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
			case errors.Is(err, os.ErrClosed), errors.Is(err, syscall.EIO):
				s.config.logger.Debug("PTY read finished", "sessionID", s.id, "error", err)
			default:
				s.config.logger.Warn("PTY read failed", "sessionID", s.id, "error", err)
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

func (s *Session) waitExit(cmd *exec.Cmd) {
	if err := cmd.Wait(); err != nil {
		s.config.logger.Debug("Terminal process wait returned", "sessionID", s.id, "error", err)
	}
	status := exitStatusFrom(cmd.ProcessState)

	s.config.logger.Info("Terminal process exited", "sessionID", s.id, "code", status.Code, "signal", status.Signal)

	s.exitStatus = status
	s.handler.OnExit(s.id, status)
	close(s.done)
}

func exitStatusFrom(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	status := ExitStatus{Code: state.ExitCode(), Success: state.Success()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal().String()
	}
	return status
}
