package terminal

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSessionID is returned when a caller supplies an empty session id.
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrSessionExists is returned when the id belongs to a live session.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotFound is returned by manager operations on unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)

// SpawnError reports a failure to allocate the PTY or start the shell.
type SpawnError struct {
	SessionID string
	Shell     string
	Err       error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s for session %s: %v", e.Shell, e.SessionID, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TermOptions is the per-session configuration pushed by the front-end.
// Values are compared with == so re-applying the same options is a no-op.
type TermOptions struct {
	WorkingPath string `json:"workingPath"`
	WatchDirs   bool   `json:"watchDirs"`
}

// CreateOptions configures a new session.
type CreateOptions struct {
	// WorkingDir defaults to the user's home directory when empty.
	WorkingDir string
	// Env overrides are applied last, after the preserved proxy environment.
	Env map[string]string
}

// StatResult is a point-in-time snapshot of the session's process subtree.
// The session's own shell is not counted.
type StatResult struct {
	TotalChildrenCount      uint32   `json:"totalChildrenCount"`
	FirstLevelChildrenNames []string `json:"firstLevelChildrenNames"`
	CPUUsage                float64  `json:"cpuUsage"`
	MemUsage                float64  `json:"memUsage"`
}

// ExitStatus describes how the session's shell terminated.
type ExitStatus struct {
	Code    int    `json:"code"`
	Signal  string `json:"signal,omitempty"`
	Success bool   `json:"success"`
}

// EventHandler receives output and lifecycle events for a session.
//
// Methods are called from the session's background goroutines without any
// terminal lock held, so implementations may call back into the Manager.
// OnData and OnExit for the same session run on different goroutines and
// have no defined relative order.
type EventHandler interface {
	OnData(sessionID string, data []byte)
	OnExit(sessionID string, status ExitStatus)
	OnFSChanged(sessionID string, paths []string)
}

type nopEventHandler struct{}

func (nopEventHandler) OnData(string, []byte)       {}
func (nopEventHandler) OnExit(string, ExitStatus)   {}
func (nopEventHandler) OnFSChanged(string, []string) {}
