package terminal

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Manager is the process-wide registry of terminal sessions.
//
// The registry lock only guards the map and the proxy snapshot. Spawning a
// shell happens without it so a slow spawn never blocks other sessions.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	preserved PreservedEnv

	cfg           ManagerConfig
	sessionConfig sessionConfig
}

// NewManager creates a manager with the provided config.
func NewManager(cfg ManagerConfig) *Manager {
	cfg = cfg.applyDefaults()

	preserved := cfg.PreservedEnv
	if preserved == nil {
		preserved = CaptureProxyEnv(os.LookupEnv)
	}

	return &Manager{
		sessions:      make(map[string]*Session),
		preserved:     preserved,
		cfg:           cfg,
		sessionConfig: newSessionConfig(cfg),
	}
}

// CreateSession spawns a shell and registers it under id. Nothing is
// registered when the spawn fails.
func (m *Manager) CreateSession(id string, opts CreateOptions, handler EventHandler) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	preserved := m.preserved
	m.mu.Unlock()

	shell := m.cfg.Shell
	if shell == "" {
		shell = m.cfg.ShellResolver.ResolveShell(m.cfg.Logger)
	}

	sp, err := spawnShell(id, spawnRequest{
		shell:               shell,
		args:                m.cfg.ShellArgsProvider.GetShellArgs(shell),
		workingDir:          opts.WorkingDir,
		terminalEnv:         m.cfg.TerminalEnv,
		shellIntegrationDir: m.cfg.ShellIntegrationDir,
		preserved:           preserved,
		overrides:           opts.Env,
	}, m.cfg.Logger)
	if err != nil {
		m.cfg.Logger.Error("Failed to create terminal session", "sessionID", id, "error", err)
		return nil, err
	}

	session := newSession(id, handler, m.sessionConfig, sp)

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		_ = session.Close()
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	m.sessions[id] = session
	m.mu.Unlock()

	m.cfg.Logger.Info("Created terminal session", "sessionID", id, "pid", session.PID())
	return session, nil
}

// GetSession looks up a session by id.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	return session, ok
}

// ListSessions returns all registered sessions ordered by id.
func (m *Manager) ListSessions() []*Session {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })
	return sessions
}

// RemoveSession closes the session and drops it from the registry. It
// reports whether a session was registered under id.
func (m *Manager) RemoveSession(id string) bool {
	session, ok := m.GetSession(id)
	if !ok {
		return false
	}

	if err := session.Close(); err != nil {
		m.cfg.Logger.Warn("Failed to close terminal session", "sessionID", id, "error", err)
	}

	m.mu.Lock()
	if m.sessions[id] == session {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.cfg.Logger.Info("Removed terminal session", "sessionID", id)
	return true
}

// Write sends input to the session's shell.
func (m *Manager) Write(id string, data []byte) (int, error) {
	session, ok := m.GetSession(id)
	if !ok {
		return 0, ErrSessionNotFound
	}
	return session.Write(data)
}

// Resize changes the session's window size.
func (m *Manager) Resize(id string, rows, cols uint16) error {
	session, ok := m.GetSession(id)
	if !ok {
		return ErrSessionNotFound
	}
	return session.Resize(rows, cols)
}

// SetOptions applies options to the session.
func (m *Manager) SetOptions(id string, opts TermOptions) error {
	session, ok := m.GetSession(id)
	if !ok {
		return ErrSessionNotFound
	}
	return session.SetOptions(opts)
}

// Statistics samples the session's process tree. Unknown ids yield the zero
// value.
func (m *Manager) Statistics(ctx context.Context, id string) StatResult {
	session, ok := m.GetSession(id)
	if !ok {
		return StatResult{}
	}
	return session.FetchStatistics(ctx)
}

// ProxyEnv returns the proxy snapshot applied to new sessions.
func (m *Manager) ProxyEnv() PreservedEnv {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(PreservedEnv, len(m.preserved))
	copy(out, m.preserved)
	return out
}

// RefreshProxyEnv overlays the operating system's proxy settings on the
// snapshot. Existing sessions keep the environment they were started with.
func (m *Manager) RefreshProxyEnv(ctx context.Context) error {
	if m.cfg.ProxyResolver == nil {
		return nil
	}

	overrides, err := m.cfg.ProxyResolver.Resolve(ctx)
	if err != nil {
		m.cfg.Logger.Warn("Failed to resolve system proxy", "error", err)
		return fmt.Errorf("failed to resolve system proxy: %w", err)
	}
	if len(overrides) == 0 {
		return nil
	}

	m.mu.Lock()
	m.preserved = m.preserved.WithOverrides(overrides)
	m.mu.Unlock()

	m.cfg.Logger.Info("Refreshed proxy environment", "variables", len(overrides))
	return nil
}

// Cleanup closes and drops every session.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		if err := session.Close(); err != nil {
			m.cfg.Logger.Warn("Failed to close terminal session", "sessionID", session.id, "error", err)
		}
	}
	m.cfg.Logger.Info("Cleaned up terminal sessions", "count", len(sessions))
}
