package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/vincentdchan/TerminalOne/terminal"
)

type Config struct {
	// ManagerConfig is forwarded to the terminal package.
	ManagerConfig terminal.ManagerConfig

	// ScrollbackChunks bounds the output replayed to late websocket clients.
	ScrollbackChunks int

	// InputRateBytesPerSec limits PTY input per session. Zero disables it.
	InputRateBytesPerSec int
	InputBurstBytes      int
}

// Server exposes terminal sessions over HTTP and fans their events out to
// websocket clients.
type Server struct {
	manager *terminal.Manager
	logger  terminal.Logger
	metrics *Metrics
	limiter *byteRateLimiter

	scrollbackChunks int

	// wsMu guards hosts and every hostSession's clients, so a new client's
	// replay snapshot and its registration happen atomically with respect
	// to OnData.
	wsMu  sync.Mutex
	hosts map[string]*hostSession
}

func New(cfg Config) *Server {
	logger := cfg.ManagerConfig.Logger
	if logger == nil {
		logger = terminal.NopLogger{}
	}

	burst := cfg.InputBurstBytes
	if burst < maxInputBytes {
		burst = maxInputBytes
	}

	return &Server{
		manager:          terminal.NewManager(cfg.ManagerConfig),
		logger:           logger,
		metrics:          newMetrics(),
		limiter:          newByteRateLimiter(cfg.InputRateBytesPerSec, burst),
		scrollbackChunks: cfg.ScrollbackChunks,
		hosts:            make(map[string]*hostSession),
	}
}

// Manager returns the underlying session registry.
func (s *Server) Manager() *terminal.Manager { return s.manager }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	mux.HandleFunc("/api/exec", s.handleExec)
	mux.HandleFunc("/api/fs/ls", s.handleFSList)
	mux.HandleFunc("/api/fs/read", s.handleFSRead)
	mux.HandleFunc("/api/fs/stat", s.handleFSStat)
	mux.HandleFunc("/api/fs/test", s.handleFSTest)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func (s *Server) Close() {
	s.manager.Cleanup()
	s.metrics.SessionsActive.Set(0)

	s.wsMu.Lock()
	var clients []*wsClient
	for _, h := range s.hosts {
		clients = append(clients, h.clientsLocked()...)
	}
	s.hosts = make(map[string]*hostSession)
	s.wsMu.Unlock()

	for _, client := range clients {
		_ = client.conn.Close(websocket.StatusNormalClosure, "server shutting down")
	}
}

// --- API helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
