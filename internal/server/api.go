package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vincentdchan/TerminalOne/terminal"
)

type apiSessionInfo struct {
	ID         string                `json:"id"`
	WorkingDir string                `json:"workingDir"`
	PID        int                   `json:"pid"`
	Closed     bool                  `json:"closed"`
	Options    *terminal.TermOptions `json:"options,omitempty"`
}

type createSessionRequest struct {
	ID         string            `json:"id"`
	WorkingDir string            `json:"workingDir"`
	Env        map[string]string `json:"env"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type inputRequest struct {
	Input string `json:"input"`
}

type inputResponse struct {
	Written int `json:"written"`
}

type resizeRequest struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func toAPISessionInfo(session *terminal.Session) apiSessionInfo {
	info := apiSessionInfo{
		ID:         session.ID(),
		WorkingDir: session.WorkingDir(),
		PID:        session.PID(),
		Closed:     session.IsClosed(),
	}
	if opts, ok := session.Options(); ok {
		info.Options = &opts
	}
	return info
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := s.manager.ListSessions()
		out := make([]apiSessionInfo, 0, len(sessions))
		for _, session := range sessions {
			out = append(out, toAPISessionInfo(session))
		}
		writeJSON(w, http.StatusOK, out)
		return

	case http.MethodPost:
		var req createSessionRequest
		if r.Body != nil {
			if err := readJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
		}

		id := strings.TrimSpace(req.ID)
		if id == "" {
			id = uuid.NewString()
		}

		host, claimed := s.claimSession(id)
		if !claimed {
			http.Error(w, fmt.Sprintf("%v: %s", terminal.ErrSessionExists, id), http.StatusConflict)
			return
		}
		_, err := s.manager.CreateSession(id, terminal.CreateOptions{
			WorkingDir: req.WorkingDir,
			Env:        req.Env,
		}, host)
		if err != nil {
			s.releaseSession(host)
			var spawnErr *terminal.SpawnError
			switch {
			case errors.Is(err, terminal.ErrSessionExists):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, terminal.ErrInvalidSessionID):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.As(err, &spawnErr):
				s.metrics.SpawnFailures.Inc()
				http.Error(w, err.Error(), http.StatusInternalServerError)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		s.metrics.SessionsCreated.Inc()
		s.metrics.SessionsActive.Inc()
		writeJSON(w, http.StatusOK, createSessionResponse{ID: id})
		return

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	sessionID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch action {
	case "":
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		host := s.lookupHost(sessionID)
		if !s.manager.RemoveSession(sessionID) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if host != nil {
			s.releaseSession(host)
		}
		s.limiter.forget(sessionID)
		s.metrics.SessionsActive.Dec()
		w.WriteHeader(http.StatusNoContent)
		return

	case "input":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req inputRequest
		if err := readJSON(w, r, &req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if len(req.Input) > maxInputBytes {
			http.Error(w, "input too large", http.StatusRequestEntityTooLarge)
			return
		}
		if !s.limiter.Allow(sessionID, len(req.Input), time.Now()) {
			s.metrics.InputDenied.Inc()
			s.logger.Warn("Input rate limited", "sessionID", sessionID, "remote", remoteIP(r), "dataLength", len(req.Input))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		n, err := s.manager.Write(sessionID, []byte(req.Input))
		if err != nil {
			writeManagerError(w, err)
			return
		}
		s.metrics.InputBytes.Add(float64(n))
		writeJSON(w, http.StatusOK, inputResponse{Written: n})
		return

	case "resize":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req resizeRequest
		if err := readJSON(w, r, &req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if !validateDims(req.Rows, req.Cols) {
			http.Error(w, "invalid cols/rows", http.StatusBadRequest)
			return
		}
		if err := s.manager.Resize(sessionID, uint16(req.Rows), uint16(req.Cols)); err != nil {
			writeManagerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return

	case "options":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req terminal.TermOptions
		if err := readJSON(w, r, &req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if err := s.manager.SetOptions(sessionID, req); err != nil {
			writeManagerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return

	case "stats":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, ok := s.manager.GetSession(sessionID); !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		stats := s.manager.Statistics(r.Context(), sessionID)
		if stats.FirstLevelChildrenNames == nil {
			stats.FirstLevelChildrenNames = []string{}
		}
		writeJSON(w, http.StatusOK, stats)
		return

	default:
		http.Error(w, fmt.Sprintf("unknown action: %s", action), http.StatusNotFound)
		return
	}
}

func writeManagerError(w http.ResponseWriter, err error) {
	if errors.Is(err, terminal.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	// Remaining failures come from PTY I/O or watcher setup.
	http.Error(w, err.Error(), http.StatusUnprocessableEntity)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
