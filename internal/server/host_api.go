package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/vincentdchan/TerminalOne/internal/hostfs"
	"github.com/vincentdchan/TerminalOne/terminal"
)

type fsListResponse struct {
	Content []hostfs.Entry `json:"content"`
}

type fsReadResponse struct {
	Content string `json:"content"`
}

type fsTestRequest struct {
	CurrentDir string   `json:"currentDir"`
	Files      []string `json:"files"`
}

type fsTestResponse struct {
	Files []hostfs.Kind `json:"files"`
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req terminal.CommandRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := s.manager.RunCommand(r.Context(), req)
	switch {
	case errors.Is(err, terminal.ErrEmptyCommand):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.logger.Warn("Failed to run command", "command", req.Command, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// queryPath returns the required ?path= parameter of a GET request.
func queryPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return "", false
	}
	return path, true
}

func (s *Server) handleFSList(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	entries, err := hostfs.List(path)
	if err != nil {
		writeFSError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fsListResponse{Content: entries})
}

func (s *Server) handleFSRead(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	content, err := hostfs.ReadAll(path)
	if err != nil {
		writeFSError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fsReadResponse{Content: content})
}

func (s *Server) handleFSStat(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	times, err := hostfs.Stat(path)
	if err != nil {
		writeFSError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, times)
}

func (s *Server) handleFSTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req fsTestRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, fsTestResponse{Files: hostfs.TestFiles(req.CurrentDir, req.Files)})
}

func writeFSError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, hostfs.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, hostfs.ErrNotText):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}
