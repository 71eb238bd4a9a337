package server

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/coder/websocket"

	"github.com/vincentdchan/TerminalOne/terminal"
)

// hostSession is the server-side state of one created session and the
// session's terminal.EventHandler. Events are delivered only while it is the
// registered entry for its id, so a removed session's late output and exit
// never reach a later session that reuses the id.
type hostSession struct {
	srv        *Server
	id         string
	scrollback *scrollback
	// clients is guarded by srv.wsMu.
	clients map[*wsClient]struct{}
}

// claimSession registers fresh state for id. It fails when id is already
// claimed, whether by a live session or a create still in flight.
func (s *Server) claimSession(id string) (*hostSession, bool) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if _, exists := s.hosts[id]; exists {
		return nil, false
	}
	h := &hostSession{
		srv:        s,
		id:         id,
		scrollback: newScrollback(s.scrollbackChunks),
		clients:    make(map[*wsClient]struct{}),
	}
	s.hosts[id] = h
	return h, true
}

// releaseSession forgets h and disconnects its clients. State registered by
// a different session under the same id is left alone.
func (s *Server) releaseSession(h *hostSession) {
	s.wsMu.Lock()
	if s.hosts[h.id] == h {
		delete(s.hosts, h.id)
	}
	clients := h.clientsLocked()
	h.clients = make(map[*wsClient]struct{})
	s.wsMu.Unlock()

	for _, client := range clients {
		_ = client.conn.Close(websocket.StatusNormalClosure, "session closed")
	}
}

func (s *Server) lookupHost(id string) *hostSession {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.hosts[id]
}

// currentLocked reports whether h is still the registered state for its id.
func (h *hostSession) currentLocked() bool {
	return h.srv.hosts[h.id] == h
}

func (h *hostSession) clientsLocked() []*wsClient {
	if len(h.clients) == 0 {
		return nil
	}
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// broadcast sends payload to h's clients unless h has been replaced.
func (h *hostSession) broadcast(payload []byte) {
	h.srv.wsMu.Lock()
	if !h.currentLocked() {
		h.srv.wsMu.Unlock()
		return
	}
	clients := h.clientsLocked()
	h.srv.wsMu.Unlock()

	h.srv.send(clients, payload)
}

func (h *hostSession) OnData(sessionID string, data []byte) {
	h.srv.metrics.OutputBytes.Add(float64(len(data)))

	payload, err := json.Marshal(wsEvent{
		Type:        "data",
		SessionID:   sessionID,
		DataBase64:  base64.StdEncoding.EncodeToString(data),
		TimestampMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	h.srv.wsMu.Lock()
	if !h.currentLocked() {
		h.srv.wsMu.Unlock()
		return
	}
	h.scrollback.append(data)
	clients := h.clientsLocked()
	h.srv.wsMu.Unlock()

	h.srv.send(clients, payload)
}

func (h *hostSession) OnExit(sessionID string, status terminal.ExitStatus) {
	h.srv.metrics.SessionExits.WithLabelValues(exitResult(status.Success, status.Signal)).Inc()

	code := status.Code
	payload, err := json.Marshal(wsEvent{
		Type:        "exit",
		SessionID:   sessionID,
		ExitCode:    &code,
		Signal:      status.Signal,
		TimestampMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	h.broadcast(payload)
}

func (h *hostSession) OnFSChanged(sessionID string, paths []string) {
	h.srv.metrics.FSEvents.Inc()

	payload, err := json.Marshal(wsEvent{
		Type:        "fs",
		SessionID:   sessionID,
		Paths:       paths,
		TimestampMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	h.broadcast(payload)
}
