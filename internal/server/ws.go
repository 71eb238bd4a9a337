package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const wsSendBuffer = 256

type wsClient struct {
	conn      *websocket.Conn
	sessionID string
	host      *hostSession
	send      chan []byte
}

type wsEvent struct {
	Type        string   `json:"type"`
	SessionID   string   `json:"sessionId"`
	DataBase64  string   `json:"data,omitempty"`
	Replay      bool     `json:"replay,omitempty"`
	ExitCode    *int     `json:"exitCode,omitempty"`
	Signal      string   `json:"signal,omitempty"`
	Paths       []string `json:"paths,omitempty"`
	TimestampMs int64    `json:"timestampMs,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	if _, ok := s.manager.GetSession(sessionID); !ok || s.lookupHost(sessionID) == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closed")

	client := &wsClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, wsSendBuffer),
	}

	snapshot, ok := s.registerWS(client)
	if !ok {
		return
	}
	defer s.unregisterWS(client)
	replay := stripReplayQueries(snapshot)

	s.metrics.WSConnections.Inc()
	defer s.metrics.WSConnections.Dec()
	s.logger.Debug("Websocket attached", "sessionID", sessionID)

	ctx := r.Context()
	if len(replay) > 0 {
		payload, err := json.Marshal(wsEvent{
			Type:        "data",
			SessionID:   sessionID,
			DataBase64:  base64.StdEncoding.EncodeToString(replay),
			Replay:      true,
			TimestampMs: time.Now().UnixMilli(),
		})
		if err == nil {
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}

	go client.writeLoop(ctx)

	// Clients don't send anything; reading detects close.
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			s.logger.Debug("Websocket detached", "sessionID", sessionID, "error", err)
			return
		}
	}
}

func (c *wsClient) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// registerWS attaches the client to the session's current state and returns
// the output it has missed so far. Output produced after this call is
// delivered through client.send. It fails when the session was removed in
// the meantime.
func (s *Server) registerWS(client *wsClient) ([]byte, bool) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	h := s.hosts[client.sessionID]
	if h == nil {
		return nil, false
	}
	client.host = h
	h.clients[client] = struct{}{}
	return h.scrollback.snapshot(), true
}

func (s *Server) unregisterWS(client *wsClient) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if client.host != nil {
		delete(client.host.clients, client)
	}
}

func (s *Server) send(clients []*wsClient, payload []byte) {
	for _, client := range clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop it without waiting for the close handshake;
			// the read loop exits and unregisters.
			s.metrics.WSDropped.Inc()
			_ = client.conn.CloseNow()
		}
	}
}
