// Package transport implements the duplex client transport and HTTP
// surface described in spec §6: a bidirectional WebSocket stream of
// UTF-8 JSON text frames, a webhook endpoint, and a health endpoint.
//
// Grounded on the teacher's pkg/acp/observability/event_stream.go for
// the gorilla/websocket upgrade-and-pump pattern (per-connection
// subscriber with a buffered send channel and dedicated read/write
// pumps), adapted here from event broadcast to request/response
// dispatch.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/agentor/agentor/pkg/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// FrameType tags outbound frame variants (spec §6).
type FrameType string

const (
	FrameConnected FrameType = "connected"
	FrameResponse  FrameType = "response"
	FrameError     FrameType = "error"
	FrameStream    FrameType = "stream"
)

// InboundFrame is the shape of a client-submitted JSON frame. A
// non-JSON text frame is treated as Content with the connection's
// session id (spec §6, resolving SPEC_FULL.md Open Question 3).
type InboundFrame struct {
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	Content   string     `json:"content"`
}

// ConnectedFrame is sent exactly once, immediately after upgrade.
type ConnectedFrame struct {
	Type         FrameType `json:"type"`
	SessionID    uuid.UUID `json:"session_id"`
	ConnectionID uuid.UUID `json:"connection_id"`
}

// ResponseFrame carries a terminal model answer.
type ResponseFrame struct {
	SessionID uuid.UUID `json:"session_id"`
	Content   string    `json:"content"`
	Type      FrameType `json:"type"`
}

// ErrorFrame carries a fatal failure, safe for client display (spec §7).
type ErrorFrame struct {
	SessionID uuid.UUID `json:"session_id"`
	Content   string    `json:"content"`
	Type      FrameType `json:"type"`
}

// StreamEvent is one incremental update in a streamed response.
type StreamEvent struct {
	Type string          `json:"type"` // text_delta | tool_call_start | tool_call_delta | tool_call_end | done | error
	Data json.RawMessage `json:"data,omitempty"`
}

// StreamFrame wraps a StreamEvent with its session, using the
// snake_case "msg_type" discriminator from spec §6.
type StreamFrame struct {
	SessionID uuid.UUID   `json:"session_id"`
	MsgType   string      `json:"msg_type"`
	Event     StreamEvent `json:"event"`
}

// Handler processes one inbound frame's content for a session and
// returns the content of the terminal response frame, or an error for
// the error frame.
type Handler func(sessionID uuid.UUID, content string) (string, error)

// connection is one upgraded WebSocket connection, mirroring the
// teacher's subscriber: a buffered send channel drained by a
// dedicated write pump, so a slow client cannot block the dispatcher.
type connection struct {
	conn         *websocket.Conn
	sessionID    uuid.UUID
	connectionID uuid.UUID
	send         chan []byte
	closeOnce    sync.Once
}

// Server exposes the WebSocket duplex endpoint, backed by Handler for
// turning inbound content into a response.
type Server struct {
	upgrader websocket.Upgrader
	handler  Handler
	logger   *slog.Logger
}

// NewServer builds a Server. logger may be nil.
func NewServer(handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handler: handler,
		logger:  logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket, sends the connected
// frame, and pumps frames until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &connection{
		conn:         conn,
		sessionID:    uuid.New(),
		connectionID: uuid.New(),
		send:         make(chan []byte, 64),
	}

	connected, _ := json.Marshal(ConnectedFrame{
		Type:         FrameConnected,
		SessionID:    c.sessionID,
		ConnectionID: c.connectionID,
	})
	c.enqueue(connected)

	go s.writePump(c)
	s.readPump(c)
}

func (c *connection) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		// Backpressure: drop rather than block the dispatcher thread;
		// the connection is already falling behind.
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

func (s *Server) writePump(c *connection) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) readPump(c *connection) {
	defer c.close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		sessionID := c.sessionID
		content := string(data)

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err == nil && frame.Content != "" {
			content = frame.Content
			if frame.SessionID != nil {
				sessionID = *frame.SessionID
			}
		}

		reply, err := s.handler(sessionID, content)
		if err != nil {
			errFrame, _ := json.Marshal(ErrorFrame{SessionID: sessionID, Content: errors.Safe(err), Type: FrameError})
			c.enqueue(errFrame)
			continue
		}

		respFrame, _ := json.Marshal(ResponseFrame{SessionID: sessionID, Content: reply, Type: FrameResponse})
		c.enqueue(respFrame)
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health writes the fixed health payload (spec §6).
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Service: "agentor"})
}

