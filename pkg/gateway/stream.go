package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/harun/senja/pkg/agent"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamFrame is one websocket message sent by the streaming endpoint.
// Type is "delta" while tokens arrive, then exactly one "result" or "error".
type StreamFrame struct {
	Type    string        `json:"type"`
	Content string        `json:"content,omitempty"`
	Result  *ChatResponse `json:"result,omitempty"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// handleChatStream handles GET /v1/chat/stream. The client sends one
// ChatRequest as the first websocket message; assistant text is streamed back
// as delta frames followed by a final result frame.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		writeError(w, http.StatusServiceUnavailable, "UNKNOWN", "server is shutting down")
		return
	}

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	if decision, ok := s.admit(r); !ok {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", decision.RetryAfter))
		writeError(w, http.StatusTooManyRequests, string(agent.CodeRateLimited), "rate limit exceeded")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	var req ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.sendFrame(conn, StreamFrame{
			Type:  "error",
			Error: &ErrorDetail{Code: "UNKNOWN", Message: "invalid request message"},
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.sendFrame(conn, StreamFrame{
			Type:  "error",
			Error: &ErrorDetail{Code: "UNKNOWN", Message: "message is required"},
		})
		return
	}

	// Serialize frame writes: deltas arrive from the provider stream
	// goroutine while the final frame is written from this one.
	var writeMu sync.Mutex
	onDelta := func(chunk string) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(StreamFrame{Type: "delta", Content: chunk}); err != nil {
			s.deps.Logger.Debug().Err(err).Msg("Failed to write delta frame")
		}
	}

	resp, err := s.runChat(r, &req, onDelta)

	writeMu.Lock()
	defer writeMu.Unlock()

	if err != nil {
		code := agent.CodeOf(err)
		s.deps.Logger.Error().
			Err(err).
			Str("code", string(code)).
			Msg("Streaming chat request failed")
		conn.WriteJSON(StreamFrame{
			Type:  "error",
			Error: &ErrorDetail{Code: string(code), Message: err.Error()},
		})
		return
	}

	conn.WriteJSON(StreamFrame{Type: "result", Result: resp})
}

func (s *Server) sendFrame(conn *websocket.Conn, frame StreamFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		s.deps.Logger.Debug().Err(err).Msg("Failed to write websocket frame")
	}
}
