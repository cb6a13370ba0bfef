package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/buildregs/ragagent/internal/agent"
	"github.com/buildregs/ragagent/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamRequest is the single incoming message a client sends to kick off
// a streamed agentic run; one request per connection.
type streamRequest struct {
	Question       string          `json:"question"`
	Drawing        json.RawMessage `json:"drawing,omitempty"`
	TopK           int             `json:"top_k,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
}

// streamEvent is the wire shape of every message this endpoint sends back.
// Type is one of "step", "answer", or "error". A "step" event streams only
// the tool name and outcome, never partial answer text — this is status
// streaming, not token streaming.
type streamEvent struct {
	Type   string                     `json:"type"`
	Step   *agent.ToolCall            `json:"step,omitempty"`
	Answer *orchestrator.AnswerResult `json:"answer,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// handleQueryAgenticStream upgrades to a WebSocket and streams tool-call
// step markers as the bounded agentic loop runs, followed by the final
// AnswerResult. It bypasses the fallback ladder's silent standard-mode
// retry on agentic failure — a dropped connection is as far as a failed
// stream goes, so the caller always sees the real agentic outcome.
func (s *Server) handleQueryAgenticStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.orchestrator == nil {
			http.Error(w, "orchestrator not configured", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("query-agentic stream: upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			s.sendStreamError(conn, "invalid request: "+err.Error())
			return
		}
		if req.Question == "" {
			s.sendStreamError(conn, "question is required")
			return
		}

		result, err := s.orchestrator.AnswerAgenticStreaming(r.Context(), orchestrator.Request{
			Question:       req.Question,
			DrawingRaw:     req.Drawing,
			Mode:           orchestrator.Agentic,
			TopK:           req.TopK,
			ConversationID: req.ConversationID,
		}, func(step agent.ToolCall) {
			s.sendStreamEvent(conn, streamEvent{Type: "step", Step: &step})
		})
		if err != nil {
			if result != nil {
				// A canceled/timed-out run still carries its partial
				// trace; send it rather than discarding the body.
				s.sendStreamEvent(conn, streamEvent{Type: "answer", Answer: result, Error: err.Error()})
				return
			}
			s.sendStreamError(conn, err.Error())
			return
		}

		s.sendStreamEvent(conn, streamEvent{Type: "answer", Answer: result})
	}
}

func (s *Server) sendStreamError(conn *websocket.Conn, message string) {
	s.sendStreamEvent(conn, streamEvent{Type: "error", Error: message})
}

func (s *Server) sendStreamEvent(conn *websocket.Conn, event streamEvent) {
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("query-agentic stream: write: %v", err)
	}
}
