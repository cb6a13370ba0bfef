package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/buildregs/ragagent/internal/orchestrator"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth())
	r.Post("/query", s.handleQuery(orchestrator.Standard))
	r.Post("/query-agentic", s.handleQuery(orchestrator.Agentic))
	r.Get("/query-agentic/stream", s.handleQueryAgenticStream())
	r.Get("/knowledge-summary", s.handleKnowledgeSummary())
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// queryRequest is the wire shape of POST /query and POST /query-agentic.
type queryRequest struct {
	Question         string          `json:"question"`
	Drawing          json.RawMessage `json:"drawing,omitempty"`
	DrawingUpdatedAt string          `json:"drawing_updated_at,omitempty"`
	TopK             int             `json:"top_k,omitempty"`
	ConversationID   string          `json:"conversation_id,omitempty"`
}

func (s *Server) handleQuery(mode orchestrator.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.orchestrator == nil {
			http.Error(w, "orchestrator not configured", http.StatusServiceUnavailable)
			return
		}

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		result, err := s.orchestrator.Answer(r.Context(), orchestrator.Request{
			Question:       req.Question,
			DrawingRaw:     req.Drawing,
			Mode:           mode,
			TopK:           req.TopK,
			ConversationID: req.ConversationID,
		})
		if err != nil {
			status := orchestratorErrorStatus(err)
			if result != nil {
				// A canceled/timed-out agentic request still carries its
				// partial trace; surface it instead of discarding the body.
				writeJSON(w, status, result)
				return
			}
			writeError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleKnowledgeSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.knowledge == nil {
			http.Error(w, "knowledge summary not configured", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, s.knowledge.Get())
	}
}

// orchestratorErrorStatus maps an orchestrator error to its HTTP status.
// Both context.Canceled and context.DeadlineExceeded map to 504: from the
// caller's perspective a client-canceled request and a server-side deadline
// both mean "the answer didn't finish in time," and either way a partial
// trace may still be attached to the response body.
func orchestratorErrorStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidQuestion), errors.Is(err, orchestrator.ErrQuestionTooLong):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
