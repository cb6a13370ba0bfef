package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/buildregs/ragagent/internal/fallback"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/orchestrator"
	"github.com/buildregs/ragagent/internal/retrieval"
	"github.com/buildregs/ragagent/internal/tools"
)

// scriptedToolProvider answers one text completion with no tool calls, so
// the agentic loop terminates on its first iteration.
type scriptedToolProvider struct {
	stubProvider
	text string
}

func (s *scriptedToolProvider) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, schemas []llm.ToolSchema) (*llm.ToolCompletion, error) {
	return &llm.ToolCompletion{Text: s.text}, nil
}

func newStreamTestServer(text string) *Server {
	retriever := retrieval.New(&stubStore{})
	provider := &stubProvider{}
	toolProvider := &scriptedToolProvider{text: text}
	ladder := fallback.New(provider, "model", stubKnowledge{})
	orch := orchestrator.New(retriever, provider, toolProvider, "model", tools.NewDispatcher(), ladder, stubKnowledge{})
	return New(Config{Port: 0}, orch, stubKnowledge{})
}

func TestQueryAgenticStreamReturnsAnswer(t *testing.T) {
	srv := newStreamTestServer("The minimum setback is 3 meters.")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/query-agentic/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"question": "What is the minimum setback?"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var event streamEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "answer" {
		t.Fatalf("expected an answer event with no tool calls, got type %q", event.Type)
	}
	if event.Answer == nil || event.Answer.Answer != "The minimum setback is 3 meters." {
		t.Fatalf("unexpected answer payload: %+v", event.Answer)
	}
}

func TestQueryAgenticStreamRejectsEmptyQuestion(t *testing.T) {
	srv := newStreamTestServer("unused")
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/query-agentic/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"question": ""}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var event streamEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "error" {
		t.Fatalf("expected an error event, got type %q", event.Type)
	}
}

func TestQueryAgenticStreamUnconfigured(t *testing.T) {
	srv := New(Config{Port: 0}, nil, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/query-agentic/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail when orchestrator is not configured")
	}
	if resp == nil || resp.StatusCode != 503 {
		status := -1
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("expected 503, got %d", status)
	}
}
