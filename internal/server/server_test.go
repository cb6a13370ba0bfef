package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buildregs/ragagent/internal/fallback"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/orchestrator"
	"github.com/buildregs/ragagent/internal/retrieval"
	"github.com/buildregs/ragagent/internal/tools"
	"github.com/buildregs/ragagent/internal/vectordb"
)

type stubStore struct{}

func (s *stubStore) AddDocuments(ctx context.Context, docs []vectordb.Document) error { return nil }
func (s *stubStore) Search(ctx context.Context, query string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	return nil, nil
}
func (s *stubStore) GetByFilePath(ctx context.Context, filePath string) ([]vectordb.Document, error) {
	return nil, nil
}
func (s *stubStore) DeleteByFilePath(ctx context.Context, filePath string) error { return nil }
func (s *stubStore) Persist(ctx context.Context, dir string) error              { return nil }
func (s *stubStore) Load(ctx context.Context, dir string) error                 { return nil }
func (s *stubStore) Count() int                                                 { return 0 }

type stubProvider struct{}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "not enough information"}, nil
}

// blockingToolProvider never returns a completion until ctx is done,
// simulating an agentic call that outlives the request deadline.
type blockingToolProvider struct{}

func (blockingToolProvider) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, schemas []llm.ToolSchema) (*llm.ToolCompletion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type stubKnowledge struct{}

func (stubKnowledge) Get() any { return map[string]string{"overview": "test overview"} }

func newTestServer() *Server {
	retriever := retrieval.New(&stubStore{})
	provider := &stubProvider{}
	ladder := fallback.New(provider, "model", stubKnowledge{})
	orch := orchestrator.New(retriever, provider, nil, "model", tools.NewDispatcher(), ladder, stubKnowledge{})
	return New(Config{Port: 0}, orch, stubKnowledge{})
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{Port: 0, AllowAll: true}, nil, nil)

	req := httptest.NewRequest("OPTIONS", "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestQueryRejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(map[string]string{"question": ""})
	req := httptest.NewRequest("POST", "/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestQueryReturnsAnswer(t *testing.T) {
	srv := newTestServer()

	body, _ := json.Marshal(map[string]string{"question": "What is the minimum setback?"})
	req := httptest.NewRequest("POST", "/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result orchestrator.AnswerResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Type != fallback.NoAnswer {
		t.Errorf("expected a no-answer tier with an empty backend, got %v", result.Type)
	}
}

func TestQueryInvalidJSONBody(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("POST", "/query", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestQueryAgenticDeadlineMapsTo504WithPartialTrace(t *testing.T) {
	retriever := retrieval.New(&stubStore{})
	provider := &stubProvider{}
	ladder := fallback.New(provider, "model", stubKnowledge{})
	orch := orchestrator.New(retriever, provider, blockingToolProvider{}, "model", tools.NewDispatcher(), ladder, stubKnowledge{})
	srv := New(Config{Port: 0}, orch, stubKnowledge{})

	body, _ := json.Marshal(map[string]string{"question": "Is my setback compliant?"})
	req := httptest.NewRequest("POST", "/query-agentic", bytes.NewReader(body))

	ctx, cancel := context.WithTimeout(req.Context(), 20*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", w.Code, w.Body.String())
	}

	var result orchestrator.AnswerResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.FallbackCause == "" {
		t.Error("expected a partial AnswerResult body with a fallback cause, got an empty one")
	}
}

func TestKnowledgeSummary(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("GET", "/knowledge-summary", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestKnowledgeSummaryUnconfigured(t *testing.T) {
	srv := New(Config{Port: 0}, nil, nil)

	req := httptest.NewRequest("GET", "/knowledge-summary", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
