// Package retrieval implements the Retrieval Gateway (C2): it wraps the
// durable vector-indexed regulation corpus and turns a natural-language
// query into a ranked set of text chunks ready for prompt assembly.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/buildregs/ragagent/internal/vectordb"
)

// ErrUnavailable wraps any failure reaching the retrieval backend after
// retries are exhausted.
var ErrUnavailable = errors.New("retrieval backend unavailable")

// ErrAuthentication wraps an authentication/authorization failure from the
// embedding backend underlying the vector store's query — never retried,
// since retrying with the same bad credentials wastes the backoff budget
// on a failure that will not change.
var ErrAuthentication = errors.New("retrieval backend authentication failed")

// isAuthError reports whether err is an HTTP 401/403 from the embedding
// provider (wrapped as an *openai.APIError through the store's query
// path), the only retrieval failure the gateway must not retry.
func isAuthError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403
	}
	return false
}

// ContentType distinguishes a chunk extracted directly from text from one
// recovered via OCR over a scanned page image.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImageOCR ContentType = "image-ocr"
)

// Chunk is a single retrieved regulation passage, ranked by relevance.
type Chunk struct {
	Document     string      `json:"document"`
	Page         int         `json:"page,omitempty"`
	Paragraph    int         `json:"paragraph,omitempty"`
	SectionTitle string      `json:"section_title,omitempty"`
	Content      string      `json:"content"`
	ContentType  ContentType `json:"content_type"`
	Relevance    float32     `json:"relevance"`
	// Selected marks a chunk the LLM cited as actually used when producing
	// the answer; the retrieval gateway itself never sets this — the
	// orchestrator marks it after the fact.
	Selected bool `json:"selected,omitempty"`
}

// Gateway retrieves regulation chunks from a vectordb.VectorStore.
type Gateway struct {
	store       vectordb.VectorStore
	backoffBase time.Duration
	maxRetries  int
}

// New creates a Gateway over the given vector store.
func New(store vectordb.VectorStore) *Gateway {
	return &Gateway{
		store:       store,
		backoffBase: 100 * time.Millisecond,
		maxRetries:  3,
	}
}

// minTopK and maxTopK bound the accepted topK argument to Retrieve.
const (
	minTopK     = 1
	maxTopK     = 20
	defaultTopK = 5
)

// Retrieve embeds the query (via the store's configured embedder) and
// returns the top-k most relevant regulation chunks. topK is clamped to
// [1, 20], defaulting to 5 when zero or negative. Transient failures are
// retried with exponential backoff (100ms, 400ms, 1.6s); the final failure
// is wrapped in ErrUnavailable.
func (g *Gateway) Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error) {
	switch {
	case topK <= 0:
		topK = defaultTopK
	case topK > maxTopK:
		topK = maxTopK
	case topK < minTopK:
		topK = minTopK
	}

	var lastErr error
	wait := g.backoffBase
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 4
		}

		results, err := g.store.Search(ctx, query, topK, nil)
		if err == nil {
			return toChunks(results), nil
		}
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func toChunks(results []vectordb.SearchResult) []Chunk {
	chunks := make([]Chunk, len(results))
	for i, r := range results {
		chunks[i] = Chunk{
			Document:     r.Document.Metadata.FilePath,
			Page:         r.Document.Metadata.LineStart,
			Paragraph:    r.Document.Metadata.Paragraph,
			SectionTitle: r.Document.Metadata.Section,
			Content:      r.Document.Content,
			ContentType:  contentTypeOf(r.Document.Metadata.Type),
			Relevance:    r.Similarity,
		}
	}
	return chunks
}

func contentTypeOf(t vectordb.DocumentType) ContentType {
	if t == vectordb.DocTypeImageOCR {
		return ContentImageOCR
	}
	return ContentText
}
