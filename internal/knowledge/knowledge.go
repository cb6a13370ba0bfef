// Package knowledge implements the Knowledge Summary Service (C10): a
// process-wide, cached corpus overview plus suggested questions,
// regenerated at the end of each (re)index that processed at least one
// file, and served as the embedded
// artifact of a Tier-4 fallback no-answer result.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/buildregs/ragagent/internal/llm"
)

// Artifact is the persisted summary document, laid out exactly as spec'd:
// overview, topics, suggested questions, and a generation timestamp.
// OverviewHTML is an additional rendering of Overview for dashboard-style
// HTML consumers; it is not part of the wire-stable persisted fields.
type Artifact struct {
	Overview           string    `json:"overview"`
	OverviewHTML       string    `json:"overview_html,omitempty"`
	Topics             []string  `json:"topics"`
	SuggestedQuestions []string  `json:"suggested_questions"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// minSuggestedQuestions is the floor the generation prompt must satisfy so
// Tier-4 responses always nudge users toward the hybrid capability.
const minSuggestedQuestions = 3

// minDrawingOrientedQuestions is the floor on questions that specifically
// point a user at the drawing-analysis capability, not just the total
// suggested_questions count — a summary with three generic regulation
// questions and zero drawing-oriented ones technically satisfies
// minSuggestedQuestions but never nudges a user toward hybrid retrieval.
const minDrawingOrientedQuestions = 3

// drawingOrientedPhrases mirrors the deterministic phrase-bag matching the
// intent classifier (C7) uses: a question counts as drawing-oriented if its
// lower-cased text contains any of these.
var drawingOrientedPhrases = []string{
	"my drawing",
	"my extension",
	"my building",
	"my design",
	"this drawing",
	"the drawing",
	"attached drawing",
	"uploaded drawing",
	"plot area",
	"extension depth",
	"building height",
}

// isDrawingOriented reports whether q reads as pointing a user at the
// drawing-analysis capability rather than a plain regulation lookup.
func isDrawingOriented(q string) bool {
	lower := strings.ToLower(q)
	for _, phrase := range drawingOrientedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// countDrawingOriented reports how many of qs are drawing-oriented.
func countDrawingOriented(qs []string) int {
	n := 0
	for _, q := range qs {
		if isDrawingOriented(q) {
			n++
		}
	}
	return n
}

// fallbackArtifact is served when no artifact has ever been generated.
func fallbackArtifact() *Artifact {
	return &Artifact{
		Overview: "This assistant answers questions about building regulations and, when you " +
			"attach a drawing, checks it against those regulations directly.",
		Topics: []string{"building regulations"},
		SuggestedQuestions: []string{
			"What is the minimum setback for a residential extension?",
			"Describe my drawing and list its dimensions.",
			"Is my extension compliant with the height limit?",
			"What is the plot area shown in my drawing?",
		},
	}
}

// Sampler returns a bounded sample of corpus chunk text to seed the
// generation prompt. The caller (the indexing collaborator) supplies this,
// keeping this package free of a direct vectordb dependency.
type Sampler func(ctx context.Context) ([]string, error)

// Service holds the cached artifact and regenerates it on demand.
type Service struct {
	path     string
	provider llm.Provider
	model    string
	md       goldmark.Markdown

	mu     sync.RWMutex
	cached *Artifact
}

// New builds a Service that persists its artifact at path.
func New(path string, provider llm.Provider, model string) *Service {
	return &Service{
		path:     path,
		provider: provider,
		model:    model,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, highlighting.NewHighlighting(highlighting.WithStyle("github"))),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Load reads a previously persisted artifact from disk, if present. It is
// safe to call once at process startup; absence of a file is not an error.
func (s *Service) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading knowledge summary: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("parsing knowledge summary: %w", err)
	}

	s.mu.Lock()
	s.cached = &artifact
	s.mu.Unlock()
	return nil
}

// Get returns the current cached artifact, or the stable fallback object
// when none has ever been generated. It satisfies fallback.Summary.
func (s *Service) Get() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return fallbackArtifact()
	}
	return s.cached
}

// Regenerate deletes the existing artifact, then samples, generates, and
// persists a fresh one. From the deletion until the new artifact is cached,
// Get returns the hard-coded fallback. Nothing is deleted before Regenerate
// is called: the index command calls it after the pipeline has stored the
// new chunks, and only when at least one file was processed, so while the
// pipeline runs Get still returns the previous artifact.
func (s *Service) Regenerate(ctx context.Context, sample Sampler) error {
	if err := s.delete(); err != nil {
		return err
	}

	chunks, err := sample(ctx)
	if err != nil {
		return fmt.Errorf("sampling corpus for knowledge summary: %w", err)
	}

	artifact, err := s.generate(ctx, chunks)
	if err != nil {
		return fmt.Errorf("generating knowledge summary: %w", err)
	}

	if err := s.persist(artifact); err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = artifact
	s.mu.Unlock()
	return nil
}

func (s *Service) delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting stale knowledge summary: %w", err)
	}
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) generate(ctx context.Context, chunks []string) (*Artifact, error) {
	prompt := buildGenerationPrompt(chunks)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You produce concise corpus summaries as JSON. Always respond with valid JSON only."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Overview           string   `json:"overview"`
		Topics             []string `json:"topics"`
		SuggestedQuestions []string `json:"suggested_questions"`
	}
	text := stripCodeFence(resp.Content)
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON from model: %w", err)
	}
	if len(parsed.SuggestedQuestions) < minSuggestedQuestions || countDrawingOriented(parsed.SuggestedQuestions) < minDrawingOrientedQuestions {
		parsed.SuggestedQuestions = append(parsed.SuggestedQuestions, fallbackArtifact().SuggestedQuestions...)
	}

	var htmlBuf bytes.Buffer
	if err := s.md.Convert([]byte(parsed.Overview), &htmlBuf); err != nil {
		htmlBuf.Reset()
	}

	return &Artifact{
		Overview:           parsed.Overview,
		OverviewHTML:       htmlBuf.String(),
		Topics:             parsed.Topics,
		SuggestedQuestions: parsed.SuggestedQuestions,
		GeneratedAt:        time.Now(),
	}, nil
}

func buildGenerationPrompt(chunks []string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the building regulation corpus sampled below.\n\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, c)
	}
	sb.WriteString(fmt.Sprintf(
		"Respond as JSON: {\"overview\": \"...\", \"topics\": [\"...\"], \"suggested_questions\": [\"...\"]}. "+
			"suggested_questions MUST include at least %d questions, and at least %d of them MUST reference a user's "+
			"own building drawing (e.g. \"my drawing\", \"my extension\", plot area, extension depth, or building height).",
		minSuggestedQuestions, minDrawingOrientedQuestions))
	return sb.String()
}

// persist writes the artifact to a temp file in the same directory and
// renames it into place, so readers never observe a partially written file.
func (s *Service) persist(artifact *Artifact) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating knowledge summary directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling knowledge summary: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".knowledge-summary-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp knowledge summary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp knowledge summary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp knowledge summary file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming knowledge summary into place: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	if strings.Contains(s, "```json") {
		parts := strings.SplitN(s, "```json", 2)
		if len(parts) == 2 {
			s = strings.SplitN(parts[1], "```", 2)[0]
		}
	} else if strings.Contains(s, "```") {
		parts := strings.SplitN(s, "```", 2)
		if len(parts) == 2 {
			s = strings.SplitN(parts[1], "```", 2)[0]
		}
	}
	return strings.TrimSpace(s)
}
