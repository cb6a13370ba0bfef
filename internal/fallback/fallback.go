// Package fallback implements the cascading Fallback Ladder (C8): four
// tiers applied after a standard-mode LLM call, from full hybrid
// drawing+regulation answers down to a knowledge-summary refusal response.
package fallback

import (
	"context"
	"strings"

	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/prompts"
	"github.com/buildregs/ragagent/internal/retrieval"
)

// AnswerType names which tier ultimately produced an AnswerResult.
type AnswerType string

const (
	Hybrid          AnswerType = "hybrid"
	DrawingOnly     AnswerType = "drawing"
	RegulationsOnly AnswerType = "pdf"
	NoAnswer        AnswerType = "no-answer"
)

// RefusalPhrases is the fixed, case-insensitive canonical phrase list used
// to detect an LLM refusal. This set MUST NOT be extended silently — it is
// the authoritative list, not a starting point.
var RefusalPhrases = []string{
	"i cannot answer",
	"i can't answer",
	"cannot answer this question",
	"not enough information",
	"insufficient information",
	"doesn't contain",
}

// IsRefusal reports whether answer contains any canonical refusal phrase,
// case-insensitively.
func IsRefusal(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range RefusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Summary is implemented by the knowledge summary service; kept as a
// narrow interface here so this package never imports internal/knowledge.
type Summary interface {
	Get() any
}

// Result is the outcome of applying the ladder.
type Result struct {
	Type    AnswerType
	Answer  string
	Summary any
}

// Ladder applies the four-tier cascade. Provider and Model are used only
// for the Tier 2 drawing-only re-prompt; the Tier 1/3 answer text is
// supplied by the caller, since it was already produced by the caller's own
// C4 call against the assembled standard/compliance prompt.
type Ladder struct {
	Provider llm.Provider
	Model    string
	Knowledge Summary
}

// New builds a Ladder.
func New(provider llm.Provider, model string, knowledge Summary) *Ladder {
	return &Ladder{Provider: provider, Model: model, Knowledge: knowledge}
}

// Apply runs the four tiers in order against the inputs of a single
// standard-mode request. initialAnswer is the text already produced by the
// caller's C4 call against the STANDARD_QA or COMPLIANCE_WITH_ADJUSTMENT
// prompt; it is reused for Tier 1 and Tier 3 rather than re-requested.
func (l *Ladder) Apply(
	ctx context.Context,
	question string,
	chunks []retrieval.Chunk,
	drawing geometry.Drawing,
	hasDrawing bool,
	drawingOnlyIntent bool,
	initialAnswer string,
) (*Result, error) {
	chunksPresent := len(chunks) > 0

	if chunksPresent && hasDrawing && !IsRefusal(initialAnswer) {
		return &Result{Type: Hybrid, Answer: initialAnswer}, nil
	}

	if hasDrawing && (!chunksPresent || drawingOnlyIntent) {
		return l.drawingOnlyTier(ctx, question, drawing)
	}

	if !hasDrawing && chunksPresent {
		if IsRefusal(initialAnswer) {
			return l.knowledgeFallback(), nil
		}
		return &Result{Type: RegulationsOnly, Answer: initialAnswer}, nil
	}

	return l.knowledgeFallback(), nil
}

func (l *Ladder) drawingOnlyTier(ctx context.Context, question string, drawing geometry.Drawing) (*Result, error) {
	if l.Provider == nil {
		return l.knowledgeFallback(), nil
	}

	prompt := prompts.Assemble(prompts.DrawingOnly, question, nil, drawing, true)
	resp, err := l.Provider.Complete(ctx, llm.CompletionRequest{
		Model:    l.Model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return l.knowledgeFallback(), nil
	}
	if IsRefusal(resp.Content) {
		return l.knowledgeFallback(), nil
	}
	return &Result{Type: DrawingOnly, Answer: resp.Content}, nil
}

func (l *Ladder) knowledgeFallback() *Result {
	var summary any
	if l.Knowledge != nil {
		summary = l.Knowledge.Get()
	}
	return &Result{Type: NoAnswer, Summary: summary}
}
