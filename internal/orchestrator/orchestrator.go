// Package orchestrator implements the Orchestrator (C9): the single
// public entry point that classifies a question's intent, drives either
// the standard retrieval→answer path or the bounded agentic loop, and
// applies the fallback ladder to produce a first-class AnswerResult.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buildregs/ragagent/internal/agent"
	"github.com/buildregs/ragagent/internal/db"
	"github.com/buildregs/ragagent/internal/fallback"
	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/intent"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/prompts"
	"github.com/buildregs/ragagent/internal/retrieval"
	"github.com/buildregs/ragagent/internal/tools"
)

// maxQuestionLength bounds the accepted question size.
const maxQuestionLength = 4000

// Caller-facing validation errors, surfaced as HTTP 400 by the server.
var (
	ErrInvalidQuestion = errors.New("question must not be empty")
	ErrQuestionTooLong = errors.New("question exceeds maximum length")
)

// ErrAgenticFailure wraps an unhandled failure inside the agentic loop
// that escaped its own error handling; the orchestrator recovers from
// this by silently re-dispatching in standard mode.
var ErrAgenticFailure = errors.New("agentic path failed")

// Mode selects between the single-shot and agentic answer paths.
type Mode string

const (
	Standard Mode = "standard"
	Agentic  Mode = "agentic"
)

// Request is a single question to answer.
type Request struct {
	Question   string
	DrawingRaw []byte
	Mode       Mode
	TopK       int

	// ConversationID, if set and a ConversationStore is configured, loads
	// prior turns to seed the agentic conversation and appends this
	// request's question and answer back to the same conversation.
	ConversationID string

	// Turns, if set, are prior conversation turns supplied directly by
	// the caller, seeding the agentic conversation in place of (or
	// alongside, when both are absent) a ConversationID lookup. Turns
	// takes precedence over ConversationID when both are present.
	Turns []agent.ConversationTurn
}

// AnswerResult is the orchestrator's external response shape.
type AnswerResult struct {
	Answer             string             `json:"answer"`
	Type               fallback.AnswerType `json:"answer_type"`
	Sources            []retrieval.Chunk  `json:"sources,omitempty"`
	DrawingContextUsed bool               `json:"drawing_context_used"`
	ReasoningSteps     []agent.ToolCall   `json:"reasoning_steps,omitempty"`
	KnowledgeSummary   any                `json:"knowledge_summary,omitempty"`
	FallbackCause      string             `json:"fallback_cause,omitempty"`
}

// Orchestrator wires the components each request path needs.
type Orchestrator struct {
	Retriever    *retrieval.Gateway
	Provider     llm.Provider
	ToolProvider llm.ToolCapable
	Model        string
	Dispatcher   *tools.Dispatcher
	Ladder       *fallback.Ladder
	Knowledge    fallback.Summary

	// Conversations is optional process-scoped turn-history storage; when
	// nil, ConversationID on a Request is ignored and no turns are persisted.
	Conversations *db.ConversationStore

	MaxIterations      int
	TopKDefault        int
	RelevanceThreshold float64
}

// New builds an Orchestrator with the given collaborators and defaults.
func New(
	retriever *retrieval.Gateway,
	provider llm.Provider,
	toolProvider llm.ToolCapable,
	model string,
	dispatcher *tools.Dispatcher,
	ladder *fallback.Ladder,
	knowledge fallback.Summary,
) *Orchestrator {
	return &Orchestrator{
		Retriever:          retriever,
		Provider:           provider,
		ToolProvider:       toolProvider,
		Model:              model,
		Dispatcher:         dispatcher,
		Ladder:             ladder,
		Knowledge:          knowledge,
		MaxIterations:      agent.DefaultMaxIterations,
		TopKDefault:        5,
		RelevanceThreshold: 0.7,
	}
}

// Answer is the single public entry point: classify, route, fall back.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*AnswerResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}
	if len(question) > maxQuestionLength {
		return nil, ErrQuestionTooLong
	}

	drawing, hasDrawing := geometry.FromJSON(req.DrawingRaw)
	category := intent.Classify(question)

	if req.Mode == Agentic {
		seed := o.resolveTurns(ctx, req)
		result, err := o.runAgentic(ctx, question, drawing, hasDrawing, seed, nil)
		if err == nil {
			o.persistTurns(ctx, req.ConversationID, question, result.Answer)
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// result still carries the partial trace accumulated before
			// cancellation (see runAgentic); surface it alongside the error
			// instead of discarding it.
			return result, err
		}
		// AgenticFailure: fall through to standard mode silently, marking
		// the cause so the caller can see why this wasn't an agentic answer.
		result, stdErr := o.runStandard(ctx, question, drawing, hasDrawing, category, req.TopK)
		if stdErr != nil {
			return nil, stdErr
		}
		result.FallbackCause = "agentic path failed: " + err.Error()
		return result, nil
	}

	return o.runStandard(ctx, question, drawing, hasDrawing, category, req.TopK)
}

// resolveTurns determines the prior conversation turns to seed the agentic
// loop with: explicit Turns on the request take precedence; otherwise, if a
// ConversationID is given and a ConversationStore is configured, prior turns
// are loaded from storage. A lookup failure is treated as no history rather
// than a request failure — conversation continuity is a convenience, not a
// requirement.
func (o *Orchestrator) resolveTurns(ctx context.Context, req Request) []agent.ConversationTurn {
	if len(req.Turns) > 0 {
		return req.Turns
	}
	if req.ConversationID == "" || o.Conversations == nil {
		return nil
	}
	stored, err := o.Conversations.Turns(ctx, req.ConversationID)
	if err != nil || len(stored) == 0 {
		return nil
	}
	turns := make([]agent.ConversationTurn, len(stored))
	for i, t := range stored {
		turns[i] = agent.ConversationTurn{Role: llm.Role(t.Role), Content: t.Content}
	}
	return turns
}

// persistTurns appends this request's question and answer to the given
// conversation, when a ConversationID and ConversationStore are both
// present. Persistence failures are logged nowhere and simply dropped —
// this is best-effort continuity state, not the durable corpus.
func (o *Orchestrator) persistTurns(ctx context.Context, conversationID, question, answer string) {
	if conversationID == "" || o.Conversations == nil {
		return
	}
	_ = o.Conversations.AppendTurn(ctx, conversationID, string(llm.RoleUser), question)
	_ = o.Conversations.AppendTurn(ctx, conversationID, string(llm.RoleAssistant), answer)
}

// AnswerAgenticStreaming runs the agentic path only, invoking onStep
// synchronously after each tool call completes — the collaborator behind
// the HTTP status-stream channel on /query-agentic. Unlike Answer, it does
// not fall back to the standard path on agentic failure; callers that want
// the fallback ladder's full behavior should use Answer instead.
func (o *Orchestrator) AnswerAgenticStreaming(ctx context.Context, req Request, onStep func(agent.ToolCall)) (*AnswerResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}
	if len(question) > maxQuestionLength {
		return nil, ErrQuestionTooLong
	}

	drawing, hasDrawing := geometry.FromJSON(req.DrawingRaw)
	seed := o.resolveTurns(ctx, req)
	result, err := o.runAgentic(ctx, question, drawing, hasDrawing, seed, onStep)
	if err == nil {
		o.persistTurns(ctx, req.ConversationID, question, result.Answer)
	}
	return result, err
}

func (o *Orchestrator) runAgentic(ctx context.Context, question string, drawing geometry.Drawing, hasDrawing bool, seed []agent.ConversationTurn, onStep func(agent.ToolCall)) (*AnswerResult, error) {
	if o.ToolProvider == nil {
		return nil, fmt.Errorf("%w: no tool-capable provider configured", ErrAgenticFailure)
	}

	rc := &tools.RequestContext{
		Drawing:     drawing,
		HasDrawing:  hasDrawing,
		Retriever:   o.Retriever,
		SubLLM:      o.Provider,
		SubLLMModel: o.Model,
	}

	loop := agent.New(o.ToolProvider, o.Model, o.Dispatcher)
	if o.MaxIterations > 0 {
		loop.MaxIterations = o.MaxIterations
	}
	loop.OnStep = onStep
	loop.Seed = seed

	res, err := loop.Run(ctx, question, rc)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// loop.Run still returns the partial trace accumulated so far
			// (agent.partialResult); preserve it instead of discarding it.
			return o.partialAgenticResult(res, hasDrawing), err
		}
		return nil, fmt.Errorf("%w: %v", ErrAgenticFailure, err)
	}

	if fallback.IsRefusal(res.Answer) {
		return &AnswerResult{
			Answer:             res.Answer,
			Type:               fallback.NoAnswer,
			DrawingContextUsed: hasDrawing,
			ReasoningSteps:     res.ToolCalls,
			KnowledgeSummary:   o.knowledgeArtifact(),
		}, nil
	}

	chunks := extractRetrievedChunks(res.ToolCalls)
	chunksPresent := len(chunks) > 0

	result := &AnswerResult{
		Answer:             res.Answer,
		Type:               agenticAnswerType(hasDrawing, chunksPresent),
		DrawingContextUsed: hasDrawing,
		ReasoningSteps:     res.ToolCalls,
	}
	if chunksPresent {
		result.Sources = chunks
	}
	if result.Type == fallback.NoAnswer && result.KnowledgeSummary == nil {
		result.KnowledgeSummary = o.knowledgeArtifact()
	}
	if res.IterationCapReached {
		result.FallbackCause = agent.IterationCapMarker
	}
	return result, nil
}

// partialAgenticResult builds the AnswerResult surfaced when the agentic
// loop is interrupted by cancellation or deadline: whatever trace and chunks
// were accumulated before the interruption, not discarded entirely.
func (o *Orchestrator) partialAgenticResult(res *agent.Result, hasDrawing bool) *AnswerResult {
	if res == nil {
		return nil
	}
	chunks := extractRetrievedChunks(res.ToolCalls)
	result := &AnswerResult{
		Answer:             res.Answer,
		Type:               agenticAnswerType(hasDrawing, len(chunks) > 0),
		DrawingContextUsed: hasDrawing,
		ReasoningSteps:     res.ToolCalls,
		FallbackCause:      "agentic request canceled before completion",
	}
	if len(chunks) > 0 {
		result.Sources = chunks
	}
	return result
}

// agenticAnswerType derives the answer tier actually exercised by the
// agentic loop from what it used: a regulations retrieval plus a drawing is
// hybrid, either alone is its own single-source tier, and neither is
// no-answer (the refusal case is handled separately, before this is called).
func agenticAnswerType(hasDrawing, chunksPresent bool) fallback.AnswerType {
	switch {
	case hasDrawing && chunksPresent:
		return fallback.Hybrid
	case hasDrawing:
		return fallback.DrawingOnly
	case chunksPresent:
		return fallback.RegulationsOnly
	default:
		return fallback.NoAnswer
	}
}

// extractRetrievedChunks recovers the regulation chunks surfaced to the
// model across every successful retrieve_regulations tool call in the
// trace, marking each as Selected since the model saw and used it.
func extractRetrievedChunks(calls []agent.ToolCall) []retrieval.Chunk {
	var chunks []retrieval.Chunk
	for _, call := range calls {
		if call.ToolName != tools.RetrieveRegulations || !call.Success {
			continue
		}
		m, ok := call.Result.(map[string]any)
		if !ok {
			continue
		}
		regs, ok := m["regulations"].([]map[string]any)
		if !ok {
			continue
		}
		for _, r := range regs {
			chunks = append(chunks, retrieval.Chunk{
				Document:     stringOf(r["document"]),
				Page:         intOf(r["page"]),
				Paragraph:    intOf(r["paragraph"]),
				SectionTitle: stringOf(r["section_title"]),
				Content:      stringOf(r["content"]),
				ContentType:  retrieval.ContentType(stringOf(r["content_type"])),
				Relevance:    float32Of(r["relevance"]),
				Selected:     true,
			})
		}
	}
	return chunks
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) int {
	i, _ := v.(int)
	return i
}

func float32Of(v any) float32 {
	f, _ := v.(float32)
	return f
}

func (o *Orchestrator) runStandard(
	ctx context.Context,
	question string,
	drawing geometry.Drawing,
	hasDrawing bool,
	category intent.Category,
	topK int,
) (*AnswerResult, error) {
	drawingOnlyIntent := category == intent.DrawingOnly
	bypassRetrieval := drawingOnlyIntent && hasDrawing

	var chunks []retrieval.Chunk
	if !bypassRetrieval && o.Retriever != nil {
		k := topK
		if k <= 0 {
			k = o.TopKDefault
		}
		retrieved, err := o.Retriever.Retrieve(ctx, question, k)
		if err == nil {
			chunks = filterByRelevance(retrieved, o.RelevanceThreshold)
		}
		// RetrievalUnavailable: leave chunks empty and let the fallback
		// ladder demote to drawing-only or knowledge-summary.
	}

	template := templateFor(category)

	var answer string
	if !bypassRetrieval {
		promptText := prompts.Assemble(template, question, chunks, drawing, hasDrawing)
		resp, err := o.Provider.Complete(ctx, llm.CompletionRequest{
			Model:    o.Model,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: promptText}},
		})
		if err == nil {
			answer = resp.Content
		}
		// LLMError: empty answer reads as a refusal-free but empty string,
		// which the ladder treats as "no usable answer" via its tier checks.
	}

	tierResult, err := o.Ladder.Apply(ctx, question, chunks, drawing, hasDrawing, drawingOnlyIntent, answer)
	if err != nil {
		return nil, err
	}

	result := &AnswerResult{
		Answer:             tierResult.Answer,
		Type:               tierResult.Type,
		DrawingContextUsed: hasDrawing && tierResult.Type != fallback.RegulationsOnly,
		KnowledgeSummary:   tierResult.Summary,
	}
	if tierResult.Type == fallback.Hybrid || tierResult.Type == fallback.RegulationsOnly {
		result.Sources = chunks
	}
	if tierResult.Type == fallback.NoAnswer && result.KnowledgeSummary == nil {
		result.KnowledgeSummary = o.knowledgeArtifact()
	}
	return result, nil
}

func (o *Orchestrator) knowledgeArtifact() any {
	if o.Knowledge == nil {
		return nil
	}
	return o.Knowledge.Get()
}

func templateFor(category intent.Category) prompts.Template {
	switch category {
	case intent.DrawingOnly:
		return prompts.DrawingOnly
	case intent.ComplianceWithAdjustment:
		return prompts.ComplianceWithAdjustment
	default:
		return prompts.StandardQA
	}
}

func filterByRelevance(chunks []retrieval.Chunk, threshold float64) []retrieval.Chunk {
	if threshold <= 0 {
		return chunks
	}
	out := make([]retrieval.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if float64(c.Relevance) >= threshold {
			out = append(out, c)
		}
	}
	return out
}
