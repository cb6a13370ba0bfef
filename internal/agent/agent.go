// Package agent implements the Agentic Loop (C6): a bounded iteration of
// LLM tool-calling turns over a per-request AgenticState, dispatching each
// tool call through the Tool Registry & Dispatcher (C5) and threading the
// growing conversation and tool-call trace until the model produces a
// final text answer or the iteration cap is reached.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/prompts"
	"github.com/buildregs/ragagent/internal/tools"
)

// DefaultMaxIterations is the iteration cap applied when a Loop is built
// without an explicit override.
const DefaultMaxIterations = 10

// IterationCapMarker is stamped onto the trace when the loop exhausts its
// iteration budget without the model producing a text response.
const IterationCapMarker = "iteration cap reached"

// ToolCall is one execution record in the agentic trace: the tool invoked,
// the arguments the model emitted, the result it received back, and how
// long execution took.
type ToolCall struct {
	Step      int
	ToolName  string
	Arguments json.RawMessage
	Result    any
	Success   bool
	Duration  time.Duration
}

// ConversationTurn is a single role-tagged message in the agentic
// conversation. Ordering is strict append-only within a request.
type ConversationTurn struct {
	Role      llm.Role
	Content   string
	ToolCalls []llm.ToolCallIntent
	ToolCallID string
	ToolName   string
}

// AgenticState is the per-request mutable state threaded through a single
// Loop.Run call: the question, the shared read-only drawing, and the
// growing turn and tool-call lists. It never escapes the request it was
// created for.
type AgenticState struct {
	Question      string
	Drawing       geometry.Drawing
	HasDrawing    bool
	Turns         []ConversationTurn
	ToolCalls     []ToolCall
	Iteration     int
	MaxIterations int
}

// Result is what Loop.Run returns: the final textual answer, the full
// conversation and tool-call trace, and whether the loop bottomed out on
// the iteration cap rather than a genuine model-produced answer.
type Result struct {
	Answer              string
	Turns               []ConversationTurn
	ToolCalls           []ToolCall
	IterationCapReached bool
}

// ErrAgenticFailure wraps any error that escapes a provider or dispatcher
// call during the loop, distinguishing it from a clean iteration-cap
// exhaustion so the orchestrator can fall back silently.
var ErrAgenticFailure = errors.New("agentic loop failed")

// Loop drives the bounded tool-calling conversation.
type Loop struct {
	Provider      llm.ToolCapable
	Model         string
	Dispatcher    *tools.Dispatcher
	MaxIterations int

	// OnStep, if set, is invoked synchronously after each dispatched tool
	// call is recorded, letting a caller (the HTTP status-stream handler)
	// surface step markers as the loop progresses instead of waiting for
	// the final Result. It must not block for long — Run will not proceed
	// to the next tool call until it returns.
	OnStep func(ToolCall)

	// Seed, if set, are prior conversation turns (an earlier exchange's
	// user/assistant messages) threaded in before the current question,
	// letting a caller resume a multi-turn conversation instead of
	// starting the agentic conversation fresh each request.
	Seed []ConversationTurn
}

// New builds a Loop with the default iteration cap.
func New(provider llm.ToolCapable, model string, dispatcher *tools.Dispatcher) *Loop {
	return &Loop{
		Provider:      provider,
		Model:         model,
		Dispatcher:    dispatcher,
		MaxIterations: DefaultMaxIterations,
	}
}

// Run executes the agentic loop for a single request. rc carries the
// drawing and sub-systems (retriever, sub-LLM) the dispatched tools need.
func (l *Loop) Run(ctx context.Context, question string, rc *tools.RequestContext) (*Result, error) {
	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	state := &AgenticState{
		Question:      question,
		Drawing:       rc.Drawing,
		HasDrawing:    rc.HasDrawing,
		MaxIterations: maxIter,
	}
	state.Turns = append(state.Turns, ConversationTurn{Role: llm.RoleSystem, Content: prompts.SystemPrompt()})
	state.Turns = append(state.Turns, l.Seed...)
	state.Turns = append(state.Turns,
		ConversationTurn{Role: llm.RoleUser, Content: prompts.Assemble(prompts.AgenticSystem, question, nil, rc.Drawing, rc.HasDrawing)},
	)

	schemas := tools.Schemas()

	for state.Iteration < maxIter {
		select {
		case <-ctx.Done():
			return partialResult(state, false), ctx.Err()
		default:
		}

		completion, err := l.Provider.CompleteWithTools(ctx, llm.CompletionRequest{
			Model:    l.Model,
			Messages: toMessages(state.Turns),
		}, schemas)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return partialResult(state, false), ctxErr
			}
			return partialResult(state, false), fmt.Errorf("%w: %v", ErrAgenticFailure, err)
		}

		state.Iteration++

		if len(completion.ToolCalls) == 0 {
			state.Turns = append(state.Turns, ConversationTurn{Role: llm.RoleAssistant, Content: completion.Text})
			return &Result{
				Answer:    completion.Text,
				Turns:     state.Turns,
				ToolCalls: state.ToolCalls,
			}, nil
		}

		state.Turns = append(state.Turns, ConversationTurn{
			Role:      llm.RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		for _, call := range completion.ToolCalls {
			select {
			case <-ctx.Done():
				return partialResult(state, false), ctx.Err()
			default:
			}

			// Some providers (Ollama) don't assign tool-call IDs; mint one
			// so the following tool turn can still be correlated.
			if call.ID == "" {
				call.ID = uuid.NewString()
			}

			start := time.Now()
			result := l.Dispatcher.Dispatch(ctx, rc, call)
			elapsed := time.Since(start)

			success := true
			if m, ok := result.(map[string]any); ok {
				if v, ok := m["success"]; ok {
					success, _ = v.(bool)
				} else if _, hasErr := m["error"]; hasErr {
					success = false
				}
			}

			step := ToolCall{
				Step:      len(state.ToolCalls) + 1,
				ToolName:  call.Name,
				Arguments: call.Arguments,
				Result:    result,
				Success:   success,
				Duration:  elapsed,
			}
			state.ToolCalls = append(state.ToolCalls, step)
			if l.OnStep != nil {
				l.OnStep(step)
			}

			resultJSON, _ := json.Marshal(result)
			state.Turns = append(state.Turns, ConversationTurn{
				Role:       llm.RoleTool,
				Content:    string(resultJSON),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	return partialResult(state, true), nil
}

func partialResult(state *AgenticState, capReached bool) *Result {
	answer := lastAssistantText(state.Turns)
	if answer == "" {
		answer = "I've analyzed your question but need more iterations to provide a complete answer. Please try rephrasing or breaking down your question."
	}
	return &Result{
		Answer:              answer,
		Turns:               state.Turns,
		ToolCalls:           state.ToolCalls,
		IterationCapReached: capReached,
	}
}

func lastAssistantText(turns []ConversationTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == llm.RoleAssistant && turns[i].Content != "" {
			return turns[i].Content
		}
	}
	return ""
}

func toMessages(turns []ConversationTurn) []llm.Message {
	out := make([]llm.Message, len(turns))
	for i, t := range turns {
		out[i] = llm.Message{
			Role:       t.Role,
			Content:    t.Content,
			ToolCalls:  t.ToolCalls,
			ToolCallID: t.ToolCallID,
			ToolName:   t.ToolName,
		}
	}
	return out
}

