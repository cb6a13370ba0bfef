package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrToolsUnsupported is returned by CompleteWithTools when the provider
// or configured model does not support function/tool calling.
var ErrToolsUnsupported = errors.New("provider does not support tool calling")

// RoleTool marks a message as the result of a previously requested tool
// call; ToolCallID must match the ID on the ToolCallIntent it answers.
const RoleTool Role = "tool"

// ToolSchema describes one callable tool in JSON-Schema form, matching the
// shape OpenAI/Anthropic/Ollama all expect for function declarations.
type ToolSchema struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object, e.g. {"type":"object","properties":{...},"required":[...]}.
	Parameters json.RawMessage
}

// ToolCallIntent is a single tool invocation requested by the model.
type ToolCallIntent struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolCompletion is the result of a tool-aware completion request. Either
// Text is set (the model produced a final answer) or ToolCalls is
// non-empty (the model wants to invoke one or more tools before
// continuing).
type ToolCompletion struct {
	Text         string
	ToolCalls    []ToolCallIntent
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// ToolCapable is implemented by providers that can take a tool schema
// list and return structured tool-call intents instead of only text.
type ToolCapable interface {
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolSchema) (*ToolCompletion, error)
}
