package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/tools"
)

// drawingArgKey is the reserved argument name an MCP caller uses to attach
// the ephemeral drawing to a tool call. It isn't part of any tool's formal
// schema (the agentic loop binds the drawing once per request, not per
// call) but callers of the standalone MCP surface have no other request
// envelope to carry it in.
const drawingArgKey = "drawing"

// handleTool builds the generic MCP handler for one Registry tool: it
// splits the drawing out of the call arguments, builds a RequestContext,
// and dispatches through the same Dispatcher the agentic loop uses.
func (s *Server) handleTool(t tools.Tool) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			args = map[string]any{}
		}

		rc := &tools.RequestContext{
			Retriever:   s.retriever,
			SubLLM:      s.subLLM,
			SubLLMModel: s.subLLMModel,
		}

		if raw, ok := args[drawingArgKey]; ok {
			delete(args, drawingArgKey)
			if drawingJSON, err := json.Marshal(raw); err == nil {
				if d, ok := geometry.FromJSON(drawingJSON); ok {
					rc.Drawing = d
					rc.HasDrawing = true
				}
			}
		}

		argsJSON, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result := s.dispatcher.Dispatch(ctx, rc, llm.ToolCallIntent{
			Name:      t.Schema.Name,
			Arguments: argsJSON,
		})

		resultJSON, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}
