package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/buildregs/ragagent/internal/llm"
)

// mcpToolFor converts a C5 ToolSchema into an mcp.Tool, carrying its
// JSON-schema parameters through unchanged rather than re-declaring them
// with the builder DSL.
func mcpToolFor(schema llm.ToolSchema) mcp.Tool {
	return mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Parameters)
}
