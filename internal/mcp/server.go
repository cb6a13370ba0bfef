// Package mcp exposes the Tool Registry & Dispatcher (C5) over the Model
// Context Protocol, so an external MCP-speaking assistant can call
// retrieve_regulations, analyze_drawing_compliance,
// calculate_drawing_dimensions, generate_compliant_design, and
// verify_compliance directly, outside of the in-process agentic loop.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/retrieval"
	"github.com/buildregs/ragagent/internal/tools"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server exposing the five compliance tools.
type Server struct {
	retriever   *retrieval.Gateway
	subLLM      llm.Provider
	subLLMModel string
	dispatcher  *tools.Dispatcher
	mcp         *server.MCPServer
}

// NewServer creates a new MCP server wired to the retrieval gateway and
// the sub-LLM the tools use to reason about drawings.
func NewServer(retriever *retrieval.Gateway, subLLM llm.Provider, subLLMModel string) *Server {
	s := &Server{
		retriever:   retriever,
		subLLM:      subLLM,
		subLLMModel: subLLMModel,
		dispatcher:  tools.NewDispatcher(),
	}

	s.mcp = server.NewMCPServer(
		"buildregs-agent",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds every tool in the Registry to the MCP server, reusing
// its JSON-schema definitions verbatim so the MCP surface and the
// in-process agentic loop never drift apart.
func (s *Server) registerTools() {
	for _, t := range tools.Registry {
		t := t
		s.mcp.AddTool(mcpToolFor(t.Schema), s.handleTool(t))
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
