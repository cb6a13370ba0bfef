// Package tools implements the Tool Registry & Dispatcher (C5): the five
// wire-stable tools the agentic loop (C6) can invoke, and the dispatcher
// that executes them against a per-request RequestContext.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/retrieval"
)

// Tool wire names. These are a stable contract: the LLM learns them from
// the schema, and the response_generator-style callers on the other side
// of an agentic conversation key off them verbatim.
const (
	RetrieveRegulations        = "retrieve_regulations"
	AnalyzeDrawingCompliance   = "analyze_drawing_compliance"
	CalculateDrawingDimensions = "calculate_drawing_dimensions"
	GenerateCompliantDesign    = "generate_compliant_design"
	VerifyCompliance           = "verify_compliance"
)

// DimensionTypes enumerates the values accepted by
// calculate_drawing_dimensions' dimension_type argument.
var DimensionTypes = []string{"plot_area", "extension_depth", "building_height", "all"}

// RequestContext carries the per-request state tools need but that isn't
// part of their JSON arguments: the drawing the user attached, and the
// sub-LLM tools use to reason about compliance and redesign.
type RequestContext struct {
	Drawing      geometry.Drawing
	HasDrawing   bool
	Retriever    *retrieval.Gateway
	SubLLM       llm.Provider
	SubLLMModel  string
}

// Tool pairs a wire-stable schema with its executor.
type Tool struct {
	Schema  llm.ToolSchema
	Execute func(ctx context.Context, rc *RequestContext, args json.RawMessage) (any, error)
}

// Registry is the closed set of tools available to the agentic loop.
var Registry = []Tool{
	{Schema: retrieveRegulationsSchema, Execute: execRetrieveRegulations},
	{Schema: analyzeDrawingComplianceSchema, Execute: execAnalyzeDrawingCompliance},
	{Schema: calculateDrawingDimensionsSchema, Execute: execCalculateDrawingDimensions},
	{Schema: generateCompliantDesignSchema, Execute: execGenerateCompliantDesign},
	{Schema: verifyComplianceSchema, Execute: execVerifyCompliance},
}

// Schemas returns the ToolSchema list for passing to an llm.ToolCapable
// provider.
func Schemas() []llm.ToolSchema {
	out := make([]llm.ToolSchema, len(Registry))
	for i, t := range Registry {
		out[i] = t.Schema
	}
	return out
}

// Dispatcher executes tool calls by name against a RequestContext. Tool
// execution errors are caught and returned as a {"success": false, "error":
// ...} result rather than propagated, matching the tolerant dispatch
// behavior the agentic loop expects from every tool call.
type Dispatcher struct {
	byName map[string]Tool
}

// NewDispatcher builds a Dispatcher over the closed tool Registry.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{byName: make(map[string]Tool, len(Registry))}
	for _, t := range Registry {
		d.byName[t.Schema.Name] = t
	}
	return d
}

// Dispatch executes a single named tool call and returns its JSON-ready
// result value.
func (d *Dispatcher) Dispatch(ctx context.Context, rc *RequestContext, call llm.ToolCallIntent) any {
	tool, ok := d.byName[call.Name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("unknown function: %s", call.Name)}
	}

	result, err := tool.Execute(ctx, rc, call.Arguments)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}
	}
	return result
}
