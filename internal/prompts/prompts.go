// Package prompts assembles the final prompt text sent to the LLM client
// (C3), combining retrieved regulation chunks, the drawing context, and
// the conversation so far into one of four named templates.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/retrieval"
)

// Template names the prompt variant selected by the intent classifier or
// the orchestrator's mode.
type Template string

const (
	StandardQA               Template = "STANDARD_QA"
	DrawingOnly              Template = "DRAWING_ONLY"
	ComplianceWithAdjustment Template = "COMPLIANCE_WITH_ADJUSTMENT"
	AgenticSystem            Template = "AGENTIC_SYSTEM"
)

// maxPromptTokens bounds the assembled prompt; chunks are dropped from the
// tail (lowest relevance first, since callers pass chunks pre-sorted by
// descending relevance) until the budget is met.
const maxPromptTokens = 12000

const charsPerToken = 4

// Assemble builds the user-turn content for a given template, question,
// retrieved chunks, and optional drawing.
func Assemble(tmpl Template, question string, chunks []retrieval.Chunk, drawing geometry.Drawing, hasDrawing bool) string {
	switch tmpl {
	case DrawingOnly:
		return assembleDrawingOnly(question, drawing, hasDrawing)
	case ComplianceWithAdjustment:
		return assembleComplianceWithAdjustment(question, chunks, drawing, hasDrawing)
	case AgenticSystem:
		return assembleAgentic(question, drawing, hasDrawing)
	default:
		return assembleStandardQA(question, chunks, drawing, hasDrawing)
	}
}

func assembleStandardQA(question string, chunks []retrieval.Chunk, drawing geometry.Drawing, hasDrawing bool) string {
	render := func(cs []retrieval.Chunk) string {
		var sb strings.Builder
		sb.WriteString("You are answering a question about building regulations.\n\n")
		sb.WriteString(renderChunks(cs))

		if hasDrawing {
			sb.WriteString("\n")
			sb.WriteString(renderDrawingSummary(drawing))
		}

		sb.WriteString("\nQuestion: ")
		sb.WriteString(question)
		sb.WriteString("\n\nAnswer using only the regulations and drawing context above. " +
			"If the regulations and drawing do not contain enough information to answer, say so plainly.")
		return sb.String()
	}
	return capByDroppingChunks(render, chunks)
}

func assembleDrawingOnly(question string, drawing geometry.Drawing, hasDrawing bool) string {
	var sb strings.Builder
	sb.WriteString("You are answering a question purely about the geometry of a building drawing. " +
		"No regulation text is relevant to this question.\n\n")

	if hasDrawing {
		sb.WriteString(renderDrawingSummary(drawing))
	} else {
		sb.WriteString("No drawing was supplied.\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	// No retrieved chunks to drop here; nothing is truncated.
	return sb.String()
}

func assembleComplianceWithAdjustment(question string, chunks []retrieval.Chunk, drawing geometry.Drawing, hasDrawing bool) string {
	render := func(cs []retrieval.Chunk) string {
		var sb strings.Builder
		sb.WriteString("You are checking a building drawing for compliance with the regulations below, " +
			"and are expected to suggest a compliant adjustment if a violation is found.\n\n")
		sb.WriteString(renderChunks(cs))

		if hasDrawing {
			sb.WriteString("\n")
			sb.WriteString(renderDrawingSummary(drawing))
		} else {
			sb.WriteString("\nNo drawing was supplied; compliance cannot be checked against geometry.\n")
		}

		sb.WriteString("\nRequest: ")
		sb.WriteString(question)
		sb.WriteString("\n\nIdentify any violations, cite the regulation they violate, and propose a specific " +
			"adjusted dimension that would bring the design into compliance.")
		return sb.String()
	}
	return capByDroppingChunks(render, chunks)
}

// agenticSystemPrompt is the fixed system instruction for the agentic loop
// (C6); it never varies per request.
const agenticSystemPrompt = `You are a building regulations assistant with access to tools.
You can retrieve regulation text, calculate dimensions from the user's drawing, analyze
compliance, generate a compliant redesign, and verify compliance. Use tools in the order
that makes sense for the question; do not call a tool whose result you already have.
When you have enough information, respond with a final answer in plain text instead of
another tool call.`

// drawingPreviewChars bounds the inline JSON preview in the agentic seed
// turn, matching the original agent's 500-character drawing preview.
const drawingPreviewChars = 500

func assembleAgentic(question string, drawing geometry.Drawing, hasDrawing bool) string {
	var sb strings.Builder
	sb.WriteString("User Question: ")
	sb.WriteString(question)

	if !hasDrawing {
		sb.WriteString("\nBuilding Drawing Available: No")
		return sb.String()
	}

	sb.WriteString("\n\nBuilding Drawing Available: Yes\n")
	preview, err := json.Marshal(drawing)
	if err != nil {
		return sb.String()
	}
	text := string(preview)
	if len(text) > drawingPreviewChars {
		text = text[:drawingPreviewChars] + "..."
	}
	fmt.Fprintf(&sb, "Drawing Preview: %s", text)
	return sb.String()
}

// SystemPrompt returns the fixed system-turn content for the agentic loop.
func SystemPrompt() string { return agenticSystemPrompt }

func renderChunks(chunks []retrieval.Chunk) string {
	if len(chunks) == 0 {
		return "RELEVANT REGULATIONS:\n(none retrieved)\n"
	}
	var sb strings.Builder
	sb.WriteString("RELEVANT REGULATIONS:\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] %s", i+1, c.Document)
		if c.Page > 0 {
			fmt.Fprintf(&sb, ", p.%d", c.Page)
		}
		sb.WriteString("\n")
		sb.WriteString(c.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func renderDrawingSummary(d geometry.Drawing) string {
	var sb strings.Builder
	sb.WriteString("DRAWING CONTEXT:\n")

	dims := geometry.AllDimensions(d)
	for _, key := range []string{"plot_area_m2", "extension_depth_m", "building_height_m"} {
		fmt.Fprintf(&sb, "  %s: %v\n", key, dims[key])
	}
	return sb.String()
}

// capByDroppingChunks renders the prompt via render, and while it exceeds
// the approximate token budget (4 chars/token), drops the lowest-relevance
// chunk (the tail of chunks, which callers pass pre-sorted by descending
// relevance) and re-renders. The question text passed into render is never
// touched: once chunks run out, whatever render produces is returned as-is.
func capByDroppingChunks(render func([]retrieval.Chunk) string, chunks []retrieval.Chunk) string {
	limit := maxPromptTokens * charsPerToken
	working := chunks
	out := render(working)
	for len(out) > limit && len(working) > 0 {
		working = working[:len(working)-1]
		out = render(working)
	}
	return out
}
