package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/buildregs/ragagent/internal/geometry"
	"github.com/buildregs/ragagent/internal/llm"
)

var errNoDrawing = errors.New("no drawing available in context")

type retrieveRegulationsArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func execRetrieveRegulations(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	var args retrieveRegulationsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.TopK <= 0 {
		args.TopK = 5
	}
	if rc.Retriever == nil {
		return map[string]any{"success": false, "message": "retrieval backend not configured"}, nil
	}

	chunks, err := rc.Retriever.Retrieve(ctx, args.Query, args.TopK)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}
	if len(chunks) == 0 {
		return map[string]any{"success": false, "count": 0, "message": "No relevant regulations found"}, nil
	}

	regulations := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		regulations[i] = map[string]any{
			"id":            i,
			"document":      c.Document,
			"page":          c.Page,
			"paragraph":     c.Paragraph,
			"section_title": c.SectionTitle,
			"content":       c.Content,
			"content_type":  string(c.ContentType),
			"relevance":     c.Relevance,
		}
	}

	return map[string]any{
		"success":     true,
		"count":       len(regulations),
		"regulations": regulations,
	}, nil
}

type dimensionsArgs struct {
	DimensionType string `json:"dimension_type"`
}

func execCalculateDrawingDimensions(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	var args dimensionsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if !rc.HasDrawing {
		return nil, errNoDrawing
	}

	dimensions := map[string]any{}
	want := func(t string) bool { return args.DimensionType == t || args.DimensionType == "all" }
	all := measuredDimensions(rc.Drawing)

	if want("plot_area") {
		dimensions["plot_area_m2"] = all["plot_area_m2"]
	}
	if want("extension_depth") {
		dimensions["extension_depth_m"] = all["extension_depth_m"]
	}
	if want("building_height") {
		dimensions["building_height_m"] = all["building_height_m"]
	}

	return map[string]any{"success": true, "dimensions": dimensions}, nil
}

// measuredDimensions runs the full C1 dimension set against a drawing,
// reporting the sentinel text for whichever dimensions aren't determinable.
// Shared by the dimensions tool and by the compliance-analysis/verification
// tools, which surface the same measured values to the sub-LLM prompt
// instead of asking it to eyeball the raw drawing JSON.
func measuredDimensions(d geometry.Drawing) map[string]any {
	dimensions := map[string]any{}
	if m := geometry.PlotArea(d); m.Determinable {
		dimensions["plot_area_m2"] = round2(m.Value)
	} else {
		dimensions["plot_area_m2"] = geometry.NotDeterminableText()
	}
	if m := geometry.ExtensionDepth(d); m.Determinable {
		dimensions["extension_depth_m"] = round2(m.Value)
	} else {
		dimensions["extension_depth_m"] = geometry.NotDeterminableText()
	}
	if m := geometry.BuildingHeight(d); m.Determinable {
		dimensions["building_height_m"] = round2(m.Value)
	} else {
		dimensions["building_height_m"] = geometry.NotDeterminableText()
	}
	return dimensions
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type analyzeComplianceArgs struct {
	Regulations []string `json:"regulations"`
}

func execAnalyzeDrawingCompliance(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	var args analyzeComplianceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if !rc.HasDrawing {
		return nil, errNoDrawing
	}

	drawingJSON, _ := json.MarshalIndent(rc.Drawing, "", "  ")
	regsJSON, _ := json.MarshalIndent(args.Regulations, "", "  ")
	measurementsJSON, _ := json.MarshalIndent(measuredDimensions(rc.Drawing), "", "  ")

	prompt := fmt.Sprintf(`Analyze this building drawing against the regulations and identify violations.

REGULATIONS:
%s

DRAWING:
%s

MEASURED VALUES (computed directly from the drawing geometry; trust these over anything you infer from the raw drawing JSON):
%s

Provide a structured analysis:
1. List all violations found
2. List compliant aspects
3. Provide specific measurements that violate rules, drawing on the measured values above

Respond as JSON: {"violations": [...], "compliant": [...], "measurements": {...}}`, regsJSON, drawingJSON, measurementsJSON)

	return callSubLLMForJSON(ctx, rc, "You are a building regulations expert. Always respond with valid JSON.", prompt)
}

type generateDesignArgs struct {
	OriginalDrawing json.RawMessage `json:"original_drawing"`
	Violations      []string        `json:"violations"`
	Regulations     []string        `json:"regulations"`
}

func execGenerateCompliantDesign(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	var args generateDesignArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	violationsJSON, _ := json.MarshalIndent(args.Violations, "", "  ")
	regsJSON, _ := json.MarshalIndent(args.Regulations, "", "  ")

	prompt := fmt.Sprintf(`Generate an adjusted, compliant version of this building drawing.

ORIGINAL DRAWING:
%s

VIOLATIONS TO FIX:
%s

REGULATIONS TO COMPLY WITH:
%s

Provide:
1. Adjusted JSON (complete, valid JSON)
2. Explanation of changes made
3. Verification that it now complies

Respond as JSON: {"adjusted_drawing": {...}, "changes_made": [...], "compliance_verification": "..."}`,
		string(args.OriginalDrawing), violationsJSON, regsJSON)

	return callSubLLMForJSON(ctx, rc, "You are a building design expert. Always respond with valid JSON.", prompt)
}

type verifyComplianceArgs struct {
	Regulations []string `json:"regulations"`
}

func execVerifyCompliance(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error) {
	var args verifyComplianceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if !rc.HasDrawing {
		return nil, errNoDrawing
	}

	drawingJSON, _ := json.MarshalIndent(rc.Drawing, "", "  ")
	regsJSON, _ := json.MarshalIndent(args.Regulations, "", "  ")
	measurementsJSON, _ := json.MarshalIndent(measuredDimensions(rc.Drawing), "", "  ")

	prompt := fmt.Sprintf(`Re-measure this drawing and verify whether it complies with the following regulations.

REGULATIONS:
%s

DRAWING:
%s

MEASURED VALUES (computed directly from the drawing geometry; trust these over anything you infer from the raw drawing JSON):
%s

Respond as JSON: {"compliant": true|false, "explanation": "...", "remaining_issues": [...]}`, regsJSON, drawingJSON, measurementsJSON)

	return callSubLLMForJSON(ctx, rc, "You are a building regulations compliance checker. Always respond with valid JSON.", prompt)
}

// callSubLLMForJSON sends a one-shot prompt to the request's sub-LLM and
// parses the response as a JSON object, stripping a markdown code fence if
// present. The sub-LLM is a plain text-completion call, never itself
// tool-aware, to avoid recursive tool invocation.
func callSubLLMForJSON(ctx context.Context, rc *RequestContext, system, prompt string) (any, error) {
	if rc.SubLLM == nil {
		return map[string]any{"success": false, "error": "sub-LLM not configured"}, nil
	}

	resp, err := rc.SubLLM.Complete(ctx, llm.CompletionRequest{
		Model: rc.SubLLMModel,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}

	text := stripCodeFence(resp.Content)

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("invalid JSON from model: %v", err)}, nil
	}
	result["success"] = true
	return result, nil
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
