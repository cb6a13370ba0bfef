package tools

import (
	"encoding/json"

	"github.com/buildregs/ragagent/internal/llm"
)

func mustSchema(s string) json.RawMessage {
	return json.RawMessage(s)
}

var retrieveRegulationsSchema = llm.ToolSchema{
	Name:        RetrieveRegulations,
	Description: "Retrieve relevant building regulation passages for a natural-language query.",
	Parameters: mustSchema(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Natural language search query"},
			"top_k": {"type": "integer", "description": "Number of passages to retrieve (default 5)"}
		},
		"required": ["query"]
	}`),
}

var analyzeDrawingComplianceSchema = llm.ToolSchema{
	Name:        AnalyzeDrawingCompliance,
	Description: "Analyze the current request's drawing against a set of regulation passages and identify violations.",
	Parameters: mustSchema(`{
		"type": "object",
		"properties": {
			"regulations": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Regulation text passages to check the drawing against"
			}
		},
		"required": ["regulations"]
	}`),
}

var calculateDrawingDimensionsSchema = llm.ToolSchema{
	Name:        CalculateDrawingDimensions,
	Description: "Calculate geometric dimensions (plot area, extension depth, building height) from the current request's drawing.",
	Parameters: mustSchema(`{
		"type": "object",
		"properties": {
			"dimension_type": {
				"type": "string",
				"enum": ["plot_area", "extension_depth", "building_height", "all"],
				"description": "Which dimension to compute"
			}
		},
		"required": ["dimension_type"]
	}`),
}

var generateCompliantDesignSchema = llm.ToolSchema{
	Name:        GenerateCompliantDesign,
	Description: "Generate an adjusted, compliant version of the drawing given a list of violations and the regulations that must be satisfied.",
	Parameters: mustSchema(`{
		"type": "object",
		"properties": {
			"original_drawing": {"description": "The drawing to adjust, in the same JSON form as the request's drawing"},
			"violations": {"type": "array", "items": {"type": "string"}},
			"regulations": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["original_drawing", "violations", "regulations"]
	}`),
}

var verifyComplianceSchema = llm.ToolSchema{
	Name:        VerifyCompliance,
	Description: "Verify whether the current request's drawing complies with a set of regulation passages, returning a pass/fail verdict.",
	Parameters: mustSchema(`{
		"type": "object",
		"properties": {
			"regulations": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["regulations"]
	}`),
}
