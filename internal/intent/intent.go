// Package intent implements the Intent Classifier (C7): a deterministic,
// ordered phrase-bag match over the lower-cased question text. No NLP
// library, no regex — first category whose phrase bag matches wins.
package intent

import "strings"

// Category is one of the three intent buckets the orchestrator routes on.
type Category string

const (
	DrawingOnly              Category = "drawing-only"
	ComplianceWithAdjustment Category = "compliance-with-adjustment"
	GeneralRAG               Category = "general-rag"
)

type rule struct {
	category Category
	phrases  []string
}

// rules is evaluated in order; the first rule whose phrase bag contains a
// match wins. GeneralRAG is the default when nothing else matches, so it
// carries no phrase bag of its own.
var rules = []rule{
	{
		category: DrawingOnly,
		phrases: []string{
			"describe my drawing",
			"what is in my drawing",
			"my building drawing",
			"describe my building",
			"analyze my design",
			"what are the dimensions",
			"layers are in my drawing",
		},
	},
	{
		category: ComplianceWithAdjustment,
		phrases: []string{
			"adjust",
			"fix",
			"make compliant",
			"provide compliant",
			"compliant json",
			"compliant design",
		},
	},
}

// Classify returns the intent category for a question. Matching is
// case-insensitive and deterministic: the same input always yields the
// same category.
func Classify(question string) Category {
	lower := strings.ToLower(question)
	for _, r := range rules {
		for _, phrase := range r.phrases {
			if strings.Contains(lower, phrase) {
				return r.category
			}
		}
	}
	return GeneralRAG
}
