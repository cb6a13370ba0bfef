package config

import "github.com/buildregs/ragagent/internal/fallback"

// defaultModels maps each provider to its default chat and embedding model,
// used when llm_model / embedding_model are left unset.
var defaultModels = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:    {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
	ProviderGoogle:    {Model: "gemini-3-pro-preview", EmbeddingModel: "text-embedding-004"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultModelFor returns the conventional chat model name for a provider,
// falling back to the Anthropic default for an unrecognized provider.
func DefaultModelFor(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m.Model
	}
	return defaultModels[ProviderAnthropic].Model
}

// DefaultEmbeddingModelFor returns the conventional embedding model name for
// a provider, falling back to the Anthropic-paired default.
func DefaultEmbeddingModelFor(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m.EmbeddingModel
	}
	return defaultModels[ProviderAnthropic].EmbeddingModel
}

// DefaultConfig returns a Config with sensible defaults, matching spec.md
// §6's recognized-keys defaults exactly.
func DefaultConfig() *Config {
	return &Config{
		Provider:               ProviderAnthropic,
		LLMModel:               DefaultModelFor(ProviderAnthropic),
		LLMTemperature:         0.3,
		LLMMaxTokensAnswer:     500,
		LLMMaxTokensSummary:    1500,
		EmbeddingProvider:      ProviderOpenAI,
		EmbeddingModel:         DefaultEmbeddingModelFor(ProviderOpenAI),
		TopKDefault:            5,
		RelevanceThreshold:     0.7,
		MaxIterations:          10,
		RequestDeadlineSeconds: 120,
		RefusalPhrases:         append([]string(nil), fallback.RefusalPhrases...),
		DataDir:                "data",
		Server: ServerConfig{
			Port:     8080,
			AllowAll: false,
		},
	}
}
