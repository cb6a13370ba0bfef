package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level buildregs-agent configuration, corresponding to
// .buildregs.yml. Field names follow spec.md §6's recognized-keys list.
type Config struct {
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	LLMModel       string       `yaml:"llm_model" koanf:"llm_model"`
	LLMTemperature float64      `yaml:"llm_temperature" koanf:"llm_temperature"`

	// LLMMaxTokensAnswer and LLMMaxTokensSummary implement the two context
	// defaults spec.md §6 assigns to a single llm_max_tokens key (500 for
	// answers, 1500 for the knowledge summary); each is independently
	// overridable.
	LLMMaxTokensAnswer  int `yaml:"llm_max_tokens" koanf:"llm_max_tokens"`
	LLMMaxTokensSummary int `yaml:"llm_max_tokens_summary" koanf:"llm_max_tokens_summary"`

	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`

	TopKDefault            int     `yaml:"top_k_default" koanf:"top_k_default"`
	RelevanceThreshold     float64 `yaml:"relevance_threshold" koanf:"relevance_threshold"`
	MaxIterations          int     `yaml:"max_iterations" koanf:"max_iterations"`
	RequestDeadlineSeconds int     `yaml:"request_deadline_seconds" koanf:"request_deadline_seconds"`

	// RefusalPhrases is initialized from the canonical §4.8 set; it is
	// recognized as a configuration key so a deployment can see it, but
	// callers MUST NOT silently append to it at runtime (Open Question #1).
	RefusalPhrases []string `yaml:"refusal_phrases" koanf:"refusal_phrases"`

	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	Server ServerConfig `yaml:"server" koanf:"server"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
