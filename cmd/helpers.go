package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildregs/ragagent/internal/config"
	"github.com/buildregs/ragagent/internal/db"
	"github.com/buildregs/ragagent/internal/embeddings"
	"github.com/buildregs/ragagent/internal/fallback"
	"github.com/buildregs/ragagent/internal/knowledge"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/orchestrator"
	"github.com/buildregs/ragagent/internal/retrieval"
	"github.com/buildregs/ragagent/internal/tools"
	"github.com/buildregs/ragagent/internal/vectordb"
)

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// This is the shared version used by the index, query, and serve commands.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.DefaultEmbeddingModelFor(provider)
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		// For providers without native embeddings, fall back to OpenAI.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (used for embeddings when provider is %s)", provider)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.LLMModel)
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// vectorDir returns the on-disk directory the chromem store persists to
// and loads from, under the configured data directory.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectordb")
}

// knowledgeSummaryPath returns where the Knowledge Summary Service
// persists its generated artifact.
func knowledgeSummaryPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "knowledge_summary.json")
}

// dbPath returns the SQLite database path for conversation and
// index-build bookkeeping.
func dbPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "buildregs.db")
}

// app bundles every collaborator the query-serving commands need, wired
// from a loaded Config. Callers that only need a subset (e.g. the index
// command has no use for the orchestrator) can ignore the rest.
type app struct {
	cfg          *config.Config
	db           *db.DB
	store        vectordb.VectorStore
	retriever    *retrieval.Gateway
	provider     llm.Provider
	knowledge    *knowledge.Service
	ladder       *fallback.Ladder
	dispatcher   *tools.Dispatcher
	orchestrator *orchestrator.Orchestrator
}

// buildApp wires config into a full Orchestrator stack: embedder, vector
// store (loaded from disk if present), LLM provider, tool dispatcher,
// fallback ladder, and Knowledge Summary Service. It is the shared
// construction path for the serve, query, and mcp-serve commands.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := db.Open(dbPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Load(ctx, vectorDir(cfg)); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "No existing vector store found at %s: %v\n", vectorDir(cfg), err)
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	retriever := retrieval.New(store)
	dispatcher := tools.NewDispatcher()

	know := knowledge.New(knowledgeSummaryPath(cfg), provider, cfg.LLMModel)
	if err := know.Load(); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "No existing knowledge summary found: %v\n", err)
	}

	ladder := fallback.New(provider, cfg.LLMModel, know)

	var toolProvider llm.ToolCapable
	if tc, ok := provider.(llm.ToolCapable); ok {
		toolProvider = tc
	}

	orch := orchestrator.New(retriever, provider, toolProvider, cfg.LLMModel, dispatcher, ladder, know)
	orch.Conversations = db.NewConversationStore(database)
	orch.MaxIterations = cfg.MaxIterations
	orch.TopKDefault = cfg.TopKDefault
	orch.RelevanceThreshold = cfg.RelevanceThreshold

	return &app{
		cfg:          cfg,
		db:           database,
		store:        store,
		retriever:    retriever,
		provider:     provider,
		knowledge:    know,
		ladder:       ladder,
		dispatcher:   dispatcher,
		orchestrator: orch,
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
