package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildregs/ragagent/internal/db"
	"github.com/buildregs/ragagent/internal/indexer"
	"github.com/buildregs/ragagent/internal/progress"
	"github.com/buildregs/ragagent/internal/vectordb"
	"github.com/buildregs/ragagent/internal/walker"
)

var indexCmd = &cobra.Command{
	Use:   "index [source-dir]",
	Short: "(Re)build the vector-indexed regulation corpus",
	Long: `Walks source-dir (defaulting to the current directory), chunks every
regulation text file, and stores the chunks in the vector database. Unchanged
files are skipped. On success, the Knowledge Summary Service is regenerated
against the freshly indexed corpus.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Int("chunk-tokens", indexer.DefaultChunkTokens, "approximate token budget per stored chunk")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourceDir := "."
	if len(args) == 1 {
		sourceDir = args[0]
	}

	chunkTokens, _ := cmd.Flags().GetInt("chunk-tokens")

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning %s...\n", sourceDir)
	}
	files, err := walker.Walk(walker.WalkerConfig{RootDir: sourceDir})
	if err != nil {
		return fmt.Errorf("walking %s: %w", sourceDir, err)
	}
	if len(files) == 0 {
		fmt.Println("No regulation files found to index.")
		return nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Found %d files\n", len(files))
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	builds := db.NewIndexBuildStore(a.db)

	pipeline := indexer.NewPipeline(a.store, builds, cfg.DataDir)
	pipeline.SetChunkTokens(chunkTokens)

	reporter := progress.NewReporter()
	reporter.Start(len(files))
	pipeline.SetProgressFunc(func(processed int, total int, currentFile string) {
		reporter.Update(processed, currentFile)
	})

	result, err := pipeline.Run(ctx, files)
	reporter.Finish()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Indexing complete!")
	fmt.Printf("  Files processed: %d\n", result.FilesProcessed)
	fmt.Printf("  Files skipped:   %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files failed:    %d\n", result.FilesFailed)
	fmt.Printf("  Chunks stored:   %d\n", result.ChunksStored)
	fmt.Printf("  Duration:        %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  Total wall time: %s\n", time.Since(start).Round(time.Millisecond))

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nWarnings (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
	}

	if result.FilesProcessed > 0 {
		if verbose {
			fmt.Fprintf(os.Stderr, "Regenerating knowledge summary...\n")
		}
		if err := a.knowledge.Regenerate(ctx, corpusSampler(a.store)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: knowledge summary regeneration failed: %v\n", err)
		}
	}

	return nil
}

// corpusSampler builds a knowledge.Sampler that pulls a representative
// slice of the just-indexed corpus by running a broad-coverage search
// against the store, rather than re-reading source files from disk.
func corpusSampler(store vectordb.VectorStore) func(ctx context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		results, err := store.Search(ctx, "building regulations requirements", 20, nil)
		if err != nil {
			return nil, fmt.Errorf("sampling corpus for knowledge summary: %w", err)
		}
		samples := make([]string, 0, len(results))
		for _, r := range results {
			samples = append(samples, r.Document.Content)
		}
		return samples, nil
	}
}
