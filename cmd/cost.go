package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildregs/ragagent/internal/indexer"
	"github.com/buildregs/ragagent/internal/llm"
	"github.com/buildregs/ragagent/internal/walker"
)

var costCmd = &cobra.Command{
	Use:   "cost [source-dir]",
	Short: "Estimate embedding costs for indexing a regulation corpus",
	Long:  `Walks source-dir, counts the files and chunks that would be (re)indexed, and estimates the embedding API cost without storing anything.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCost,
}

func init() {
	costCmd.Flags().Int("chunk-tokens", indexer.DefaultChunkTokens, "approximate token budget per stored chunk")
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	sourceDir := "."
	if len(args) == 1 {
		sourceDir = args[0]
	}
	chunkTokens, _ := cmd.Flags().GetInt("chunk-tokens")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := walker.Walk(walker.WalkerConfig{RootDir: sourceDir})
	if err != nil {
		return fmt.Errorf("walking %s: %w", sourceDir, err)
	}
	if len(files) == 0 {
		fmt.Println("No files found to index.")
		return nil
	}

	var totalTokens, totalChunks int
	for _, f := range files {
		content, err := os.ReadFile(f.Path)
		if err != nil {
			continue
		}
		docs := indexer.ChunkRegulationFile(f.RelPath, string(content), chunkTokens)
		totalChunks += len(docs)
		for _, d := range docs {
			totalTokens += llm.EstimateTokens(d.Content)
		}
	}

	embeddingModel := cfg.EmbeddingModel
	cost := llm.EstimateCost(embeddingModel, totalTokens, 0)

	fmt.Println("Cost Estimate")
	fmt.Println("=============")
	fmt.Printf("  Files found:       %d\n", len(files))
	fmt.Printf("  Chunks to embed:   %d\n", totalChunks)
	fmt.Printf("  Estimated tokens:  %d\n", totalTokens)
	fmt.Printf("  Embedding model:   %s\n", embeddingModel)
	if cost > 0 {
		fmt.Printf("  Estimated cost:    $%.4f\n", cost)
	} else {
		fmt.Println("  Estimated cost:    unknown (model not in the pricing table)")
	}

	return nil
}
