package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildregs/ragagent/internal/orchestrator"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about building regulations",
	Long:  `Runs a question through the full Orchestrator — retrieval, the optional agentic tool-use loop, and the fallback ladder — and prints the answer.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Bool("agentic", false, "run the bounded agentic tool-use loop instead of the single-shot path")
	queryCmd.Flags().String("drawing", "", "path to a JSON file describing the attached drawing")
	queryCmd.Flags().Int("top-k", 0, "override the number of regulation chunks retrieved (0 = config default)")
	queryCmd.Flags().Bool("json", false, "output the full result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	agentic, _ := cmd.Flags().GetBool("agentic")
	drawingPath, _ := cmd.Flags().GetString("drawing")
	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var drawingRaw []byte
	if drawingPath != "" {
		drawingRaw, err = os.ReadFile(drawingPath)
		if err != nil {
			return fmt.Errorf("reading drawing file: %w", err)
		}
	}

	mode := orchestrator.Standard
	if agentic {
		mode = orchestrator.Agentic
	}

	result, err := a.orchestrator.Answer(ctx, orchestrator.Request{
		Question:   question,
		DrawingRaw: drawingRaw,
		Mode:       mode,
		TopK:       topK,
	})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printAnswer(result)
	return nil
}

func printAnswer(result *orchestrator.AnswerResult) {
	fmt.Println(result.Answer)
	fmt.Println()
	fmt.Printf("  answer type:      %s\n", result.Type)
	fmt.Printf("  drawing used:     %t\n", result.DrawingContextUsed)
	if result.FallbackCause != "" {
		fmt.Printf("  fallback cause:   %s\n", result.FallbackCause)
	}
	if len(result.Sources) > 0 {
		fmt.Println("  sources:")
		for i, s := range result.Sources {
			loc := s.Document
			if s.Page > 0 {
				loc = fmt.Sprintf("%s (p.%d)", loc, s.Page)
			}
			fmt.Printf("    %d. [%.2f] %s\n", i+1, s.Relevance, loc)
		}
	}
	if len(result.ReasoningSteps) > 0 {
		fmt.Println("  reasoning steps:")
		for _, step := range result.ReasoningSteps {
			status := "ok"
			if !step.Success {
				status = "failed"
			}
			fmt.Printf("    %d. %s (%s, %s)\n", step.Step, step.ToolName, status, step.Duration.Round(time.Millisecond))
		}
	}
}
