package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildregs/ragagent/internal/knowledge"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the cached knowledge summary",
	Long:  `Prints the corpus overview and suggested questions the Knowledge Summary Service serves as a Tier-4 fallback, regenerating it first if --refresh is given.`,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().Bool("refresh", false, "regenerate the summary from the current corpus before printing it")
	summaryCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	refresh, _ := cmd.Flags().GetBool("refresh")
	if refresh {
		if err := a.knowledge.Regenerate(ctx, corpusSampler(a.store)); err != nil {
			return fmt.Errorf("regenerating knowledge summary: %w", err)
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a.knowledge.Get())
	}

	artifact, ok := a.knowledge.Get().(*knowledge.Artifact)
	if !ok {
		fmt.Println("No knowledge summary available.")
		return nil
	}

	fmt.Println(artifact.Overview)
	fmt.Println()
	if len(artifact.Topics) > 0 {
		fmt.Println("Topics:")
		for _, t := range artifact.Topics {
			fmt.Printf("  - %s\n", t)
		}
		fmt.Println()
	}
	if len(artifact.SuggestedQuestions) > 0 {
		fmt.Println("Suggested questions:")
		for _, q := range artifact.SuggestedQuestions {
			fmt.Printf("  - %s\n", q)
		}
	}

	return nil
}
