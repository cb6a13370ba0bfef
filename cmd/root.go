package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "buildregs-agent",
	Short: "Hybrid-RAG query orchestrator over building regulations",
	Long: `buildregs-agent answers natural-language questions about building
regulations, combining a durable vector-indexed regulation corpus with a
per-request geometric drawing and a bounded agentic tool-use loop. It
integrates with AI agents via MCP for direct tool access.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".buildregs.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
