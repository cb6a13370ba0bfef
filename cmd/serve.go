package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/buildregs/ragagent/internal/mcp"
	"github.com/buildregs/ragagent/internal/server"
)

const serverShutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API server",
	Long:  `Starts the HTTP server exposing /query, /query-agentic, /knowledge-summary, and /health.`,
	RunE:  runServe,
}

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the regulation retrieval and drawing-analysis tools to AI agents.`,
	RunE:  runMCPServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpServeCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		Port:                   cfg.Server.Port,
		AllowAll:               cfg.Server.AllowAll,
		RequestDeadlineSeconds: cfg.RequestDeadlineSeconds,
	}, a.orchestrator, a.knowledge)

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "buildregs-agent HTTP server listening on :%d (documents=%d)\n", cfg.Server.Port, a.store.Count())
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func runMCPServe(cmd *cobra.Command, args []string) error {
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

	mcpserver.Version = Version
	fmt.Fprintf(os.Stderr, "buildregs-agent MCP server started on stdio (documents=%d)\n", a.store.Count())

	srv := mcpserver.NewServer(a.retriever, a.provider, cfg.LLMModel)
	return srv.Serve()
}
