package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/reviewgraph/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients run reviews directly. Configure with:

  {
    "mcpServers": {
      "reviewgraph": { "command": "reviewgraph", "args": ["mcp"] }
    }
  }

Available tools: review_code, review_graph, list_reviews`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
		defer stop()

		reviewer, svc, s, err := newReviewer()
		if err != nil {
			return err
		}
		if err := svc.Init(); err != nil {
			logger.Warn("retrieval disabled", "error", err)
		}

		return mcp.NewServer(reviewer, s, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
