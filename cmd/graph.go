package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/reviewgraph/internal/pipeline"
	webui "github.com/joescharf/reviewgraph/internal/ui"
)

var graphHTML string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the review DAG as Mermaid source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return graphRun()
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphHTML, "html", "", "Write an HTML page rendering the graph to this file")
	rootCmd.AddCommand(graphCmd)
}

func graphRun() error {
	src := pipeline.Mermaid()
	if graphHTML == "" {
		fmt.Fprint(ui.Out, src)
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would write graph page: %s", graphHTML)
		return nil
	}

	f, err := os.Create(graphHTML)
	if err != nil {
		return fmt.Errorf("create %s: %w", graphHTML, err)
	}
	if err := webui.RenderGraph(f, webui.GraphPage{Source: src}); err != nil {
		_ = f.Close()
		return fmt.Errorf("render graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	ui.Success("Wrote %s", graphHTML)
	return nil
}
