package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/output"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

var (
	reviewLanguage string
	reviewContext  string
	reviewFormat   string
)

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review a code file (or stdin)",
	Long: `Run the review pipeline over a file and print the final report.

Reads from stdin when no file is given or the file is "-". The language is
inferred from the file extension unless --language is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		return reviewRun(cmd.Context(), path, cmd.InOrStdin())
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewLanguage, "language", "l", "", "Language hint (default: from file extension)")
	reviewCmd.Flags().StringVarP(&reviewContext, "context", "c", "", "Free-text context for the reviewers")
	reviewCmd.Flags().StringVarP(&reviewFormat, "format", "f", "text", "Output format: text, json, markdown")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, path string, stdin io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateFormat(reviewFormat); err != nil {
		return err
	}

	code, err := readSource(path, stdin)
	if err != nil {
		return err
	}
	language := reviewLanguage
	if language == "" {
		language = languageFromPath(path)
	}

	reviewer, svc, _, err := newReviewer()
	if err != nil {
		return err
	}
	if err := svc.Init(); err != nil {
		ui.Warning("Reference documents unavailable: %v", err)
	}

	ui.VerboseLog("Reviewing %s (%d bytes)", path, len(code))
	res, err := reviewer.Review(ctx, pipeline.Request{Code: code, Language: language, Context: reviewContext})
	if err != nil {
		return err
	}

	if err := renderReport(reviewFormat, res.Report, res.Route, res.Path, res.Language, res); err != nil {
		return err
	}
	if res.ReviewID != "" && reviewFormat == "text" {
		ui.VerboseLog("Saved as %s", res.ReviewID)
	}
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".rb":   "ruby",
	".java": "java",
	".rs":   "rust",
	".c":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
}

// languageFromPath maps a file extension to a language hint, or "".
func languageFromPath(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

func validateFormat(format string) error {
	switch format {
	case "text", "json", "markdown":
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: text, json, markdown)", format)
	}
}

// renderReport prints a report in the requested format. jsonValue is what
// the json format encodes.
func renderReport(format string, r *models.FinalReport, route models.RouteDecision, path []string, language string, jsonValue any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonValue)
	case "markdown":
		output.Markdown(ui.Out, r, route, path, language)
		return nil
	default:
		return ui.Report(r, route, path)
	}
}
