package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgraph/internal/output"
	"github.com/joescharf/reviewgraph/internal/store"
)

var (
	historyLimit    int
	historyLanguage string
	historyFormat   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived reviews",
	Long: `Browse archived reviews.

Running bare 'reviewgraph history' is the same as 'reviewgraph history list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd.Context())
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reviews, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListRun(cmd.Context())
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an archived review (ID prefixes accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyShowRun(cmd.Context(), args[0])
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived review (ID prefixes accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "Maximum number of reviews to list")
	historyCmd.PersistentFlags().StringVar(&historyLanguage, "language", "", "Filter by language")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format: text, json, markdown")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

var errHistoryDisabled = errors.New("review history is disabled (history.enabled: false)")

func openHistory() (store.Store, error) {
	if !viper.GetBool("history.enabled") {
		return nil, errHistoryDisabled
	}
	return getStore()
}

func historyListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openHistory()
	if err != nil {
		return err
	}

	reviews, err := s.ListReviews(ctx, store.ReviewListFilter{Language: historyLanguage, Limit: historyLimit})
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		ui.Info("No reviews found. Use 'reviewgraph review <file>' to create one.")
		return nil
	}

	table := ui.Table([]string{"ID", "When", "Language", "Route", "Score", "Issues"})
	for _, r := range reviews {
		_ = table.Append([]string{
			shortID(r.ID),
			timeAgo(r.CreatedAt),
			r.Language,
			string(r.Route),
			output.ScoreColor(r.OverallScore),
			fmt.Sprintf("%d", len(r.Issues)),
		})
	}
	return table.Render()
}

func historyShowRun(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateFormat(historyFormat); err != nil {
		return err
	}
	s, err := openHistory()
	if err != nil {
		return err
	}

	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if historyFormat == "text" {
		ui.Info("Review %s (%s, %s)", output.Cyan(r.ID), r.Language, r.CreatedAt.Local().Format(time.RFC822))
	}
	return renderReport(historyFormat, r.Report, r.Route, r.Path, r.Language, r)
}

func historyDeleteRun(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openHistory()
	if err != nil {
		return err
	}

	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete review: %s", r.ID)
		return nil
	}
	if err := s.DeleteReview(ctx, r.ID); err != nil {
		return err
	}
	ui.Success("Deleted review: %s", output.Cyan(shortID(r.ID)))
	return nil
}

// shortID returns the first 12 characters of a ULID for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// timeAgo renders a timestamp relative to now.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
