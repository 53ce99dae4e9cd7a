package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joescharf/reviewgraph/internal/models"
)

// Report prints a final report for the terminal.
func (u *UI) Report(r *models.FinalReport, route models.RouteDecision, path []string) error {
	fmt.Fprintf(u.Out, "Overall score: %s/100\n", ScoreColor(r.OverallScore))
	fmt.Fprintf(u.Out, "  security %s  performance %s  syntax %s\n",
		ScoreColor(r.SubScores.Security), ScoreColor(r.SubScores.Performance), ScoreColor(r.SubScores.Syntax))
	if len(r.SubScores.Defaulted) > 0 {
		u.VerboseLog("Neutral score used for: %s", strings.Join(r.SubScores.Defaulted, ", "))
	}
	u.VerboseLog("Route: %s  Path: %s", route, strings.Join(path, " -> "))

	fmt.Fprintln(u.Out)
	fmt.Fprintln(u.Out, r.ReportSummary)

	if len(r.TopIssues) > 0 {
		fmt.Fprintln(u.Out)
		table := u.Table([]string{"Severity", "Type", "Line", "Description", "Suggestion"})
		for _, issue := range r.TopIssues {
			_ = table.Append([]string{
				SeverityColor(string(issue.Severity)),
				issue.Type,
				lineLabel(issue.Line),
				issue.Description,
				firstLine(issue.Suggestion),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if r.ImprovedCode != "" {
		fmt.Fprintln(u.Out)
		fmt.Fprintln(u.Out, Cyan("Improved code:"))
		fmt.Fprintln(u.Out, strings.TrimRight(r.ImprovedCode, "\n"))
	}
	return nil
}

// Markdown writes a final report as a Markdown document.
func Markdown(w io.Writer, r *models.FinalReport, route models.RouteDecision, path []string, language string) {
	fmt.Fprintf(w, "# Code review: %d/100\n\n", r.OverallScore)
	fmt.Fprintf(w, "| Security | Performance | Syntax |\n|---|---|---|\n| %d | %d | %d |\n\n",
		r.SubScores.Security, r.SubScores.Performance, r.SubScores.Syntax)
	fmt.Fprintf(w, "Route `%s` via %s.\n\n", route, strings.Join(path, " → "))

	fmt.Fprintf(w, "## Summary\n\n%s\n", r.ReportSummary)

	if len(r.TopIssues) > 0 {
		fmt.Fprintf(w, "\n## Top issues\n\n")
		for i, issue := range r.TopIssues {
			fmt.Fprintf(w, "%d. **%s** `%s`", i+1, issue.Severity, issue.Type)
			if issue.Line > 0 {
				fmt.Fprintf(w, " (line %d)", issue.Line)
			}
			fmt.Fprintf(w, ": %s\n", issue.Description)
			if issue.Complexity != "" {
				fmt.Fprintf(w, "   - Complexity: %s\n", issue.Complexity)
			}
			for _, s := range strings.Split(issue.Suggestion, "\n") {
				if s = strings.TrimSpace(s); s != "" {
					fmt.Fprintf(w, "   - %s\n", s)
				}
			}
		}
	}

	if r.ImprovedCode != "" {
		fmt.Fprintf(w, "\n## Improved code\n\n```%s\n%s\n```\n", language, strings.TrimRight(r.ImprovedCode, "\n"))
	}
}

func lineLabel(line int) string {
	if line <= 0 {
		return "-"
	}
	return strconv.Itoa(line)
}

func firstLine(s string) string {
	first, _, _ := strings.Cut(s, "\n")
	return first
}
