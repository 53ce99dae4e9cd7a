package aggregate

import (
	"fmt"
	"strings"

	"github.com/joescharf/reviewgraph/internal/models"
)

// MaxSummaryWords bounds the report summary.
const MaxSummaryWords = 200

// Summarize builds a deterministic synopsis of the review.
func Summarize(overall int, stages []string, all, top []models.Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall score %d/100", overall)
	if len(stages) > 0 {
		fmt.Fprintf(&b, " after %s review", strings.Join(stages, ", "))
	}
	b.WriteString(". ")

	if len(all) == 0 {
		b.WriteString("No issues were found.")
		return BoundWords(b.String(), MaxSummaryWords)
	}

	counts := map[models.Severity]int{}
	for _, issue := range all {
		counts[issue.Severity]++
	}
	fmt.Fprintf(&b, "Found %d issue(s): %d high, %d med, %d low.",
		len(all), counts[models.SeverityHigh], counts[models.SeverityMedium], counts[models.SeverityLow])

	if len(top) > 0 {
		b.WriteString(" Top issues:")
		for i, issue := range top {
			fmt.Fprintf(&b, " %d. [%s] %s", i+1, issue.Severity, issue.Type)
			if issue.Line > 0 {
				fmt.Fprintf(&b, " (line %d)", issue.Line)
			}
			if d := strings.TrimSpace(issue.Description); d != "" {
				fmt.Fprintf(&b, ": %s", strings.TrimSuffix(d, "."))
			}
			b.WriteString(".")
		}
	}
	return BoundWords(b.String(), MaxSummaryWords)
}

// BoundWords truncates text to at most n words, appending an ellipsis when
// it cuts.
func BoundWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
