// Package aggregate implements the synthesis policy: merging duplicate
// issues, weighting stage scores, ranking, and summarizing.
package aggregate

import (
	"strings"

	"github.com/joescharf/reviewgraph/internal/models"
)

type issueKey struct {
	typ  string
	line int
}

// Dedupe merges issues sharing (type, line). The merged entry keeps the
// longer description (the earlier one on ties) and the highest severity,
// unions distinct suggestions in discovery order, and sits at the position
// of the first occurrence. Dedupe(Dedupe(x)) == Dedupe(x).
func Dedupe(issues []models.Issue) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	index := make(map[issueKey]int, len(issues))
	suggestions := make([][]string, 0, len(issues))

	for _, issue := range issues {
		key := issueKey{typ: issue.Type, line: issue.Line}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, issue)
			suggestions = append(suggestions, addSuggestion(nil, issue.Suggestion))
			continue
		}

		kept := out[i]
		severity := kept.Severity
		if issue.Severity.Rank() > severity.Rank() {
			severity = issue.Severity
		}
		if len(strings.TrimSpace(issue.Description)) > len(strings.TrimSpace(kept.Description)) {
			if issue.Complexity == "" {
				issue.Complexity = kept.Complexity
			}
			out[i] = issue
		} else if kept.Complexity == "" {
			out[i].Complexity = issue.Complexity
		}
		out[i].Severity = severity
		suggestions[i] = addSuggestion(suggestions[i], issue.Suggestion)
	}

	for i := range out {
		out[i].Suggestion = strings.Join(suggestions[i], "\n")
	}
	return out
}

func addSuggestion(list []string, s string) []string {
	for _, part := range strings.Split(s, "\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if existing == part {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, part)
		}
	}
	return list
}
