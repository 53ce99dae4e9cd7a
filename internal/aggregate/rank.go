package aggregate

import (
	"slices"

	"github.com/joescharf/reviewgraph/internal/models"
)

// Rank returns the n most severe issues; equal severities keep discovery order.
func Rank(issues []models.Issue, n int) []models.Issue {
	ranked := slices.Clone(issues)
	slices.SortStableFunc(ranked, func(a, b models.Issue) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// LowRisk reports whether applying an issue's fix is non-structural.
func LowRisk(issue models.Issue) bool {
	switch issue.Type {
	case models.IssueTypeSyntaxError, models.IssueTypeStyle:
		return true
	}
	return issue.Severity == models.SeverityLow
}

// RewriteEligible reports whether a full rewrite may be offered: there is
// something to fix and every fix is low-risk.
func RewriteEligible(issues []models.Issue) bool {
	if len(issues) == 0 {
		return false
	}
	for _, issue := range issues {
		if !LowRisk(issue) {
			return false
		}
	}
	return true
}
