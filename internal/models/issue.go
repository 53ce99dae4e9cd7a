package models

import "strings"

// Severity represents how serious a review issue is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "med"
	SeverityHigh   Severity = "high"
)

// Default issue types assigned when the reasoning service omits one.
const (
	IssueTypeTriage       = "triage"
	IssueTypeSyntaxError  = "syntax_error"
	IssueTypeSecurityVuln = "security_vuln"
	IssueTypePerfRisk     = "perf_risk"
	IssueTypeStyle        = "style"
)

// ParseSeverity normalizes a free-form severity label. Unrecognized labels
// resolve to SeverityLow.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "severe":
		return SeverityHigh
	case "med", "medium", "moderate":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Rank returns a numeric rank for sorting (higher = more severe).
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Issue is a single normalized finding contributed by a review stage.
type Issue struct {
	Type        string   `json:"type"`
	Line        int      `json:"line,omitempty"` // 0 = no line
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Complexity  string   `json:"complexity,omitempty"`
	Stage       string   `json:"stage,omitempty"` // stage that discovered it
}
