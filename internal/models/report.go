package models

import "time"

// MaxTopIssues bounds FinalReport.TopIssues.
const MaxTopIssues = 5

// SubScores holds the per-dimension scores (0-100) that feed the overall score.
type SubScores struct {
	Security    int      `json:"security"`
	Performance int      `json:"performance"`
	Syntax      int      `json:"syntax"`
	Defaulted   []string `json:"defaulted,omitempty"` // stages that fell back to the neutral score
}

// FinalReport is the terminal output of a review run.
type FinalReport struct {
	OverallScore  int       `json:"overall_score"`
	SubScores     SubScores `json:"sub_scores"`
	TopIssues     []Issue   `json:"top_issues"`
	ReportSummary string    `json:"report_summary"`
	ImprovedCode  string    `json:"improved_code,omitempty"`
}

// ReviewRecord is an archived review outcome.
type ReviewRecord struct {
	ID           string        `json:"id"`
	Language     string        `json:"language"`
	Route        RouteDecision `json:"route"`
	Path         []string      `json:"path"`
	OverallScore int           `json:"overall_score"`
	Summary      string        `json:"summary"`
	CodeHash     string        `json:"code_hash"`
	Report       *FinalReport  `json:"report"`
	Issues       []Issue       `json:"issues"`
	CreatedAt    time.Time     `json:"created_at"`
}
