package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/joescharf/reviewgraph/internal/aggregate"
	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

const synthesisRole = `You are a report synthesizer for a code review.
1. Write report_summary: a synopsis of at most 200 words that references the top issues and the overall score.
2. When asked for a rewrite, return the full corrected code in improved_code with only the listed fixes applied. Otherwise leave it empty.`

type synthesisResponse struct {
	ReportSummary string `json:"report_summary"`
	ImprovedCode  string `json:"improved_code,omitempty"`
}

// Synthesis merges every stage's contribution into the final report. It
// never fails the run: when the reasoning service is absent or unusable
// the report is assembled deterministically.
type Synthesis struct {
	reasoner llm.Reasoner
	scorer   *aggregate.Scorer
	system   string
	logger   *slog.Logger
}

// NewSynthesis creates the synthesis stage. reasoner may be nil.
func NewSynthesis(reasoner llm.Reasoner, logger *slog.Logger) *Synthesis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesis{
		reasoner: reasoner,
		scorer:   aggregate.NewScorer(),
		system:   systemPrompt(synthesisRole, &synthesisResponse{}),
		logger:   logger,
	}
}

func (s *Synthesis) Name() pipeline.StageName { return pipeline.StageSynthesis }

func (s *Synthesis) Run(ctx context.Context, st *pipeline.State) error {
	if st.Report() != nil {
		return nil
	}

	issues := aggregate.Dedupe(st.Issues())
	path := st.Path()
	overall, sub, errs := s.scorer.Score(aggregate.ScoreInputs{
		Security:    stageScore(st, path, pipeline.StageSecurity),
		Performance: stageScore(st, path, pipeline.StagePerformance),
		Syntax:      stageScore(st, path, pipeline.StageSyntax),
	})
	for _, err := range errs {
		s.logger.Warn("using neutral sub-score", "error", err)
	}

	top := aggregate.Rank(issues, models.MaxTopIssues)
	reviewed := reviewedStages(path)
	eligible := aggregate.RewriteEligible(issues)

	report := &models.FinalReport{
		OverallScore:  overall,
		SubScores:     sub,
		TopIssues:     top,
		ReportSummary: aggregate.Summarize(overall, reviewed, issues, top),
	}

	if out, ok := s.compose(ctx, st, overall, top, eligible); ok {
		if summary := strings.TrimSpace(out.ReportSummary); summary != "" {
			report.ReportSummary = aggregate.BoundWords(summary, aggregate.MaxSummaryWords)
		}
		if eligible {
			report.ImprovedCode = strings.TrimSpace(llm.StripFences(out.ImprovedCode))
		}
	}
	if eligible && report.ImprovedCode == "" {
		if fb, ok := st.Feedback(pipeline.StageSyntax); ok {
			report.ImprovedCode = fb.CleanedCode
		}
	}

	return st.SetReport(report)
}

// compose asks the reasoning service for the summary and rewrite. It
// reports false when no usable response was obtained.
func (s *Synthesis) compose(ctx context.Context, st *pipeline.State, overall int, top []models.Issue, rewrite bool) (synthesisResponse, bool) {
	if s.reasoner == nil {
		return synthesisResponse{}, false
	}
	if _, done := st.Feedback(pipeline.StageSynthesis); done {
		return synthesisResponse{}, false
	}

	resp, err := s.reasoner.Reason(ctx, llm.Prompt{
		Stage:  string(pipeline.StageSynthesis),
		System: s.system,
		User:   synthesisPrompt(st, overall, top, rewrite),
	})
	if err != nil {
		s.logger.Warn("reasoning service failed, using deterministic summary", "error", err)
		return synthesisResponse{}, false
	}

	var out synthesisResponse
	if err := decodeResponse(pipeline.StageSynthesis, resp.Text, &out); err != nil {
		s.logger.Warn("synthesis response rejected, using deterministic summary", "error", err)
		return synthesisResponse{}, false
	}
	raw, err := json.Marshal(out)
	if err == nil {
		_ = st.SetFeedback(pipeline.StageSynthesis, pipeline.Feedback{Raw: raw})
	}
	return out, true
}

func synthesisPrompt(st *pipeline.State, overall int, top []models.Issue, rewrite bool) string {
	var b strings.Builder
	b.WriteString(userPrompt(st, ""))
	fmt.Fprintf(&b, "\nOverall score: %d/100\n", overall)
	if len(top) > 0 {
		b.WriteString("\nTop issues:\n")
		b.WriteString(formatIssues(top))
	} else {
		b.WriteString("\nNo issues were found.\n")
	}
	if rewrite {
		b.WriteString("\nAll findings are low-risk: provide improved_code.\n")
	} else {
		b.WriteString("\nDo not provide improved_code.\n")
	}
	return b.String()
}

// stageScore reports whether a stage ran and the score it recorded.
func stageScore(st *pipeline.State, path []pipeline.StageName, stage pipeline.StageName) aggregate.StageScore {
	score := aggregate.StageScore{Ran: slices.Contains(path, stage)}
	if fb, ok := st.Feedback(stage); ok {
		score.Score = fb.Score
	}
	return score
}

// reviewedStages lists the specialist stages on the path.
func reviewedStages(path []pipeline.StageName) []string {
	var names []string
	for _, name := range path {
		switch name {
		case pipeline.StageSyntax, pipeline.StageSecurity, pipeline.StagePerformance:
			names = append(names, string(name))
		}
	}
	return names
}
