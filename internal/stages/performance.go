package stages

import (
	"errors"
	"fmt"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

const performanceRole = `You are a performance review agent.
1. Estimate time and space complexity (Big-O) and put it in each issue's complexity field.
2. Flag bottlenecks such as nested loops, repeated linear searches and inefficient data structures.
3. Suggest refactors with an optimized example, e.g. a dict instead of a list search.
4. Rate the snippet in perf_score from 0 (pathological) to 10 (optimal).`

type performanceResponse struct {
	Issues    []rawIssue `json:"issues"`
	PerfScore *float64   `json:"perf_score,omitempty" jsonschema:"minimum=0,maximum=10"`
}

// NewPerformance creates the performance specialist.
func NewPerformance(d Deps) *Specialist {
	s := d.specialist(pipeline.StagePerformance, models.IssueTypePerfRisk, systemPrompt(performanceRole, &performanceResponse{}))
	s.query = func(language string) string {
		return fmt.Sprintf("Big-O complexity and performance bottlenecks in %s: nested loops, data structures, caching", languageOr(language, "code"))
	}
	s.decode = decodePerformance
	return s
}

func decodePerformance(text string) (specialistResult, error) {
	var out performanceResponse
	if err := decodeResponse(pipeline.StagePerformance, text, &out); err != nil {
		return specialistResult{}, err
	}
	if out.Issues == nil {
		return specialistResult{}, &SchemaError{Stage: pipeline.StagePerformance, Err: errors.New("missing issues")}
	}
	if err := validateScore(pipeline.StagePerformance, "perf_score", out.PerfScore); err != nil {
		return specialistResult{}, err
	}
	return specialistResult{issues: out.Issues, score: out.PerfScore, raw: out}, nil
}
