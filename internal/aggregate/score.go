package aggregate

import (
	"fmt"
	"math"

	"github.com/joescharf/reviewgraph/internal/models"
)

// NeutralScore is the sub-score used for a stage that did not run or gave
// no usable score.
const NeutralScore = 50

// Weights of each sub-score in the overall score.
const (
	WeightSecurity    = 0.4
	WeightPerformance = 0.3
	WeightSyntax      = 0.3
)

// AggregationError reports a stage that ran but produced no usable score.
type AggregationError struct {
	Stage string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("no score available from stage %s", e.Stage)
}

// StageScore is what the scorer knows about one stage.
type StageScore struct {
	Ran   bool
	Score *float64 // stage rating on a 0-10 scale
}

// ScoreInputs carries the three weighted stage scores.
type ScoreInputs struct {
	Security    StageScore
	Performance StageScore
	Syntax      StageScore
}

// Scorer computes the overall review score.
type Scorer struct{}

// NewScorer returns a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the overall score (0-100) and the sub-scores. Stages that
// ran without a score are reported as AggregationErrors; they and stages
// that never ran contribute NeutralScore.
func (s *Scorer) Score(in ScoreInputs) (int, models.SubScores, []error) {
	var (
		sub  models.SubScores
		errs []error
	)

	resolve := func(name string, st StageScore) int {
		if st.Score == nil {
			if st.Ran {
				errs = append(errs, &AggregationError{Stage: name})
			}
			sub.Defaulted = append(sub.Defaulted, name)
			return NeutralScore
		}
		return rescale(*st.Score)
	}

	sub.Security = resolve("security", in.Security)
	sub.Performance = resolve("performance", in.Performance)
	sub.Syntax = resolve("syntax", in.Syntax)

	overall := WeightSecurity*float64(sub.Security) +
		WeightPerformance*float64(sub.Performance) +
		WeightSyntax*float64(sub.Syntax)
	return clamp(int(math.Round(overall)), 0, 100), sub, errs
}

// rescale maps a 0-10 rating to 0-100.
func rescale(v float64) int {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return clamp(int(math.Round(v*10)), 0, 100)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
