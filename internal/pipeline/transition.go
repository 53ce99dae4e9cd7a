package pipeline

import (
	"errors"
	"fmt"

	"github.com/joescharf/reviewgraph/internal/models"
)

// ErrUnknownStage is returned by Next for a source stage outside the DAG.
var ErrUnknownStage = errors.New("unknown stage")

// Edge is one directed transition of the DAG.
type Edge struct {
	From  StageName
	To    StageName
	Label string
}

// Edges is the complete transition table.
var Edges = []Edge{
	{StageRouter, StageSyntax, "full_review / syntax_only / unrecognized"},
	{StageRouter, StageSecurity, "security_first"},
	{StageRouter, StageSynthesis, "skip"},
	{StageSyntax, StagePerformance, "perf_risk found"},
	{StageSyntax, StageSynthesis, "otherwise"},
	{StageSecurity, StageSynthesis, ""},
	{StagePerformance, StageSynthesis, ""},
	{StageSynthesis, StageTerminal, ""},
}

// Next returns the stage that follows from given the current state. It
// reads the state and never modifies it.
func Next(from StageName, st *State) (StageName, error) {
	switch from {
	case StageRouter:
		switch st.Route {
		case models.RouteSecurityFirst:
			return StageSecurity, nil
		case models.RouteSkip:
			return StageSynthesis, nil
		default:
			return StageSyntax, nil
		}
	case StageSyntax:
		// Checks every accumulated issue, including router quick issues.
		if st.HasIssueType(models.IssueTypePerfRisk) {
			return StagePerformance, nil
		}
		return StageSynthesis, nil
	case StageSecurity, StagePerformance:
		return StageSynthesis, nil
	case StageSynthesis:
		return StageTerminal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, from)
	}
}
