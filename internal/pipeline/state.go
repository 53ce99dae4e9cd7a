package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/joescharf/reviewgraph/internal/models"
)

var (
	// ErrFeedbackExists is returned when a stage records feedback twice.
	ErrFeedbackExists = errors.New("feedback already recorded")
	// ErrReportExists is returned when the final report is written twice.
	ErrReportExists = errors.New("final report already written")
)

// Feedback is one stage's validated output.
type Feedback struct {
	Raw         json.RawMessage `json:"raw"`
	Score       *float64        `json:"score,omitempty"` // 0-10, nil when the stage gave none
	CleanedCode string          `json:"cleaned_code,omitempty"`
}

// State is the request-scoped aggregate threaded through every stage.
// It is not safe for concurrent use; a run executes one stage at a time.
type State struct {
	RawCode  string
	Language string
	Context  string
	Route    models.RouteDecision

	issues          []models.Issue
	feedback        map[StageName]Feedback
	report          *models.FinalReport
	path            []StageName
	routeOverridden bool
}

// NewState creates the initial state for one request.
func NewState(code, language, context string) *State {
	return &State{
		RawCode:  code,
		Language: language,
		Context:  context,
		Route:    models.RouteSkip,
		feedback: make(map[StageName]Feedback),
	}
}

// Issues returns a copy of the accumulated issues in discovery order.
func (s *State) Issues() []models.Issue {
	return slices.Clone(s.issues)
}

// AppendIssues adds issues to the end of the sequence.
func (s *State) AppendIssues(issues ...models.Issue) {
	s.issues = append(s.issues, issues...)
}

// HasIssueType reports whether any accumulated issue carries the given type.
func (s *State) HasIssueType(t string) bool {
	for _, issue := range s.issues {
		if issue.Type == t {
			return true
		}
	}
	return false
}

// SetFeedback records a stage's output. Each stage may record once.
func (s *State) SetFeedback(stage StageName, fb Feedback) error {
	if _, ok := s.feedback[stage]; ok {
		return fmt.Errorf("%s: %w", stage, ErrFeedbackExists)
	}
	s.feedback[stage] = fb
	return nil
}

// Feedback returns the output recorded by a stage, if any.
func (s *State) Feedback(stage StageName) (Feedback, bool) {
	fb, ok := s.feedback[stage]
	return fb, ok
}

// FeedbackStages returns the stages that recorded feedback, sorted by name.
func (s *State) FeedbackStages() []StageName {
	return slices.Sorted(maps.Keys(s.feedback))
}

// SetReport stores the final report. Only the first call succeeds.
func (s *State) SetReport(r *models.FinalReport) error {
	if s.report != nil {
		return ErrReportExists
	}
	s.report = r
	return nil
}

// Report returns the final report, or nil before Synthesis has run.
func (s *State) Report() *models.FinalReport {
	return s.report
}

// OverrideRoute replaces the route decision. It succeeds at most once per
// state and reports whether the override was applied.
func (s *State) OverrideRoute(d models.RouteDecision) bool {
	if s.routeOverridden {
		return false
	}
	s.Route = d
	s.routeOverridden = true
	return true
}

// RouteOverridden reports whether OverrideRoute has been applied.
func (s *State) RouteOverridden() bool {
	return s.routeOverridden
}

// Path returns the stages visited so far, in execution order.
func (s *State) Path() []StageName {
	return slices.Clone(s.path)
}

func (s *State) visit(stage StageName) {
	s.path = append(s.path, stage)
}
