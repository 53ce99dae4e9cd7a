package llm

import (
	"context"
	"fmt"
	"sync"
)

// Scripted is a deterministic Reasoner that answers from a per-stage table.
// It records every prompt it receives.
type Scripted struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []Prompt
}

// NewScripted creates a stub answering each stage with the given text.
func NewScripted(responses map[string]string) *Scripted {
	s := &Scripted{
		responses: make(map[string]string, len(responses)),
		errs:      make(map[string]error),
	}
	for stage, text := range responses {
		s.responses[stage] = text
	}
	return s
}

// Fail makes every call for stage return err.
func (s *Scripted) Fail(stage string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[stage] = err
	return s
}

// Reason answers from the table. Stages with neither a response nor an
// error configured get an error, which is how an unreachable service looks.
func (s *Scripted) Reason(_ context.Context, p Prompt) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, p)

	if err, ok := s.errs[p.Stage]; ok {
		return Response{}, err
	}
	text, ok := s.responses[p.Stage]
	if !ok {
		return Response{}, fmt.Errorf("no scripted response for stage %q", p.Stage)
	}
	return Response{Text: StripFences(text)}, nil
}

// Calls returns the stages that were prompted, in order.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	stages := make([]string, len(s.calls))
	for i, p := range s.calls {
		stages[i] = p.Stage
	}
	return stages
}

// Prompts returns every prompt received, in order.
func (s *Scripted) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.calls...)
}
