package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrMissingStage is returned by New when a DAG stage has no implementation.
	ErrMissingStage = errors.New("missing stage implementation")
	// ErrStageRevisited is returned when the evaluator routes back to a visited stage.
	ErrStageRevisited = errors.New("stage revisited")
)

// Request is the input of one review run.
type Request struct {
	Code     string
	Language string
	Context  string
}

// Orchestrator executes review runs. It holds no per-request state and is
// safe for concurrent use as long as its stages are.
type Orchestrator struct {
	stages map[StageName]Stage
	logger *slog.Logger
}

// New creates an orchestrator. Every stage in Stages must be provided.
// A nil logger falls back to slog.Default().
func New(logger *slog.Logger, stages ...Stage) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		stages: make(map[StageName]Stage, len(stages)),
		logger: logger,
	}
	for _, s := range stages {
		o.stages[s.Name()] = s
	}
	for _, name := range Stages {
		if _, ok := o.stages[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingStage, name)
		}
	}
	return o, nil
}

// Run drives a fresh State from the router to Terminal and returns it.
// An error means Terminal was not reached; the partial state is still
// returned for diagnostics.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*State, error) {
	st := NewState(req.Code, req.Language, req.Context)
	visited := make(map[StageName]bool, len(Stages))
	start := time.Now()

	current := StageRouter
	for current != StageTerminal {
		if visited[current] {
			return st, fmt.Errorf("%w: %s", ErrStageRevisited, current)
		}
		visited[current] = true

		stage, ok := o.stages[current]
		if !ok {
			return st, fmt.Errorf("%w: %s", ErrMissingStage, current)
		}

		stageStart := time.Now()
		st.visit(current)
		if err := stage.Run(ctx, st); err != nil {
			o.logger.Error("stage failed", "stage", current, "error", err)
			return st, fmt.Errorf("stage %s: %w", current, err)
		}

		next, err := Next(current, st)
		if err != nil {
			return st, err
		}
		o.logger.Debug("stage complete",
			"stage", current,
			"next", next,
			"issues", len(st.issues),
			"elapsed", time.Since(stageStart),
		)
		current = next
	}

	o.logger.Info("review complete",
		"route", st.Route,
		"path", st.path,
		"issues", len(st.issues),
		"elapsed", time.Since(start),
	)
	return st, nil
}
