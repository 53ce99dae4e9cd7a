package pipeline

import "context"

// StageName identifies a node in the review DAG.
type StageName string

const (
	StageRouter      StageName = "router"
	StageSyntax      StageName = "syntax"
	StageSecurity    StageName = "security"
	StagePerformance StageName = "performance"
	StageSynthesis   StageName = "synthesis"
	StageTerminal    StageName = "__end__"
)

// Stages lists every executable stage in DAG order.
var Stages = []StageName{StageRouter, StageSyntax, StageSecurity, StagePerformance, StageSynthesis}

// Stage is one node of the review DAG. Run may only append issues, record
// its own feedback, and (for the router and synthesis) set the fields those
// stages own. A returned error aborts the whole run, so stages recover
// locally from anything that is not fatal.
type Stage interface {
	Name() StageName
	Run(ctx context.Context, st *State) error
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName StageName
	Fn        func(ctx context.Context, st *State) error
}

func (f StageFunc) Name() StageName { return f.StageName }

func (f StageFunc) Run(ctx context.Context, st *State) error { return f.Fn(ctx, st) }
