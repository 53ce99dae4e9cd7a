package stages

import (
	"log/slog"

	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/retrieval"
)

// DefaultTopK is the number of reference passages fetched per specialist.
const DefaultTopK = 3

// Deps are the collaborators shared by the specialist stages.
type Deps struct {
	Reasoner  llm.Reasoner
	Retriever retrieval.Retriever // optional
	TopK      int
	Logger    *slog.Logger
}

func (d Deps) specialist(name pipeline.StageName, defaultType, system string) *Specialist {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := d.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Specialist{
		name:        name,
		defaultType: defaultType,
		system:      system,
		reasoner:    d.Reasoner,
		retriever:   d.Retriever,
		topK:        topK,
		logger:      logger,
	}
}

// Options configures All.
type Options struct {
	Deps
	ErrorOverride bool
}

// All returns the five review stages wired to the same collaborators.
func All(opts Options) []pipeline.Stage {
	return []pipeline.Stage{
		NewRouter(opts.Reasoner, opts.ErrorOverride, opts.Logger),
		NewSyntax(opts.Deps),
		NewSecurity(opts.Deps),
		NewPerformance(opts.Deps),
		NewSynthesis(opts.Reasoner, opts.Logger),
	}
}
