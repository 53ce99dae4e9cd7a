package cmd

import (
	"errors"
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/retrieval"
	"github.com/joescharf/reviewgraph/internal/review"
	"github.com/joescharf/reviewgraph/internal/stages"
	"github.com/joescharf/reviewgraph/internal/store"
)

var errNoAPIKey = errors.New("no Anthropic API key configured (set anthropic.api_key, REVIEWGRAPH_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY)")

// reasonerFunc builds the reasoner for a review, replaceable in tests.
var reasonerFunc = newReasoner

// newReasoner creates the Anthropic-backed reasoner from config/env.
func newReasoner() (llm.Reasoner, error) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errNoAPIKey
	}
	return llm.NewClient(llm.Config{
		APIKey:      apiKey,
		Model:       viper.GetString("anthropic.model"),
		MaxTokens:   viper.GetInt64("anthropic.max_tokens"),
		MaxRetries:  viper.GetInt("anthropic.max_retries"),
		Temperature: viper.GetFloat64("anthropic.temperature"),
	}), nil
}

// newRetrieval creates the retrieval service. The index is not built until
// Init is called.
func newRetrieval() *retrieval.Service {
	return retrieval.NewService(retrieval.DirBuilder(retrieval.Config{
		DataDir:      viper.GetString("retrieval.data_dir"),
		ChunkSize:    viper.GetInt("retrieval.chunk_size"),
		ChunkOverlap: viper.GetInt("retrieval.chunk_overlap"),
	}), logger)
}

// newOrchestrator wires the five review stages.
func newOrchestrator(r llm.Reasoner, retriever retrieval.Retriever) (*pipeline.Orchestrator, error) {
	return pipeline.New(logger, stages.All(stages.Options{
		Deps: stages.Deps{
			Reasoner:  r,
			Retriever: retriever,
			TopK:      viper.GetInt("retrieval.top_k"),
			Logger:    logger,
		},
		ErrorOverride: viper.GetBool("router.error_override"),
	})...)
}

// historyStore returns the review archive, or nil when history is disabled.
func historyStore() (store.Store, error) {
	if !viper.GetBool("history.enabled") {
		return nil, nil
	}
	return getStore()
}

// newReviewer assembles the full review stack. The returned retrieval
// service still needs Init.
func newReviewer() (*review.Reviewer, *retrieval.Service, store.Store, error) {
	r, err := reasonerFunc()
	if err != nil {
		return nil, nil, nil, err
	}
	svc := newRetrieval()
	orch, err := newOrchestrator(r, svc)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := historyStore()
	if err != nil {
		return nil, nil, nil, err
	}
	return review.NewReviewer(orch, s, review.DefaultConfig(), logger), svc, s, nil
}
