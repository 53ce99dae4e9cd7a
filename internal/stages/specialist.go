package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/retrieval"
)

// specialistResult is a validated specialist response.
type specialistResult struct {
	issues      []rawIssue
	score       *float64
	cleanedCode string
	raw         any // value recorded as feedback
}

// Specialist is a review stage that contributes typed issues and a 0-10
// score. Syntax, security and performance share this implementation.
type Specialist struct {
	name        pipeline.StageName
	defaultType string
	system      string
	query       func(language string) string
	decode      func(text string) (specialistResult, error)

	reasoner  llm.Reasoner
	retriever retrieval.Retriever
	topK      int
	logger    *slog.Logger
}

func (s *Specialist) Name() pipeline.StageName { return s.name }

// Run prompts the reasoning service and records the stage's contribution.
// Transport failures and invalid responses leave the state untouched.
func (s *Specialist) Run(ctx context.Context, st *pipeline.State) error {
	if _, done := st.Feedback(s.name); done {
		return nil
	}

	references := s.references(ctx, st.Language)
	resp, err := s.reasoner.Reason(ctx, llm.Prompt{
		Stage:  string(s.name),
		System: s.system,
		User:   userPrompt(st, references),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("reasoning service failed, stage contributes nothing", "stage", s.name, "error", err)
		return nil
	}

	result, err := s.decode(resp.Text)
	if err != nil {
		s.logger.Warn("stage response rejected", "stage", s.name, "error", err)
		return nil
	}

	raw, err := json.Marshal(result.raw)
	if err != nil {
		return fmt.Errorf("encode %s feedback: %w", s.name, err)
	}
	fb := pipeline.Feedback{Raw: raw, Score: result.score, CleanedCode: result.cleanedCode}
	if err := st.SetFeedback(s.name, fb); err != nil {
		return err
	}
	st.AppendIssues(normalizeIssues(result.issues, s.defaultType, s.name)...)
	return nil
}

// references fetches reference passages, or "" when retrieval is unavailable.
func (s *Specialist) references(ctx context.Context, language string) string {
	if s.retriever == nil || s.query == nil {
		return ""
	}
	passages, err := s.retriever.Retrieve(ctx, s.query(language), s.topK)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, retrieval.ErrUnavailable) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "continuing without reference context", "stage", s.name, "error", err)
		return ""
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n---\n")
}

func languageOr(language, fallback string) string {
	if l := strings.TrimSpace(language); l != "" && !strings.EqualFold(l, "unknown") {
		return l
	}
	return fallback
}
