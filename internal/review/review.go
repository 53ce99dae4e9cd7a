// Package review runs the review pipeline for one snippet and archives the
// outcome. It is the entry point shared by the CLI, the HTTP API and the
// MCP server.
package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/store"
)

var (
	// ErrEmptyCode is returned for a blank snippet.
	ErrEmptyCode = errors.New("code_snippet is required")
	// ErrPipelineFailed wraps any failure that kept a run from reaching Terminal.
	ErrPipelineFailed = errors.New("review pipeline failed")
)

// Config holds review configuration.
type Config struct {
	Archive bool // save final reports to the history store
}

// DefaultConfig returns the review config, reading from viper when available.
func DefaultConfig() Config {
	return Config{Archive: viper.GetBool("history.enabled")}
}

// Runner executes one pipeline run. *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.State, error)
}

// Result is the outcome of one review.
type Result struct {
	ReviewID string               `json:"review_id,omitempty"`
	Language string               `json:"language,omitempty"`
	Report   *models.FinalReport  `json:"report"`
	Issues   []models.Issue       `json:"issues"`
	Route    models.RouteDecision `json:"route"`
	Path     []string             `json:"path"`
}

// Reviewer runs reviews and optionally archives them.
type Reviewer struct {
	runner Runner
	store  store.Store
	cfg    Config
	logger *slog.Logger
}

// NewReviewer creates a reviewer. The store may be nil, which disables
// archiving regardless of cfg.
func NewReviewer(runner Runner, s store.Store, cfg Config, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{runner: runner, store: s, cfg: cfg, logger: logger}
}

// Review runs the pipeline over req. An archive failure is logged and does
// not fail the review.
func (r *Reviewer) Review(ctx context.Context, req pipeline.Request) (*Result, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrEmptyCode
	}

	st, err := r.runner.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineFailed, err)
	}
	report := st.Report()
	if report == nil {
		return nil, fmt.Errorf("%w: no final report", ErrPipelineFailed)
	}

	res := &Result{
		Language: st.Language,
		Report:   report,
		Issues:   st.Issues(),
		Route:    st.Route,
		Path:     stageNames(st.Path()),
	}
	if res.Issues == nil {
		res.Issues = []models.Issue{}
	}

	if r.cfg.Archive && r.store != nil {
		rec := Record(st)
		if err := r.store.SaveReview(ctx, rec); err != nil {
			r.logger.Warn("failed to archive review", "error", err)
		} else {
			res.ReviewID = rec.ID
		}
	}
	return res, nil
}

// Record converts a finished run into an archive record.
func Record(st *pipeline.State) *models.ReviewRecord {
	report := st.Report()
	rec := &models.ReviewRecord{
		Language: st.Language,
		Route:    st.Route,
		Path:     stageNames(st.Path()),
		CodeHash: HashCode(st.RawCode),
		Report:   report,
		Issues:   st.Issues(),
	}
	if report != nil {
		rec.OverallScore = report.OverallScore
		rec.Summary = report.ReportSummary
	}
	return rec
}

// HashCode returns the hex SHA-256 of a snippet.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func stageNames(path []pipeline.StageName) []string {
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = string(p)
	}
	return names
}
