package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

// ErrReasoningUnavailable wraps a failure to reach the reasoning service.
var ErrReasoningUnavailable = errors.New("reasoning service unavailable")

// errorMarkerWindow is how many leading runes of the code are checked for
// the "error" marker.
const errorMarkerWindow = 100

const routerRole = `You are a code review router. Given a code snippet:
1. Detect the language if it is unknown (python, javascript, go, ...).
2. Flag quick issues: syntax errors (type "syntax_error"), obvious security problems such as eval() (type "security_vuln"), performance risks such as nested loops (type "perf_risk").
3. Choose a route:
   - "full_review": the snippet needs syntax and possibly performance review
   - "syntax_only": only syntax/style review is useful
   - "security_first": the snippet has security-sensitive code
   - "skip": the snippet is trivial or not code`

type routerResponse struct {
	Language       string     `json:"language"`
	DetectedIssues []rawIssue `json:"detected_issues"`
	Route          string     `json:"route" jsonschema:"enum=full_review,enum=syntax_only,enum=security_first,enum=skip"`
}

// Router triages a snippet and sets the route decision.
type Router struct {
	reasoner      llm.Reasoner
	errorOverride bool
	system        string
	logger        *slog.Logger
}

// NewRouter creates the router stage. With errorOverride set, code whose
// first 100 characters mention "error" is always routed to syntax_only.
func NewRouter(reasoner llm.Reasoner, errorOverride bool, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		reasoner:      reasoner,
		errorOverride: errorOverride,
		system:        systemPrompt(routerRole, &routerResponse{}),
		logger:        logger,
	}
}

func (r *Router) Name() pipeline.StageName { return pipeline.StageRouter }

// Run asks for a triage decision, failing closed to skip on any response
// it cannot use, then applies the error-marker override.
func (r *Router) Run(ctx context.Context, st *pipeline.State) error {
	if _, done := st.Feedback(pipeline.StageRouter); done {
		return nil
	}

	resp, err := r.reasoner.Reason(ctx, llm.Prompt{
		Stage:  string(pipeline.StageRouter),
		System: r.system,
		User:   userPrompt(st, ""),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReasoningUnavailable, err)
	}

	decision := models.RouteSkip
	var out routerResponse
	if err := decodeResponse(pipeline.StageRouter, resp.Text, &out); err != nil {
		r.logger.Warn("router response rejected, skipping specialists", "error", err)
	} else {
		d, perr := models.ParseRouteDecision(out.Route)
		if perr != nil {
			r.logger.Warn("router returned unknown route, skipping specialists", "error", perr)
		}
		decision = d

		if lang := strings.TrimSpace(out.Language); lang != "" {
			st.Language = lang
		}
		raw, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode router feedback: %w", err)
		}
		if err := st.SetFeedback(pipeline.StageRouter, pipeline.Feedback{Raw: raw}); err != nil {
			return err
		}
		st.AppendIssues(normalizeIssues(out.DetectedIssues, models.IssueTypeTriage, pipeline.StageRouter)...)
	}
	st.Route = decision

	if r.errorOverride && hasErrorMarker(st.RawCode) && st.OverrideRoute(models.RouteSyntaxOnly) {
		r.logger.Debug("route overridden by error marker", "model_route", decision)
	}
	return nil
}

// hasErrorMarker reports whether the first 100 characters of code contain
// "error", case-insensitively.
func hasErrorMarker(code string) bool {
	head := []rune(code)
	if len(head) > errorMarkerWindow {
		head = head[:errorMarkerWindow]
	}
	return strings.Contains(strings.ToLower(string(head)), "error")
}
