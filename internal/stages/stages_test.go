package stages

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/retrieval"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps(r llm.Reasoner) Deps {
	return Deps{Reasoner: r, Logger: quietLogger()}
}

type fakeRetriever struct {
	passages []retrieval.Passage
	err      error
	queries  []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, _ int) ([]retrieval.Passage, error) {
	f.queries = append(f.queries, query)
	return f.passages, f.err
}

func TestRouter_SetsRouteAndLanguage(t *testing.T) {
	r := llm.NewScripted(map[string]string{
		"router": `{"language":"python","detected_issues":[{"line":1,"description":"eval of user input","severity":"critical"}],"route":"SECURITY_FIRST"}`,
	})
	st := pipeline.NewState("x = eval(input())", "", "")

	require.NoError(t, NewRouter(r, true, quietLogger()).Run(context.Background(), st))

	assert.Equal(t, models.RouteSecurityFirst, st.Route)
	assert.Equal(t, "python", st.Language)
	require.Len(t, st.Issues(), 1)
	issue := st.Issues()[0]
	assert.Equal(t, models.IssueTypeTriage, issue.Type)
	assert.Equal(t, models.SeverityHigh, issue.Severity)
	assert.Equal(t, "router", issue.Stage)

	fb, ok := st.Feedback(pipeline.StageRouter)
	require.True(t, ok)
	assert.Contains(t, string(fb.Raw), "SECURITY_FIRST")
}

func TestRouter_FailsClosedToSkip(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantFeedback bool
	}{
		{"unknown label", `{"language":"go","detected_issues":[],"route":"bogus"}`, true},
		{"not json", `I think this needs a full review.`, false},
		{"wrong shape", `{"route": 42}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := llm.NewScripted(map[string]string{"router": tt.response})
			st := pipeline.NewState("package main", "", "")

			require.NoError(t, NewRouter(r, true, quietLogger()).Run(context.Background(), st))
			assert.Equal(t, models.RouteSkip, st.Route)
			_, ok := st.Feedback(pipeline.StageRouter)
			assert.Equal(t, tt.wantFeedback, ok)
		})
	}
}

func TestRouter_ErrorMarkerOverride(t *testing.T) {
	response := `{"language":"python","detected_issues":[],"route":"full_review"}`

	tests := []struct {
		name     string
		code     string
		override bool
		want     models.RouteDecision
	}{
		{"marker in head", "# Error: missing paren\nprint('x'", true, models.RouteSyntaxOnly},
		{"case insensitive", "raise ValueERROR()", true, models.RouteSyntaxOnly},
		{"marker past first 100 runes", strings.Repeat("é", 100) + "error", true, models.RouteFullReview},
		{"override disabled", "# Error here", false, models.RouteFullReview},
		{"no marker", "print('hi')", true, models.RouteFullReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := llm.NewScripted(map[string]string{"router": response})
			st := pipeline.NewState(tt.code, "", "")

			require.NoError(t, NewRouter(r, tt.override, quietLogger()).Run(context.Background(), st))
			assert.Equal(t, tt.want, st.Route)
			assert.Equal(t, tt.want == models.RouteSyntaxOnly, st.RouteOverridden())
		})
	}
}

func TestRouter_OverrideAppliesWhenResponseInvalid(t *testing.T) {
	r := llm.NewScripted(map[string]string{"router": "garbage"})
	st := pipeline.NewState("error: unexpected EOF", "", "")

	require.NoError(t, NewRouter(r, true, quietLogger()).Run(context.Background(), st))
	assert.Equal(t, models.RouteSyntaxOnly, st.Route)
}

func TestRouter_TransportErrorAborts(t *testing.T) {
	r := llm.NewScripted(nil).Fail("router", errors.New("connection refused"))
	st := pipeline.NewState("x", "", "")

	err := NewRouter(r, true, quietLogger()).Run(context.Background(), st)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReasoningUnavailable)
}

func TestRouter_SkipsWhenAlreadyRun(t *testing.T) {
	r := llm.NewScripted(map[string]string{"router": `{"route":"skip","detected_issues":[]}`})
	router := NewRouter(r, false, quietLogger())
	st := pipeline.NewState("x", "", "")

	require.NoError(t, router.Run(context.Background(), st))
	require.NoError(t, router.Run(context.Background(), st))
	assert.Equal(t, []string{"router"}, r.Calls())
}

func TestSyntax_RecordsContribution(t *testing.T) {
	r := llm.NewScripted(map[string]string{
		"syntax": "```json\n" + `{"issues":[{"line":2,"description":"missing colon","severity":"medium","suggestion":"add :"},{"type":"style","description":"use snake_case","severity":"low"}],"is_valid":false,"syntax_score":6,"cleaned_code":"def f():\n    pass"}` + "\n```",
	})
	st := pipeline.NewState("def f()\n    pass", "python", "")

	require.NoError(t, NewSyntax(testDeps(r)).Run(context.Background(), st))

	issues := st.Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, models.IssueTypeSyntaxError, issues[0].Type, "default type applied")
	assert.Equal(t, 2, issues[0].Line)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)
	assert.Equal(t, "syntax", issues[0].Stage)
	assert.Equal(t, models.IssueTypeStyle, issues[1].Type)

	fb, ok := st.Feedback(pipeline.StageSyntax)
	require.True(t, ok)
	require.NotNil(t, fb.Score)
	assert.Equal(t, 6.0, *fb.Score)
	assert.Equal(t, "def f():\n    pass", fb.CleanedCode)
}

func TestSecurity_InvertsLegacyRiskScore(t *testing.T) {
	r := llm.NewScripted(map[string]string{
		"security": `{"issues":[{"line":1,"description":"eval","severity":"high"}],"risk_score":7}`,
	})
	st := pipeline.NewState("eval(x)", "python", "")

	require.NoError(t, NewSecurity(testDeps(r)).Run(context.Background(), st))

	fb, ok := st.Feedback(pipeline.StageSecurity)
	require.True(t, ok)
	require.NotNil(t, fb.Score)
	assert.InDelta(t, 3.0, *fb.Score, 1e-9)
	assert.Equal(t, models.IssueTypeSecurityVuln, st.Issues()[0].Type)
}

func TestSecurity_PrefersSecurityScore(t *testing.T) {
	res, err := decodeSecurity(`{"issues":[],"security_score":9,"risk_score":9}`)
	require.NoError(t, err)
	require.NotNil(t, res.score)
	assert.Equal(t, 9.0, *res.score)
}

func TestPerformance_KeepsComplexity(t *testing.T) {
	r := llm.NewScripted(map[string]string{
		"performance": `{"issues":[{"line":"4","description":"nested loop","severity":"med","complexity":"O(n^2)"}],"perf_score":4}`,
	})
	st := pipeline.NewState("for a in x:\n  for b in x:\n    pass", "python", "")

	require.NoError(t, NewPerformance(testDeps(r)).Run(context.Background(), st))

	issues := st.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueTypePerfRisk, issues[0].Type)
	assert.Equal(t, 4, issues[0].Line)
	assert.Equal(t, "O(n^2)", issues[0].Complexity)
}

func TestSpecialist_RejectsInvalidResponses(t *testing.T) {
	tests := []struct {
		name     string
		newStage func(Deps) *Specialist
		stage    string
		response string
	}{
		{"syntax missing issues", NewSyntax, "syntax", `{"syntax_score":5}`},
		{"syntax score too high", NewSyntax, "syntax", `{"issues":[],"syntax_score":11}`},
		{"security negative score", NewSecurity, "security", `{"issues":[],"security_score":-1}`},
		{"security issues wrong type", NewSecurity, "security", `{"issues":"none"}`},
		{"performance prose", NewPerformance, "performance", `The code looks fine.`},
		{"performance empty", NewPerformance, "performance", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := llm.NewScripted(map[string]string{tt.stage: tt.response})
			s := tt.newStage(testDeps(r))
			st := pipeline.NewState("code", "python", "")

			require.NoError(t, s.Run(context.Background(), st))
			_, ok := st.Feedback(s.Name())
			assert.False(t, ok, "no feedback for rejected response")
			assert.Empty(t, st.Issues())
		})
	}
}

func TestSpecialist_TransportErrorRecovered(t *testing.T) {
	r := llm.NewScripted(nil).Fail("syntax", errors.New("timeout"))
	st := pipeline.NewState("code", "", "")

	require.NoError(t, NewSyntax(testDeps(r)).Run(context.Background(), st))
	_, ok := st.Feedback(pipeline.StageSyntax)
	assert.False(t, ok)
}

func TestSpecialist_CancelledContextAborts(t *testing.T) {
	r := llm.NewScripted(nil).Fail("security", context.Canceled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSecurity(testDeps(r)).Run(ctx, pipeline.NewState("code", "", ""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpecialist_Idempotent(t *testing.T) {
	r := llm.NewScripted(map[string]string{"syntax": `{"issues":[{"description":"x","severity":"low"}]}`})
	s := NewSyntax(testDeps(r))
	st := pipeline.NewState("code", "", "")

	require.NoError(t, s.Run(context.Background(), st))
	require.NoError(t, s.Run(context.Background(), st))
	assert.Len(t, st.Issues(), 1)
	assert.Equal(t, []string{"syntax"}, r.Calls())
}

func TestSpecialist_ReferenceContext(t *testing.T) {
	t.Run("passages are added to the prompt", func(t *testing.T) {
		r := llm.NewScripted(map[string]string{"security": `{"issues":[]}`})
		ret := &fakeRetriever{passages: []retrieval.Passage{{Text: "A03 Injection"}, {Text: "A07 Auth failures"}}}
		d := testDeps(r)
		d.Retriever = ret

		require.NoError(t, NewSecurity(d).Run(context.Background(), pipeline.NewState("code", "javascript", "")))

		require.Len(t, ret.queries, 1)
		assert.Contains(t, ret.queries[0], "javascript")
		user := r.Prompts()[0].User
		assert.Contains(t, user, "Reference material:")
		assert.Contains(t, user, "A03 Injection\n---\nA07 Auth failures")
	})

	t.Run("unavailable retrieval is not an error", func(t *testing.T) {
		r := llm.NewScripted(map[string]string{"syntax": `{"issues":[]}`})
		d := testDeps(r)
		d.Retriever = &fakeRetriever{err: retrieval.ErrUnavailable}
		st := pipeline.NewState("code", "", "")

		require.NoError(t, NewSyntax(d).Run(context.Background(), st))
		assert.NotContains(t, r.Prompts()[0].User, "Reference material:")
		_, ok := st.Feedback(pipeline.StageSyntax)
		assert.True(t, ok)
	})
}

func TestSpecialist_PromptCarriesPriorIssues(t *testing.T) {
	r := llm.NewScripted(map[string]string{"performance": `{"issues":[]}`})
	st := pipeline.NewState("code", "go", "hot path")
	st.AppendIssues(models.Issue{Type: models.IssueTypePerfRisk, Line: 3, Description: "nested loop", Severity: models.SeverityMedium})

	require.NoError(t, NewPerformance(testDeps(r)).Run(context.Background(), st))

	user := r.Prompts()[0].User
	assert.Contains(t, user, "Language: go")
	assert.Contains(t, user, "Context: hot path")
	assert.Contains(t, user, "- perf_risk [med] line 3: nested loop")
}

func TestSystemPromptsEmbedSchema(t *testing.T) {
	d := testDeps(llm.NewScripted(nil))

	assert.Contains(t, NewSyntax(d).system, `"syntax_score"`)
	assert.Contains(t, NewSyntax(d).system, `"cleaned_code"`)
	assert.Contains(t, NewSecurity(d).system, `"security_score"`)
	assert.Contains(t, NewPerformance(d).system, `"perf_score"`)
	assert.Contains(t, NewRouter(nil, true, nil).system, `"security_first"`)
	assert.Contains(t, NewSynthesis(nil, nil).system, `"report_summary"`)
}

func TestRawIssue_Tolerance(t *testing.T) {
	res, err := decodeSyntax(`Here you go: {"issues":["bare finding",{"line":"12","description":"x","severity":"critical"},{"line":null},{"line":-3,"description":"y","severity":"weird"}],"syntax_score":8.5} hope it helps`)
	require.NoError(t, err)

	issues := normalizeIssues(res.issues, models.IssueTypeSyntaxError, pipeline.StageSyntax)
	require.Len(t, issues, 3, "entry with neither type nor description is dropped")

	assert.Equal(t, "bare finding", issues[0].Description)
	assert.Equal(t, models.SeverityLow, issues[0].Severity)
	assert.Equal(t, 12, issues[1].Line)
	assert.Equal(t, models.SeverityHigh, issues[1].Severity)
	assert.Equal(t, 0, issues[2].Line)
	assert.Equal(t, models.SeverityLow, issues[2].Severity)
}

func TestSchemaError_Unwraps(t *testing.T) {
	_, err := decodeSyntax("no json here")
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageSyntax, se.Stage)
	assert.Contains(t, err.Error(), "syntax: invalid response")
}

func TestSynthesis_Deterministic(t *testing.T) {
	st := pipeline.NewState("print('x'", "python", "")
	score := 7.0
	require.NoError(t, st.SetFeedback(pipeline.StageSyntax, pipeline.Feedback{Score: &score, CleanedCode: "print('x')"}))
	st.AppendIssues(
		models.Issue{Type: models.IssueTypeSyntaxError, Line: 1, Description: "missing paren", Severity: models.SeverityHigh},
		models.Issue{Type: models.IssueTypeSyntaxError, Line: 1, Description: "missing closing paren", Severity: models.SeverityMedium},
	)

	require.NoError(t, NewSynthesis(nil, quietLogger()).Run(context.Background(), st))

	report := st.Report()
	require.NotNil(t, report)
	// 0.4*50 + 0.3*50 + 0.3*70
	assert.Equal(t, 56, report.OverallScore)
	assert.Equal(t, 70, report.SubScores.Syntax)
	assert.Equal(t, []string{"security", "performance"}, report.SubScores.Defaulted)
	require.Len(t, report.TopIssues, 1)
	assert.Equal(t, "missing closing paren", report.TopIssues[0].Description)
	assert.Equal(t, models.SeverityHigh, report.TopIssues[0].Severity)
	assert.Equal(t, "print('x')", report.ImprovedCode, "syntax-only findings fall back to cleaned code")
	assert.Contains(t, report.ReportSummary, "Overall score 56/100")
}

func TestSynthesis_UsesModelSummary(t *testing.T) {
	t.Run("rewrite eligible", func(t *testing.T) {
		r := llm.NewScripted(map[string]string{
			"synthesis": `{"report_summary":"One style nit.","improved_code":"x = 1\n"}`,
		})
		st := pipeline.NewState("x=1", "python", "")
		st.AppendIssues(models.Issue{Type: models.IssueTypeStyle, Description: "spacing", Severity: models.SeverityLow})

		require.NoError(t, NewSynthesis(r, quietLogger()).Run(context.Background(), st))

		assert.Equal(t, "One style nit.", st.Report().ReportSummary)
		assert.Equal(t, "x = 1", st.Report().ImprovedCode)
		assert.Contains(t, r.Prompts()[0].User, "provide improved_code")
		_, ok := st.Feedback(pipeline.StageSynthesis)
		assert.True(t, ok)
	})

	t.Run("rewrite withheld for risky findings", func(t *testing.T) {
		r := llm.NewScripted(map[string]string{
			"synthesis": `{"report_summary":"Remove eval.","improved_code":"x = 1"}`,
		})
		st := pipeline.NewState("eval(x)", "python", "")
		st.AppendIssues(models.Issue{Type: models.IssueTypeSecurityVuln, Description: "eval", Severity: models.SeverityHigh})

		require.NoError(t, NewSynthesis(r, quietLogger()).Run(context.Background(), st))
		assert.Empty(t, st.Report().ImprovedCode)
		assert.Contains(t, r.Prompts()[0].User, "Do not provide improved_code")
	})

	t.Run("summary is bounded", func(t *testing.T) {
		long := strings.Repeat("word ", 300)
		body, err := json.Marshal(map[string]string{"report_summary": long})
		require.NoError(t, err)
		r := llm.NewScripted(map[string]string{"synthesis": string(body)})
		st := pipeline.NewState("x", "", "")

		require.NoError(t, NewSynthesis(r, quietLogger()).Run(context.Background(), st))
		summary := st.Report().ReportSummary
		assert.Len(t, strings.Fields(summary), 200)
		assert.True(t, strings.HasSuffix(summary, "…"))
	})
}

func TestSynthesis_FallsBackOnReasonerFailure(t *testing.T) {
	r := llm.NewScripted(map[string]string{"synthesis": "not json"})
	st := pipeline.NewState("x", "", "")

	require.NoError(t, NewSynthesis(r, quietLogger()).Run(context.Background(), st))
	assert.Equal(t, "Overall score 50/100. No issues were found.", st.Report().ReportSummary)
	assert.Empty(t, st.Report().TopIssues)
	_, ok := st.Feedback(pipeline.StageSynthesis)
	assert.False(t, ok)
}

func TestSynthesis_Idempotent(t *testing.T) {
	s := NewSynthesis(nil, quietLogger())
	st := pipeline.NewState("x", "", "")

	require.NoError(t, s.Run(context.Background(), st))
	first := st.Report()
	require.NoError(t, s.Run(context.Background(), st))
	assert.Same(t, first, st.Report())
}

func TestAll_ProvidesEveryStage(t *testing.T) {
	all := All(Options{Deps: testDeps(llm.NewScripted(nil)), ErrorOverride: true})

	names := make([]pipeline.StageName, len(all))
	for i, s := range all {
		names[i] = s.Name()
	}
	assert.ElementsMatch(t, pipeline.Stages, names)
}
