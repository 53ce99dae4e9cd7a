package stages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/joescharf/reviewgraph/internal/llm"
	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

// SchemaError reports a reasoning-service response that does not match the
// stage's expected shape.
type SchemaError struct {
	Stage pipeline.StageName
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: invalid response: %v", e.Stage, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// rawIssue is an issue as the reasoning service reports it. A bare string
// is accepted as a description.
type rawIssue struct {
	Type        string     `json:"type,omitempty" jsonschema:"description=Issue category such as syntax_error or security_vuln or perf_risk"`
	Line        lineNumber `json:"line,omitempty" jsonschema:"description=1-based line number or 0 when not applicable"`
	Description string     `json:"description"`
	Severity    string     `json:"severity" jsonschema:"enum=low,enum=med,enum=high"`
	Suggestion  string     `json:"suggestion,omitempty"`
	Complexity  string     `json:"complexity,omitempty" jsonschema:"description=Big-O annotation such as O(n^2)"`
}

func (r *rawIssue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Description)
	}
	type plain rawIssue
	return json.Unmarshal(data, (*plain)(r))
}

// lineNumber tolerates numbers, numeric strings and null.
type lineNumber int

func (l *lineNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*l = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		*l = 0
		return nil
	}
	*l = lineNumber(f)
	return nil
}

// decodeResponse extracts the JSON object from text and decodes it into dst.
func decodeResponse(stage pipeline.StageName, text string, dst any) error {
	obj, err := extractObject(text)
	if err != nil {
		return &SchemaError{Stage: stage, Err: err}
	}
	if err := json.Unmarshal([]byte(obj), dst); err != nil {
		return &SchemaError{Stage: stage, Err: err}
	}
	return nil
}

// extractObject returns the outermost {...} span of text, tolerating code
// fences and surrounding prose.
func extractObject(text string) (string, error) {
	text = llm.StripFences(text)
	if text == "" {
		return "", errors.New("empty response")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object in response")
	}
	return text[start : end+1], nil
}

func validateScore(stage pipeline.StageName, field string, v *float64) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 10 {
		return &SchemaError{Stage: stage, Err: fmt.Errorf("%s %v outside [0,10]", field, *v)}
	}
	return nil
}

// normalizeIssues converts raw issues, assigning defaultType where the
// service omitted one. Entries with neither type nor description are dropped.
func normalizeIssues(raw []rawIssue, defaultType string, stage pipeline.StageName) []models.Issue {
	issues := make([]models.Issue, 0, len(raw))
	for _, r := range raw {
		typ := strings.TrimSpace(r.Type)
		desc := strings.TrimSpace(r.Description)
		if typ == "" && desc == "" {
			continue
		}
		if typ == "" {
			typ = defaultType
		}
		issues = append(issues, models.Issue{
			Type:        typ,
			Line:        int(r.Line),
			Description: desc,
			Severity:    models.ParseSeverity(r.Severity),
			Suggestion:  strings.TrimSpace(r.Suggestion),
			Complexity:  strings.TrimSpace(r.Complexity),
			Stage:       string(stage),
		})
	}
	return issues
}

// schemaFor renders the JSON Schema of a response type for embedding in a
// system prompt.
func schemaFor(v any) string {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	data, err := json.MarshalIndent(r.Reflect(v), "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
