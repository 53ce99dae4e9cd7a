package stages

import (
	"errors"
	"fmt"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

const syntaxRole = `You are a syntax review agent.
1. Check for syntax errors (unmatched braces, invalid imports, missing colons).
2. Flag style violations (indentation, naming conventions) using the reference material when it applies.
3. Flag obvious performance risks you notice with type "perf_risk".
4. Rate the snippet's syntactic quality in syntax_score from 0 (broken) to 10 (clean).
5. Optionally provide cleaned_code with only syntax and style fixes applied.`

type syntaxResponse struct {
	Issues      []rawIssue `json:"issues"`
	IsValid     *bool      `json:"is_valid,omitempty"`
	SyntaxScore *float64   `json:"syntax_score,omitempty" jsonschema:"minimum=0,maximum=10"`
	CleanedCode string     `json:"cleaned_code,omitempty"`
}

// NewSyntax creates the syntax specialist.
func NewSyntax(d Deps) *Specialist {
	s := d.specialist(pipeline.StageSyntax, models.IssueTypeSyntaxError, systemPrompt(syntaxRole, &syntaxResponse{}))
	s.query = func(language string) string {
		return fmt.Sprintf("style guidelines and common syntax errors for %s code: indentation, naming conventions, imports", languageOr(language, "python"))
	}
	s.decode = decodeSyntax
	return s
}

func decodeSyntax(text string) (specialistResult, error) {
	var out syntaxResponse
	if err := decodeResponse(pipeline.StageSyntax, text, &out); err != nil {
		return specialistResult{}, err
	}
	if out.Issues == nil {
		return specialistResult{}, &SchemaError{Stage: pipeline.StageSyntax, Err: errors.New("missing issues")}
	}
	if err := validateScore(pipeline.StageSyntax, "syntax_score", out.SyntaxScore); err != nil {
		return specialistResult{}, err
	}
	return specialistResult{
		issues:      out.Issues,
		score:       out.SyntaxScore,
		cleanedCode: out.CleanedCode,
		raw:         out,
	}, nil
}
