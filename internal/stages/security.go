package stages

import (
	"errors"
	"fmt"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

const securityRole = `You are a security review agent scanning for vulnerabilities.
1. Detect risks such as SQL or JS injection, eval of untrusted input, hard-coded secrets and unsafe deserialization.
2. Prioritize the OWASP Top 10 and cite the reference material when it applies.
3. Give a concrete fix example in each suggestion.
4. Rate the snippet in security_score from 0 (critically vulnerable) to 10 (no findings).`

type securityResponse struct {
	Issues        []rawIssue `json:"issues"`
	SecurityScore *float64   `json:"security_score,omitempty" jsonschema:"minimum=0,maximum=10"`
	RiskScore     *float64   `json:"risk_score,omitempty" jsonschema:"minimum=0,maximum=10,description=Deprecated: 10 means highest risk"`
}

// NewSecurity creates the security specialist.
func NewSecurity(d Deps) *Specialist {
	s := d.specialist(pipeline.StageSecurity, models.IssueTypeSecurityVuln, systemPrompt(securityRole, &securityResponse{}))
	s.query = func(language string) string {
		return fmt.Sprintf("OWASP top 10 security vulnerabilities in %s: injection, eval, hard-coded secrets, unsafe deserialization", languageOr(language, "web application"))
	}
	s.decode = decodeSecurity
	return s
}

func decodeSecurity(text string) (specialistResult, error) {
	var out securityResponse
	if err := decodeResponse(pipeline.StageSecurity, text, &out); err != nil {
		return specialistResult{}, err
	}
	if out.Issues == nil {
		return specialistResult{}, &SchemaError{Stage: pipeline.StageSecurity, Err: errors.New("missing issues")}
	}
	if err := validateScore(pipeline.StageSecurity, "security_score", out.SecurityScore); err != nil {
		return specialistResult{}, err
	}
	if err := validateScore(pipeline.StageSecurity, "risk_score", out.RiskScore); err != nil {
		return specialistResult{}, err
	}

	score := out.SecurityScore
	if score == nil && out.RiskScore != nil {
		inverted := 10 - *out.RiskScore
		score = &inverted
	}
	return specialistResult{issues: out.Issues, score: score, raw: out}, nil
}
