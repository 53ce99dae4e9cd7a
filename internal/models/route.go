package models

import (
	"fmt"
	"strings"
)

// RouteDecision is the triage outcome that selects which specialist stages may run.
type RouteDecision string

const (
	RouteFullReview    RouteDecision = "full_review"
	RouteSyntaxOnly    RouteDecision = "syntax_only"
	RouteSecurityFirst RouteDecision = "security_first"
	RouteSkip          RouteDecision = "skip"
)

// RouteDecisions lists every known decision.
var RouteDecisions = []RouteDecision{RouteFullReview, RouteSyntaxOnly, RouteSecurityFirst, RouteSkip}

// RouteParseError reports a route label that matches no known decision.
type RouteParseError struct {
	Label string
}

func (e *RouteParseError) Error() string {
	return fmt.Sprintf("unrecognized route label %q", e.Label)
}

// Valid reports whether d is one of the four known decisions.
func (d RouteDecision) Valid() bool {
	for _, known := range RouteDecisions {
		if d == known {
			return true
		}
	}
	return false
}

// ParseRouteDecision maps a label such as "security_first" or "SECURITY_FIRST"
// to a RouteDecision. Unknown labels return RouteSkip and a *RouteParseError.
func ParseRouteDecision(label string) (RouteDecision, error) {
	d := RouteDecision(strings.ToLower(strings.TrimSpace(label)))
	if d.Valid() {
		return d, nil
	}
	return RouteSkip, &RouteParseError{Label: label}
}
