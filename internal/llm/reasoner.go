package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the service answers with no text content.
var ErrEmptyResponse = errors.New("no text content in response")

// Prompt is a structured request to the reasoning service.
type Prompt struct {
	Stage     string // stage asking; lets stubs answer per stage
	System    string
	User      string
	MaxTokens int64
}

// Response is the raw text the reasoning service returned.
type Response struct {
	Text string
}

// Reasoner is the judgment-producing collaborator every stage calls.
// Implementations must be safe for concurrent use.
type Reasoner interface {
	Reason(ctx context.Context, p Prompt) (Response, error)
}

// ReasonerFunc adapts a function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, p Prompt) (Response, error)

func (f ReasonerFunc) Reason(ctx context.Context, p Prompt) (Response, error) {
	return f(ctx, p)
}

// StripFences removes a surrounding markdown code fence (```json ... ```)
// and trims whitespace.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		} else {
			text = ""
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
