package stages

import (
	"fmt"
	"strings"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
)

const jsonInstruction = `
Respond ONLY with a JSON object matching this JSON Schema. No markdown fencing, no explanation.
`

// systemPrompt appends the response schema to a stage's role description.
func systemPrompt(role string, response any) string {
	return strings.TrimSpace(role) + "\n" + jsonInstruction + schemaFor(response)
}

// userPrompt renders the shared part of every stage prompt.
func userPrompt(st *pipeline.State, references string) string {
	var b strings.Builder

	language := st.Language
	if language == "" {
		language = "unknown"
	}
	fmt.Fprintf(&b, "Language: %s\n", language)
	if c := strings.TrimSpace(st.Context); c != "" {
		fmt.Fprintf(&b, "Context: %s\n", c)
	}

	b.WriteString("\nCode:\n```\n")
	b.WriteString(st.RawCode)
	if !strings.HasSuffix(st.RawCode, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	if prior := st.Issues(); len(prior) > 0 {
		b.WriteString("\nPrior issues:\n")
		b.WriteString(formatIssues(prior))
	}

	if references != "" {
		b.WriteString("\nReference material:\n")
		b.WriteString(references)
		b.WriteString("\n")
	}
	return b.String()
}

func formatIssues(issues []models.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s [%s]", issue.Type, issue.Severity)
		if issue.Line > 0 {
			fmt.Fprintf(&b, " line %d", issue.Line)
		}
		desc := issue.Description
		if desc == "" {
			desc = "N/A"
		}
		fmt.Fprintf(&b, ": %s\n", desc)
	}
	return b.String()
}
