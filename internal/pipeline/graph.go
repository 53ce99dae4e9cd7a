package pipeline

import (
	"fmt"
	"strings"
)

// Mermaid renders the DAG as Mermaid flowchart source. Branching edges are
// drawn dotted and labelled with their condition.
func Mermaid() string {
	outgoing := make(map[StageName]int)
	for _, e := range Edges {
		outgoing[e.From]++
	}

	var b strings.Builder
	b.WriteString("graph TD;\n")
	b.WriteString("\t__start__([start]):::first\n")
	for _, name := range Stages {
		fmt.Fprintf(&b, "\t%s(%s)\n", name, name)
	}
	fmt.Fprintf(&b, "\t%s([end]):::last\n", StageTerminal)
	fmt.Fprintf(&b, "\t__start__ --> %s;\n", StageRouter)

	for _, e := range Edges {
		switch {
		case outgoing[e.From] > 1 && e.Label != "":
			fmt.Fprintf(&b, "\t%s -.->|%s| %s;\n", e.From, e.Label, e.To)
		case outgoing[e.From] > 1:
			fmt.Fprintf(&b, "\t%s -.-> %s;\n", e.From, e.To)
		default:
			fmt.Fprintf(&b, "\t%s --> %s;\n", e.From, e.To)
		}
	}

	b.WriteString("\tclassDef default fill:#f2f0ff,line-height:1.2\n")
	b.WriteString("\tclassDef first fill-opacity:0\n")
	b.WriteString("\tclassDef last fill:#bfb6fc\n")
	return b.String()
}
