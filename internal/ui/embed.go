package ui

import (
	"bytes"
	_ "embed"
	"html/template"
	"io"
	"net/http"
)

//go:embed graph.html
var graphHTML string

var graphTmpl = template.Must(template.New("graph").Parse(graphHTML))

// GraphPage is the data rendered by the graph page.
type GraphPage struct {
	Title  string
	Source string // Mermaid flowchart source
}

// RenderGraph writes the graph page to w.
func RenderGraph(w io.Writer, page GraphPage) error {
	if page.Title == "" {
		page.Title = "Review graph"
	}
	return graphTmpl.Execute(w, page)
}

// GraphHandler returns an http.Handler serving the graph page. The page is
// rendered once since the graph is static.
func GraphHandler(page GraphPage) (http.Handler, error) {
	var buf bytes.Buffer
	if err := RenderGraph(&buf, page); err != nil {
		return nil, err
	}
	body := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}), nil
}
