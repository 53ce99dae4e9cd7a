// Package stages implements the review DAG nodes: the router that triages a
// snippet, the syntax, security and performance specialists, and the
// synthesis stage that produces the final report.
//
// Every stage asks the reasoning service for JSON, validates it against the
// stage's response type, and recovers locally when validation fails: the
// stage then contributes nothing and the run continues. Only a router that
// cannot reach the reasoning service aborts a run.
package stages
