// Package pipeline drives a code review through the stage DAG.
//
// A run owns one State, executes exactly one stage at a time, and asks the
// transition evaluator (Next) for the following stage only after the
// current one returns. Stages communicate solely through the State.
package pipeline
