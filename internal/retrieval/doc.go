// Package retrieval provides reference passages (style guides, OWASP
// notes, complexity guidance) used to enrich stage prompts.
//
// The index is built once per process by Service.Init and is read-only
// afterwards. A missing or failed index never blocks a review: callers get
// ErrUnavailable and proceed with empty context.
package retrieval
