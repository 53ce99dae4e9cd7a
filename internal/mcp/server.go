package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/review"
	"github.com/joescharf/reviewgraph/internal/store"
)

// Server exposes the review pipeline as MCP tools.
type Server struct {
	reviewer *review.Reviewer
	store    store.Store
	version  string
}

// NewServer creates the MCP server wrapper. The store may be nil when
// history is disabled.
func NewServer(reviewer *review.Reviewer, s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{reviewer: reviewer, store: s, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("reviewgraph", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.reviewCodeTool())
	srv.AddTool(s.reviewGraphTool())
	srv.AddTool(s.listReviewsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// review_code
func (s *Server) reviewCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_code",
		mcp.WithDescription("Review a code snippet for syntax, security and performance issues. Returns the final report (overall score 0-100, sub-scores, top issues, summary, optional improved code), every issue found, the route taken and the stages visited."),
		mcp.WithString("code", mcp.Required(), mcp.Description("The code snippet to review")),
		mcp.WithString("language", mcp.Description("Language hint, e.g. python or go. Detected when omitted.")),
		mcp.WithString("context", mcp.Description("Free-text context about where the code runs")),
	)
	return tool, s.handleReviewCode
}

func (s *Server) handleReviewCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}

	res, err := s.reviewer.Review(ctx, pipeline.Request{
		Code:     code,
		Language: request.GetString("language", ""),
		Context:  request.GetString("context", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// review_graph
func (s *Server) reviewGraphTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_graph",
		mcp.WithDescription("Return the review pipeline DAG as Mermaid flowchart source."),
	)
	return tool, s.handleReviewGraph
}

func (s *Server) handleReviewGraph(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(pipeline.Mermaid()), nil
}

// list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_reviews",
		mcp.WithDescription("List archived reviews, newest first. Returns id, language, route, overall score, summary and creation time."),
		mcp.WithString("language", mcp.Description("Filter by language")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reviews to return (default 10)")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("review history is disabled"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be a positive integer"), nil
	}

	reviews, err := s.store.ListReviews(ctx, store.ReviewListFilter{
		Language: request.GetString("language", ""),
		Limit:    limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ID           string               `json:"id"`
		Language     string               `json:"language"`
		Route        models.RouteDecision `json:"route"`
		OverallScore int                  `json:"overall_score"`
		Summary      string               `json:"summary"`
		Issues       int                  `json:"issues"`
		CreatedAt    time.Time            `json:"created_at"`
	}

	out := make([]reviewOut, len(reviews))
	for i, r := range reviews {
		out[i] = reviewOut{
			ID:           r.ID,
			Language:     r.Language,
			Route:        r.Route,
			OverallScore: r.OverallScore,
			Summary:      r.Summary,
			Issues:       len(r.Issues),
			CreatedAt:    r.CreatedAt,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
