package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/joescharf/reviewgraph/internal/models"
	"github.com/joescharf/reviewgraph/internal/pipeline"
	"github.com/joescharf/reviewgraph/internal/review"
	"github.com/joescharf/reviewgraph/internal/store"
	"github.com/joescharf/reviewgraph/internal/ui"
)

// DefaultListLimit caps GET /reviews when no limit is given.
const DefaultListLimit = 20

// Server provides the REST API handlers.
type Server struct {
	reviewer *review.Reviewer
	store    store.Store
	origins  []string
	logger   *slog.Logger
}

// NewServer creates a new API server.
// The store may be nil when history is disabled; the /reviews routes then
// answer 404.
func NewServer(reviewer *review.Reviewer, s store.Store, origins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		reviewer: reviewer,
		store:    s,
		origins:  origins,
		logger:   logger,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /review", s.createReview)
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("GET /graph.mmd", s.graphSource)
	if page, err := ui.GraphHandler(ui.GraphPage{Source: pipeline.Mermaid()}); err != nil {
		s.logger.Error("graph page unavailable", "error", err)
	} else {
		mux.Handle("GET /graph", page)
	}

	mux.HandleFunc("GET /reviews", s.listReviews)
	mux.HandleFunc("GET /reviews/{id}", s.getReview)

	return corsMiddleware(s.origins, mux)
}

func corsMiddleware(origins []string, next http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Review ---

type reviewRequest struct {
	CodeSnippet string `json:"code_snippet"`
	Language    string `json:"language"`
	Context     string `json:"context"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.reviewer.Review(r.Context(), pipeline.Request{
		Code:     req.CodeSnippet,
		Language: req.Language,
		Context:  req.Context,
	})
	switch {
	case errors.Is(err, review.ErrEmptyCode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("review failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Graph ---

func (s *Server) graphSource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(pipeline.Mermaid()))
}

// --- History ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "review history is disabled")
		return
	}

	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	reviews, err := s.store.ListReviews(r.Context(), store.ReviewListFilter{
		Language: r.URL.Query().Get("language"),
		Limit:    limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reviews == nil {
		reviews = []*models.ReviewRecord{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "review history is disabled")
		return
	}

	rec, err := s.store.GetReview(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, store.ErrAmbiguousID):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
