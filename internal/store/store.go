package store

import (
	"context"
	"errors"

	"github.com/joescharf/reviewgraph/internal/models"
)

var (
	// ErrNotFound is returned when no review matches an ID.
	ErrNotFound = errors.New("review not found")
	// ErrAmbiguousID is returned when an ID prefix matches several reviews.
	ErrAmbiguousID = errors.New("ambiguous review id prefix")
)

// ReviewListFilter specifies filters for listing reviews.
type ReviewListFilter struct {
	Language string
	Route    models.RouteDecision
	CodeHash string
	Limit    int // 0 means no limit
}

// Store defines the persistence interface for archived reviews.
type Store interface {
	SaveReview(ctx context.Context, r *models.ReviewRecord) error
	// GetReview accepts a full ID or a unique prefix.
	GetReview(ctx context.Context, id string) (*models.ReviewRecord, error)
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.ReviewRecord, error)
	DeleteReview(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
