package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// ReviewStore persists reviews.
type ReviewStore interface {
	// UpsertReview creates or updates the review keyed by (LocationID, ExternalID).
	// Provider-owned fields are overwritten; Reply and RepliedAt are only
	// overwritten when non-nil (see domain.MergeReview).
	// Returns true if a new row was created.
	UpsertReview(ctx context.Context, review *domain.Review) (bool, error)

	// GetReview retrieves a review by local ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetReview(ctx context.Context, id string) (*domain.Review, error)

	// ListByLocation returns the reviews of a location, newest first.
	ListByLocation(ctx context.Context, locationID string) ([]domain.Review, error)

	// UpdateReply sets the reply text and timestamp of a stored review.
	UpdateReply(ctx context.Context, id, reply string, repliedAt time.Time) error
}
