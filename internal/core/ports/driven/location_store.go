package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// LocationStore persists locations.
type LocationStore interface {
	// UpsertLocation creates or updates the location keyed by (AccountID, ExternalID).
	// LastSyncedAt is never written by an upsert.
	// Returns true if a new row was created.
	UpsertLocation(ctx context.Context, location *domain.Location) (bool, error)

	// GetLocation retrieves a location by local ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetLocation(ctx context.Context, id string) (*domain.Location, error)

	// ListByAccount returns the locations of an account ordered by external ID.
	ListByAccount(ctx context.Context, accountID string) ([]domain.Location, error)

	// MarkSynced records when the location's reviews were last synced.
	MarkSynced(ctx context.Context, id string, at time.Time) error
}
