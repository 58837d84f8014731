package driving

import (
	"context"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// LocationSyncer pulls an account's locations into local storage.
type LocationSyncer interface {
	// SyncLocations walks every page and upserts each location.
	// Returns the number of locations seen.
	SyncLocations(ctx context.Context, account *domain.Account) (int, error)
}

// ReviewSyncer pulls reviews and pushes replies.
type ReviewSyncer interface {
	// SyncReviews walks every page of a location's reviews and upserts them.
	// Returns the number of reviews seen.
	SyncReviews(ctx context.Context, location *domain.Location) (int, error)

	// PublishReply writes the reply upstream, then stores it locally.
	// A local failure after upstream success returns *domain.PartialSyncError.
	PublishReply(ctx context.Context, reviewID, text string) error

	// RepairReply re-applies the local half of a failed PublishReply.
	// It never calls the upstream API.
	RepairReply(ctx context.Context, partial *domain.PartialSyncError) error
}

// SyncOrchestrator runs the account → locations → reviews pipeline.
type SyncOrchestrator interface {
	// SyncAccount syncs one account. Per-location failures are reported in
	// the result; credential failures abort the account.
	SyncAccount(ctx context.Context, accountID string) (*domain.SyncResult, error)

	// SyncAll syncs every stored account.
	SyncAll(ctx context.Context) ([]domain.SyncResult, error)

	// Status returns live progress for an account.
	Status(ctx context.Context, accountID string) (*domain.SyncStatus, error)
}
