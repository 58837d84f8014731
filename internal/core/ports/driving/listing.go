package driving

import (
	"context"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// ListingService exposes the locally synced data.
type ListingService interface {
	// ListAccounts returns accounts owned by userID, or all accounts when empty.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	ListLocations(ctx context.Context, accountID string) ([]domain.Location, error)
	GetLocation(ctx context.Context, id string) (*domain.Location, error)

	ListReviews(ctx context.Context, locationID string) ([]domain.Review, error)
	GetReview(ctx context.Context, id string) (*domain.Review, error)
}
