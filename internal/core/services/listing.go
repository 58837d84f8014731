package services

import (
	"context"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
)

// Ensure ListingService implements the interface.
var _ driving.ListingService = (*ListingService)(nil)

// ListingService reads locally synced accounts, locations and reviews.
type ListingService struct {
	accounts  driven.AccountStore
	locations driven.LocationStore
	reviews   driven.ReviewStore
}

// NewListingService creates a listing service.
func NewListingService(
	accounts driven.AccountStore,
	locations driven.LocationStore,
	reviews driven.ReviewStore,
) *ListingService {
	return &ListingService{accounts: accounts, locations: locations, reviews: reviews}
}

func (s *ListingService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.accounts.ListAccounts(ctx, userID)
}

func (s *ListingService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetAccount(ctx, id)
}

func (s *ListingService) ListLocations(ctx context.Context, accountID string) ([]domain.Location, error) {
	return s.locations.ListByAccount(ctx, accountID)
}

func (s *ListingService) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	return s.locations.GetLocation(ctx, id)
}

func (s *ListingService) ListReviews(ctx context.Context, locationID string) ([]domain.Review, error) {
	return s.reviews.ListByLocation(ctx, locationID)
}

func (s *ListingService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return s.reviews.GetReview(ctx, id)
}
