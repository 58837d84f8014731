package mcp

import (
	"context"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
)

var (
	_ driving.ListingService   = (*mockListingService)(nil)
	_ driving.SyncOrchestrator = (*mockSyncOrchestrator)(nil)
	_ driving.ReviewSyncer     = (*mockReviewSyncer)(nil)
)

type mockListingService struct {
	accounts  []domain.Account
	locations []domain.Location
	reviews   []domain.Review
	err       error

	lastUserID     string
	lastAccountID  string
	lastLocationID string
}

func (m *mockListingService) ListAccounts(_ context.Context, userID string) ([]domain.Account, error) {
	m.lastUserID = userID
	return m.accounts, m.err
}

func (m *mockListingService) GetAccount(_ context.Context, _ string) (*domain.Account, error) {
	return nil, domain.ErrNotFound
}

func (m *mockListingService) ListLocations(_ context.Context, accountID string) ([]domain.Location, error) {
	m.lastAccountID = accountID
	return m.locations, m.err
}

func (m *mockListingService) GetLocation(_ context.Context, _ string) (*domain.Location, error) {
	return nil, domain.ErrNotFound
}

func (m *mockListingService) ListReviews(_ context.Context, locationID string) ([]domain.Review, error) {
	m.lastLocationID = locationID
	return m.reviews, m.err
}

func (m *mockListingService) GetReview(_ context.Context, _ string) (*domain.Review, error) {
	return nil, domain.ErrNotFound
}

type mockSyncOrchestrator struct {
	result *domain.SyncResult
	err    error
}

func (m *mockSyncOrchestrator) SyncAccount(_ context.Context, _ string) (*domain.SyncResult, error) {
	return m.result, m.err
}

func (m *mockSyncOrchestrator) SyncAll(_ context.Context) ([]domain.SyncResult, error) {
	return nil, m.err
}

func (m *mockSyncOrchestrator) Status(_ context.Context, accountID string) (*domain.SyncStatus, error) {
	return &domain.SyncStatus{AccountID: accountID}, nil
}

type mockReviewSyncer struct {
	err       error
	reviewID  string
	replyText string
}

func (m *mockReviewSyncer) SyncReviews(_ context.Context, _ *domain.Location) (int, error) {
	return 0, nil
}

func (m *mockReviewSyncer) PublishReply(_ context.Context, reviewID, text string) error {
	m.reviewID = reviewID
	m.replyText = text
	return m.err
}

func (m *mockReviewSyncer) RepairReply(_ context.Context, _ *domain.PartialSyncError) error {
	return nil
}
