package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// Ensure ReviewStore implements the interface.
var _ driven.ReviewStore = (*ReviewStore)(nil)

// ReviewStore is an in-memory implementation of driven.ReviewStore.
type ReviewStore struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	byKey   map[string]string
}

// NewReviewStore creates a new in-memory review store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{
		reviews: make(map[string]domain.Review),
		byKey:   make(map[string]string),
	}
}

// UpsertReview creates a review or merges it into the stored one with domain.MergeReview.
func (s *ReviewStore) UpsertReview(_ context.Context, review *domain.Review) (bool, error) {
	if review == nil || review.LocationID == "" || review.ExternalID == "" {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := review.LocationID + "\x00" + review.ExternalID
	id, exists := s.byKey[key]
	if exists {
		*review = domain.MergeReview(s.reviews[id], *review)
	} else if review.ID == "" {
		return false, domain.ErrInvalidInput
	}

	s.reviews[review.ID] = *review
	s.byKey[key] = review.ID
	return !exists, nil
}

// GetReview retrieves a review by ID.
func (s *ReviewStore) GetReview(_ context.Context, id string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	review, ok := s.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &review, nil
}

// ListByLocation returns a location's reviews, newest first.
func (s *ReviewStore) ListByLocation(_ context.Context, locationID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reviews []domain.Review
	for _, r := range s.reviews {
		if r.LocationID == locationID {
			reviews = append(reviews, r)
		}
	}
	slices.SortFunc(reviews, func(a, b domain.Review) int {
		if c := b.RemoteCreatedAt.Compare(a.RemoteCreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ExternalID, b.ExternalID)
	})
	return reviews, nil
}

// UpdateReply sets the reply of a stored review.
func (s *ReviewStore) UpdateReply(_ context.Context, id, reply string, repliedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	review, ok := s.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	review.Reply = &reply
	review.RepliedAt = &repliedAt
	s.reviews[id] = review
	return nil
}
