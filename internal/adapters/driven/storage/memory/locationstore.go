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

// Ensure LocationStore implements the interface.
var _ driven.LocationStore = (*LocationStore)(nil)

// LocationStore is an in-memory implementation of driven.LocationStore.
type LocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.Location
	byKey     map[string]string
}

// NewLocationStore creates a new in-memory location store.
func NewLocationStore() *LocationStore {
	return &LocationStore{
		locations: make(map[string]domain.Location),
		byKey:     make(map[string]string),
	}
}

// UpsertLocation creates or updates a location by (AccountID, ExternalID).
func (s *LocationStore) UpsertLocation(_ context.Context, location *domain.Location) (bool, error) {
	if location == nil || location.AccountID == "" || location.ExternalID == "" {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := location.AccountID + "\x00" + location.ExternalID
	id, exists := s.byKey[key]
	if exists {
		existing := s.locations[id]
		location.ID = existing.ID
		location.CreatedAt = existing.CreatedAt
		location.LastSyncedAt = existing.LastSyncedAt
		if existing.SameListing(location) {
			location.UpdatedAt = existing.UpdatedAt
		}
	} else {
		if location.ID == "" {
			return false, domain.ErrInvalidInput
		}
		location.LastSyncedAt = nil
	}

	s.locations[location.ID] = *location
	s.byKey[key] = location.ID
	return !exists, nil
}

// GetLocation retrieves a location by ID.
func (s *LocationStore) GetLocation(_ context.Context, id string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	location, ok := s.locations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &location, nil
}

// ListByAccount returns an account's locations ordered by external ID.
func (s *LocationStore) ListByAccount(_ context.Context, accountID string) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var locations []domain.Location
	for _, l := range s.locations {
		if l.AccountID == accountID {
			locations = append(locations, l)
		}
	}
	slices.SortFunc(locations, func(a, b domain.Location) int {
		return strings.Compare(a.ExternalID, b.ExternalID)
	})
	return locations, nil
}

// MarkSynced sets LastSyncedAt.
func (s *LocationStore) MarkSynced(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	location, ok := s.locations[id]
	if !ok {
		return domain.ErrNotFound
	}
	location.LastSyncedAt = &at
	s.locations[id] = location
	return nil
}
