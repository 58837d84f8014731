package domain

import "time"

// LocationFailure records why one location's review sync failed.
type LocationFailure struct {
	LocationID string
	ExternalID string
	Err        error
}

// SyncResult summarises one account sync.
type SyncResult struct {
	AccountID       string
	LocationsSynced int
	ReviewsSynced   int
	// Failures lists locations whose reviews could not be synced.
	// Siblings are still synced when one location fails.
	Failures   []LocationFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded returns true if every location synced.
func (r *SyncResult) Succeeded() bool {
	return len(r.Failures) == 0
}

// SyncStatus is the live progress of a running account sync.
type SyncStatus struct {
	AccountID          string
	Running            bool
	LocationsProcessed int
	ReviewsProcessed   int
	ErrorCount         int
}
