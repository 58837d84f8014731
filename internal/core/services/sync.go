package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator runs account → locations → reviews.
type SyncOrchestrator struct {
	accounts       driven.AccountStore
	locations      driven.LocationStore
	locationSyncer driving.LocationSyncer
	reviewSyncer   driving.ReviewSyncer

	opts options

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*domain.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	accounts driven.AccountStore,
	locations driven.LocationStore,
	locationSyncer driving.LocationSyncer,
	reviewSyncer driving.ReviewSyncer,
	opts ...Option,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		accounts:       accounts,
		locations:      locations,
		locationSyncer: locationSyncer,
		reviewSyncer:   reviewSyncer,
		opts:           buildOptions(opts),
		activeSyncs:    make(map[string]*domain.SyncStatus),
	}
}

// SyncAccount syncs one account.
//
// A failure syncing one location's reviews is recorded in the result and
// the remaining locations still run. Credential errors abort immediately
// since no later call could succeed. Cancellation is checked between
// locations; the partial result is returned with the context error.
func (o *SyncOrchestrator) SyncAccount(ctx context.Context, accountID string) (*domain.SyncResult, error) {
	status, ok := o.begin(accountID)
	if !ok {
		return nil, fmt.Errorf("sync account %s: %w", accountID, domain.ErrSyncInProgress)
	}
	defer o.clearStatus(accountID)

	account, err := o.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	result := &domain.SyncResult{AccountID: accountID, StartedAt: o.opts.now()}
	logger.Info("Starting sync for account %s", account.ExternalID)

	count, err := o.locationSyncer.SyncLocations(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("sync locations: %w", err)
	}
	result.LocationsSynced = count

	locations, err := o.locations.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	for i := range locations {
		location := &locations[i]
		if err := ctx.Err(); err != nil {
			result.FinishedAt = o.opts.now()
			return result, err
		}

		count, err := o.reviewSyncer.SyncReviews(ctx, location)
		if err != nil {
			if domain.RequiresReauth(err) {
				return nil, fmt.Errorf("sync reviews for location %s: %w", location.ExternalID, err)
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				result.FinishedAt = o.opts.now()
				return result, err
			}
			logger.Warn("Review sync failed for location %s: %v", location.ExternalID, err)
			result.Failures = append(result.Failures, domain.LocationFailure{
				LocationID: location.ID,
				ExternalID: location.ExternalID,
				Err:        err,
			})
			o.update(status, 0, true)
			continue
		}
		result.ReviewsSynced += count
		o.update(status, count, false)
	}

	result.FinishedAt = o.opts.now()
	logger.Info("Sync complete for account %s: %d locations, %d reviews, %d failures",
		account.ExternalID, result.LocationsSynced, result.ReviewsSynced, len(result.Failures))
	return result, nil
}

// SyncAll syncs every stored account one after another.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) ([]domain.SyncResult, error) {
	accounts, err := o.accounts.ListAccounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var (
		results []domain.SyncResult
		errs    []error
	)
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := o.SyncAccount(ctx, account.ID)
		if result != nil {
			results = append(results, *result)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", account.ID, err))
		}
	}

	return results, errors.Join(errs...)
}

// Status returns sync status for an account.
func (o *SyncOrchestrator) Status(_ context.Context, accountID string) (*domain.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeSyncs[accountID]; ok {
		// Return a copy to avoid race conditions
		snapshot := *status
		return &snapshot, nil
	}

	// Not running - return idle status
	return &domain.SyncStatus{AccountID: accountID}, nil
}

// begin registers a running sync. It returns false if one is already running.
func (o *SyncOrchestrator) begin(accountID string) (*domain.SyncStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.activeSyncs[accountID]; running {
		return nil, false
	}
	status := &domain.SyncStatus{AccountID: accountID, Running: true}
	o.activeSyncs[accountID] = status
	return status, true
}

func (o *SyncOrchestrator) update(status *domain.SyncStatus, reviews int, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status.LocationsProcessed++
	status.ReviewsProcessed += reviews
	if failed {
		status.ErrorCount++
	}
}

// clearStatus removes the sync status for an account.
func (o *SyncOrchestrator) clearStatus(accountID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, accountID)
}
