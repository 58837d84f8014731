package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// Ensure LocationSyncer implements the interface.
var _ driving.LocationSyncer = (*LocationSyncer)(nil)

// LocationSyncer mirrors an account's remote locations into the LocationStore.
type LocationSyncer struct {
	creds     driving.CredentialManager
	client    driven.ListingClient
	locations driven.LocationStore

	opts     options
	upstream upstream
}

// NewLocationSyncer creates a location syncer.
func NewLocationSyncer(
	creds driving.CredentialManager,
	client driven.ListingClient,
	locations driven.LocationStore,
	opts ...Option,
) *LocationSyncer {
	o := buildOptions(opts)
	return &LocationSyncer{
		creds:     creds,
		client:    client,
		locations: locations,
		opts:      o,
		upstream:  newUpstream(o),
	}
}

// SyncLocations upserts every location under the account.
func (s *LocationSyncer) SyncLocations(ctx context.Context, account *domain.Account) (int, error) {
	parent := domain.FormatLocationParent(account.ExternalID)
	logger.Section("Locations " + parent)

	seen := 0
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return seen, err
		}

		// Long walks can outlive the token, so it is checked per page.
		valid, err := s.creds.EnsureValid(ctx, account)
		if err != nil {
			return seen, err
		}
		account = valid

		page, err := call(ctx, s.upstream, "list locations",
			func(ctx context.Context) (*driven.Page[driven.RemoteLocation], error) {
				return s.client.ListLocations(ctx, account.Credentials.AccessToken.Reveal(), parent, pageToken)
			})
		if err != nil {
			return seen, fmt.Errorf("list locations: %w", err)
		}

		for i := range page.Items {
			location, err := s.toLocation(account, &page.Items[i])
			if err != nil {
				logger.Warn("Aborting location sync of %s: %v", parent, err)
				return seen, err
			}
			if _, err := s.locations.UpsertLocation(ctx, location); err != nil {
				return seen, fmt.Errorf("save location %s: %w", location.ExternalID, err)
			}
			seen++
		}

		if page.NextPageToken == "" {
			break
		}
		if page.NextPageToken == pageToken {
			return seen, fmt.Errorf("list locations: page token %q repeated", pageToken)
		}
		pageToken = page.NextPageToken
	}

	logger.Info("Synced %d locations for account %s", seen, account.ExternalID)
	return seen, nil
}

func (s *LocationSyncer) toLocation(account *domain.Account, remote *driven.RemoteLocation) (*domain.Location, error) {
	externalID, err := domain.ParseLocationID(remote.Name)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	location := &domain.Location{
		ID:          s.opts.newID(),
		AccountID:   account.ID,
		ExternalID:  externalID,
		DisplayName: remote.Title,
		Phone:       optional(remote.Phone),
		Website:     optional(remote.Website),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if remote.Address != nil {
		location.Address = domain.PostalAddress{
			AddressLines:       remote.Address.AddressLines,
			Locality:           remote.Address.Locality,
			AdministrativeArea: remote.Address.AdministrativeArea,
			PostalCode:         remote.Address.PostalCode,
		}.Format()
	}
	return location, nil
}

// optional maps the provider's empty string to an absent value.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
