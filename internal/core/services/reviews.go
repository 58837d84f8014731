package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// Ensure ReviewSyncer implements the interface.
var _ driving.ReviewSyncer = (*ReviewSyncer)(nil)

// ReviewSyncer mirrors reviews into the ReviewStore and publishes replies.
type ReviewSyncer struct {
	creds     driving.CredentialManager
	client    driven.ListingClient
	accounts  driven.AccountStore
	locations driven.LocationStore
	reviews   driven.ReviewStore

	opts     options
	upstream upstream
}

// NewReviewSyncer creates a review syncer.
func NewReviewSyncer(
	creds driving.CredentialManager,
	client driven.ListingClient,
	accounts driven.AccountStore,
	locations driven.LocationStore,
	reviews driven.ReviewStore,
	opts ...Option,
) *ReviewSyncer {
	o := buildOptions(opts)
	return &ReviewSyncer{
		creds:     creds,
		client:    client,
		accounts:  accounts,
		locations: locations,
		reviews:   reviews,
		opts:      o,
		upstream:  newUpstream(o),
	}
}

// SyncReviews upserts every review of location and stamps it as synced.
// The stamp is only written once every page has been stored.
func (s *ReviewSyncer) SyncReviews(ctx context.Context, location *domain.Location) (int, error) {
	account, err := s.accounts.GetAccount(ctx, location.AccountID)
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	parent := domain.FormatReviewParent(account.ExternalID, location.ExternalID)

	seen := 0
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return seen, err
		}

		valid, err := s.creds.EnsureValid(ctx, account)
		if err != nil {
			return seen, err
		}
		account = valid

		page, err := call(ctx, s.upstream, "list reviews",
			func(ctx context.Context) (*driven.Page[driven.RemoteReview], error) {
				return s.client.ListReviews(ctx, account.Credentials.AccessToken.Reveal(), parent, pageToken)
			})
		if err != nil {
			return seen, fmt.Errorf("list reviews: %w", err)
		}

		for i := range page.Items {
			review, err := s.toReview(location, &page.Items[i])
			if err != nil {
				logger.Warn("Malformed review name %q under %s", page.Items[i].Name, parent)
				return seen, err
			}
			if _, err := s.reviews.UpsertReview(ctx, review); err != nil {
				return seen, fmt.Errorf("save review %s: %w", review.ExternalID, err)
			}
			seen++
		}

		if page.NextPageToken == "" {
			break
		}
		if page.NextPageToken == pageToken {
			return seen, fmt.Errorf("list reviews: page token %q repeated", pageToken)
		}
		pageToken = page.NextPageToken
	}

	if err := s.locations.MarkSynced(ctx, location.ID, s.opts.now()); err != nil {
		return seen, fmt.Errorf("mark location synced: %w", err)
	}

	logger.Debug("Synced %d reviews for %s", seen, parent)
	return seen, nil
}

func (s *ReviewSyncer) toReview(location *domain.Location, remote *driven.RemoteReview) (*domain.Review, error) {
	externalID, err := domain.ParseReviewID(remote.Name)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	review := &domain.Review{
		ID:               s.opts.newID(),
		LocationID:       location.ID,
		ExternalID:       externalID,
		ReviewerName:     remote.ReviewerName,
		ReviewerPhotoURL: optional(remote.ReviewerPhotoURL),
		Rating:           domain.ParseStarRating(remote.StarRating),
		Comment:          optional(remote.Comment),
		RemoteCreatedAt:  remote.CreateTime,
		RemoteUpdatedAt:  remote.UpdateTime,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if remote.Reply != nil {
		text := remote.Reply.Comment
		review.Reply = &text
		if !remote.Reply.UpdateTime.IsZero() {
			repliedAt := remote.Reply.UpdateTime
			review.RepliedAt = &repliedAt
		}
	}
	return review, nil
}

// PublishReply writes the reply upstream, then locally.
//
// The upstream write is a PUT that replaces any existing reply, so it is
// retried on transient failures like any read.
func (s *ReviewSyncer) PublishReply(ctx context.Context, reviewID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: reply text is empty", domain.ErrInvalidInput)
	}

	review, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	location, err := s.locations.GetLocation(ctx, review.LocationID)
	if err != nil {
		return fmt.Errorf("get location: %w", err)
	}
	account, err := s.accounts.GetAccount(ctx, location.AccountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	account, err = s.creds.EnsureValid(ctx, account)
	if err != nil {
		return err
	}

	name := domain.FormatReviewName(account.ExternalID, location.ExternalID, review.ExternalID)
	reply, err := call(ctx, s.upstream, "publish reply",
		func(ctx context.Context) (*driven.RemoteReply, error) {
			return s.client.PublishReply(ctx, account.Credentials.AccessToken.Reveal(), name, text)
		})
	if err != nil {
		return fmt.Errorf("publish reply to %s: %w", name, err)
	}

	comment := text
	repliedAt := s.opts.now()
	if reply != nil {
		if reply.Comment != "" {
			comment = reply.Comment
		}
		if !reply.UpdateTime.IsZero() {
			repliedAt = reply.UpdateTime
		}
	}

	if err := s.reviews.UpdateReply(ctx, review.ID, comment, repliedAt); err != nil {
		logger.Error("Reply to %s published but not saved locally: %v", name, err)
		return &domain.PartialSyncError{ReviewID: review.ID, Reply: comment, RepliedAt: repliedAt, Err: err}
	}

	logger.Info("Published reply to %s", name)
	return nil
}

// RepairReply stores the reply carried by a PartialSyncError. It never
// calls the provider: the reply is already live upstream.
func (s *ReviewSyncer) RepairReply(ctx context.Context, partial *domain.PartialSyncError) error {
	if partial == nil || partial.ReviewID == "" {
		return fmt.Errorf("%w: nothing to repair", domain.ErrInvalidInput)
	}
	if err := s.reviews.UpdateReply(ctx, partial.ReviewID, partial.Reply, partial.RepliedAt); err != nil {
		return fmt.Errorf("repair reply: %w", err)
	}
	return nil
}
