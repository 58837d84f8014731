package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// ListAccountsInput is the input schema for the list_accounts tool.
type ListAccountsInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"only return accounts owned by this local user"`
}

// ListAccountsOutput is the output schema for the list_accounts tool.
type ListAccountsOutput struct {
	Accounts []AccountOutput `json:"accounts"`
	Count    int             `json:"count"`
}

// AccountOutput is an account without its credentials.
type AccountOutput struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ResourceName string    `json:"resource_name"`
	DisplayName  string    `json:"display_name"`
	Type         string    `json:"type"`
	State        string    `json:"state"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

// ListLocationsInput is the input schema for the list_locations tool.
type ListLocationsInput struct {
	AccountID string `json:"account_id" jsonschema:"local ID of the account"`
}

// ListLocationsOutput is the output schema for the list_locations tool.
type ListLocationsOutput struct {
	Locations []LocationOutput `json:"locations"`
	Count     int              `json:"count"`
}

// LocationOutput is a synced location.
type LocationOutput struct {
	ID           string     `json:"id"`
	ExternalID   string     `json:"external_id"`
	DisplayName  string     `json:"display_name"`
	Address      string     `json:"address,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Website      string     `json:"website,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// ListReviewsInput is the input schema for the list_reviews tool.
type ListReviewsInput struct {
	LocationID     string `json:"location_id" jsonschema:"local ID of the location"`
	UnansweredOnly bool   `json:"unanswered_only,omitempty" jsonschema:"only return reviews without a reply"`
}

// ListReviewsOutput is the output schema for the list_reviews tool.
type ListReviewsOutput struct {
	Reviews []ReviewOutput `json:"reviews"`
	Count   int            `json:"count"`
}

// ReviewOutput is a synced review.
type ReviewOutput struct {
	ID           string     `json:"id"`
	ExternalID   string     `json:"external_id"`
	ReviewerName string     `json:"reviewer_name"`
	Rating       int        `json:"rating"`
	Comment      string     `json:"comment,omitempty"`
	Reply        string     `json:"reply,omitempty"`
	RepliedAt    *time.Time `json:"replied_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SyncAccountInput is the input schema for the sync_account tool.
type SyncAccountInput struct {
	AccountID string `json:"account_id" jsonschema:"local ID of the account to sync"`
}

// SyncAccountOutput is the output schema for the sync_account tool.
type SyncAccountOutput struct {
	LocationsSynced int             `json:"locations_synced"`
	ReviewsSynced   int             `json:"reviews_synced"`
	Failures        []FailureOutput `json:"failures,omitempty"`
}

// FailureOutput names a location whose reviews could not be synced.
type FailureOutput struct {
	LocationID string `json:"location_id"`
	ExternalID string `json:"external_id"`
	Error      string `json:"error"`
}

// PublishReplyInput is the input schema for the publish_reply tool.
type PublishReplyInput struct {
	ReviewID string `json:"review_id" jsonschema:"local ID of the review"`
	Text     string `json:"text" jsonschema:"reply text to publish"`
}

// PublishReplyOutput is the output schema for the publish_reply tool.
type PublishReplyOutput struct {
	Published bool `json:"published"`
	// StoredLocally is false when the reply went live but the local copy failed.
	StoredLocally bool `json:"stored_locally"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_accounts",
		Description: "List connected business accounts",
	}, s.handleListAccounts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_locations",
		Description: "List the synced locations of an account",
	}, s.handleListLocations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_reviews",
		Description: "List the synced reviews of a location, newest first",
	}, s.handleListReviews)

	if s.ports.Sync != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "sync_account",
			Description: "Pull locations and reviews of an account from the provider",
		}, s.handleSyncAccount)
	}

	if s.ports.Reviews != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "publish_reply",
			Description: "Publish or replace the owner reply on a review",
		}, s.handlePublishReply)
	}
}

func (s *Server) handleListAccounts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListAccountsInput,
) (*mcp.CallToolResult, ListAccountsOutput, error) {
	accounts, err := s.ports.Listing.ListAccounts(ctx, input.UserID)
	if err != nil {
		return nil, ListAccountsOutput{}, err
	}

	output := ListAccountsOutput{
		Accounts: make([]AccountOutput, len(accounts)),
		Count:    len(accounts),
	}
	for i := range accounts {
		output.Accounts[i] = toAccountOutput(&accounts[i])
	}
	return nil, output, nil
}

func (s *Server) handleListLocations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListLocationsInput,
) (*mcp.CallToolResult, ListLocationsOutput, error) {
	if input.AccountID == "" {
		return nil, ListLocationsOutput{}, fmt.Errorf("%w: account_id is required", domain.ErrInvalidInput)
	}

	locations, err := s.ports.Listing.ListLocations(ctx, input.AccountID)
	if err != nil {
		return nil, ListLocationsOutput{}, err
	}

	output := ListLocationsOutput{
		Locations: make([]LocationOutput, len(locations)),
		Count:     len(locations),
	}
	for i := range locations {
		output.Locations[i] = toLocationOutput(&locations[i])
	}
	return nil, output, nil
}

func (s *Server) handleListReviews(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListReviewsInput,
) (*mcp.CallToolResult, ListReviewsOutput, error) {
	if input.LocationID == "" {
		return nil, ListReviewsOutput{}, fmt.Errorf("%w: location_id is required", domain.ErrInvalidInput)
	}

	reviews, err := s.ports.Listing.ListReviews(ctx, input.LocationID)
	if err != nil {
		return nil, ListReviewsOutput{}, err
	}

	output := ListReviewsOutput{Reviews: make([]ReviewOutput, 0, len(reviews))}
	for i := range reviews {
		if input.UnansweredOnly && reviews[i].HasReply() {
			continue
		}
		output.Reviews = append(output.Reviews, toReviewOutput(&reviews[i]))
	}
	output.Count = len(output.Reviews)
	return nil, output, nil
}

func (s *Server) handleSyncAccount(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncAccountInput,
) (*mcp.CallToolResult, SyncAccountOutput, error) {
	if input.AccountID == "" {
		return nil, SyncAccountOutput{}, fmt.Errorf("%w: account_id is required", domain.ErrInvalidInput)
	}

	result, err := s.ports.Sync.SyncAccount(ctx, input.AccountID)
	if err != nil {
		return nil, SyncAccountOutput{}, err
	}

	output := SyncAccountOutput{
		LocationsSynced: result.LocationsSynced,
		ReviewsSynced:   result.ReviewsSynced,
	}
	for _, f := range result.Failures {
		output.Failures = append(output.Failures, FailureOutput{
			LocationID: f.LocationID,
			ExternalID: f.ExternalID,
			Error:      f.Err.Error(),
		})
	}
	return nil, output, nil
}

func (s *Server) handlePublishReply(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PublishReplyInput,
) (*mcp.CallToolResult, PublishReplyOutput, error) {
	err := s.ports.Reviews.PublishReply(ctx, input.ReviewID, input.Text)

	var partial *domain.PartialSyncError
	switch {
	case err == nil:
		return nil, PublishReplyOutput{Published: true, StoredLocally: true}, nil
	case errors.As(err, &partial):
		// Published upstream; the next review sync stores it locally.
		return nil, PublishReplyOutput{Published: true}, nil
	default:
		return nil, PublishReplyOutput{}, err
	}
}

func toAccountOutput(a *domain.Account) AccountOutput {
	return AccountOutput{
		ID:           a.ID,
		UserID:       a.UserID,
		ResourceName: a.ResourceName(),
		DisplayName:  a.DisplayName,
		Type:         string(a.Type),
		State:        string(a.State),
		TokenExpiry:  a.Credentials.Expiry,
	}
}

func toLocationOutput(l *domain.Location) LocationOutput {
	out := LocationOutput{
		ID:           l.ID,
		ExternalID:   l.ExternalID,
		DisplayName:  l.DisplayName,
		Address:      l.Address,
		LastSyncedAt: l.LastSyncedAt,
	}
	if l.Phone != nil {
		out.Phone = *l.Phone
	}
	if l.Website != nil {
		out.Website = *l.Website
	}
	return out
}

func toReviewOutput(r *domain.Review) ReviewOutput {
	out := ReviewOutput{
		ID:           r.ID,
		ExternalID:   r.ExternalID,
		ReviewerName: r.ReviewerName,
		Rating:       int(r.Rating),
		RepliedAt:    r.RepliedAt,
		CreatedAt:    r.RemoteCreatedAt,
	}
	if r.Comment != nil {
		out.Comment = *r.Comment
	}
	if r.Reply != nil {
		out.Reply = *r.Reply
	}
	return out
}
