package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "listingsync://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "accounts",
		Name:        "accounts",
		Description: "Connected business accounts",
		MIMEType:    "application/json",
	}, s.handleAccountsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "accounts/{accountId}/locations",
		Name:        "account-locations",
		Description: "Synced locations of an account",
		MIMEType:    "application/json",
	}, s.handleLocationsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "locations/{locationId}/reviews",
		Name:        "location-reviews",
		Description: "Synced reviews of a location, newest first",
		MIMEType:    "application/json",
	}, s.handleReviewsResource)
}

func (s *Server) handleAccountsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	accounts, err := s.ports.Listing.ListAccounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	out := make([]AccountOutput, len(accounts))
	for i := range accounts {
		out[i] = toAccountOutput(&accounts[i])
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleLocationsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	accountID := extractID(req.Params.URI, "accounts/", "/locations")
	if accountID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	locations, err := s.ports.Listing.ListLocations(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	out := make([]LocationOutput, len(locations))
	for i := range locations {
		out[i] = toLocationOutput(&locations[i])
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleReviewsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	locationID := extractID(req.Params.URI, "locations/", "/reviews")
	if locationID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	reviews, err := s.ports.Listing.ListReviews(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}

	out := make([]ReviewOutput, len(reviews))
	for i := range reviews {
		out[i] = toReviewOutput(&reviews[i])
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractID returns the segment between prefix and suffix in a URI like
// listingsync://accounts/{id}/locations, or "" if the URI does not match.
func extractID(uri, prefix, suffix string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+prefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, suffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
