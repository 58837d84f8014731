// Package google implements driven.ListingClient against the Google Business Profile APIs.
//
// Accounts come from the Account Management API (v1) and locations from the
// Business Information API (v1), both through the generated clients in
// google.golang.org/api. Reviews and replies only exist on the legacy
// mybusiness v4 REST surface, which has no generated Go client; those calls
// are plain JSON over net/http with googleapi.CheckResponse for errors.
//
// Every request passes through a token-bucket RateLimiter. A 429 response
// pauses the limiter for the Retry-After period.
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/business.manage
//
// Errors are mapped onto the domain taxonomy: 5xx, 408, 429 and transport
// failures become *domain.UpstreamUnavailableError; other 4xx responses become
// *domain.UpstreamRejectedError. Context errors pass through unchanged.
package google
