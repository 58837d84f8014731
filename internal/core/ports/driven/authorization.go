package driven

import "context"

// TokenGrant is the result of a successful token request.
type TokenGrant struct {
	AccessToken string
	// RefreshToken is empty when the provider did not issue or rotate one.
	RefreshToken string
	// ExpiresInSeconds is nil when the provider omitted expires_in.
	ExpiresInSeconds *int64
}

// AuthorizationClient talks to the provider's OAuth2 token endpoint.
//
// Implementations return *domain.UpstreamRejectedError when the provider
// answers with an error payload and *domain.UpstreamUnavailableError for
// transport failures, timeouts and 5xx responses.
type AuthorizationClient interface {
	// ExchangeCode trades an authorization code (and optional PKCE verifier) for tokens.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenGrant, error)

	// ExchangeRefreshToken obtains a new access token.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error)

	// AuthCodeURL returns the consent URL for state and an optional S256 code challenge.
	AuthCodeURL(state, codeChallenge string) string
}
