package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// tokenSource serves one access token. Refresh is owned by the credential
// manager, so the Google clients never refresh on their own.
func tokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
}

// authorizedClient wraps the base client so every request carries accessToken.
func (c *Client) authorizedClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, tokenSource(accessToken))
}
