package oauth

import (
	"context"
	"fmt"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// LoginRequest configures one browser login.
type LoginRequest struct {
	// UserID is the local user the account will belong to.
	UserID string
	// RedirectURL must match the redirect URI registered with the provider.
	RedirectURL string
	// Open shows the consent URL to the user. Usually OpenBrowser.
	Open func(url string) error
}

// Login runs the authorization code flow with PKCE: it serves the callback,
// sends the user to the consent page, waits for the redirect and exchanges
// the code. The deadline of ctx bounds the whole flow.
func Login(ctx context.Context, creds driving.CredentialManager, req LoginRequest) (*domain.Account, error) {
	state, err := NewState()
	if err != nil {
		return nil, err
	}
	verifier := NewCodeVerifier()

	server, err := NewCallbackServer(req.RedirectURL, state)
	if err != nil {
		return nil, err
	}
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("oauth: stopping callback server: %v", err)
		}
	}()

	authURL := creds.AuthCodeURL(state, CodeChallenge(verifier))
	if req.Open != nil {
		if err := req.Open(authURL); err != nil {
			logger.Warn("oauth: could not open browser: %v", err)
		}
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}

	return creds.ExchangeAuthorizationCode(ctx, req.UserID, code, verifier)
}
