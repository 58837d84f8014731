package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// CredentialManager owns the OAuth credential lifecycle of external accounts.
type CredentialManager interface {
	// AuthCodeURL builds the consent URL the user must visit.
	// codeChallenge may be empty when PKCE is not used.
	AuthCodeURL(state, codeChallenge string) string

	// ExchangeAuthorizationCode trades a code for tokens and stores the
	// primary account reachable with them, keyed by (userID, external ID).
	// codeVerifier may be empty when PKCE is not used.
	ExchangeAuthorizationCode(ctx context.Context, userID, code, codeVerifier string) (*domain.Account, error)

	// EnsureValid returns the account unchanged while its access token is
	// unexpired, and refreshes it otherwise.
	EnsureValid(ctx context.Context, account *domain.Account) (*domain.Account, error)

	// Refresh obtains a new access token, persists it and returns the updated account.
	Refresh(ctx context.Context, account *domain.Account) (*domain.Account, error)

	// RefreshExpiring refreshes every authorized account whose token expires
	// within the given window. Returns the number refreshed.
	RefreshExpiring(ctx context.Context, within time.Duration) (int, error)
}
