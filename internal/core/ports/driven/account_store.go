package driven

import (
	"context"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// AccountStore persists external accounts together with their credentials.
// Implementations must seal tokens at rest; see TokenCipher.
type AccountStore interface {
	// UpsertAccount creates or updates the account keyed by (UserID, ExternalID).
	// On update the stored ID and CreatedAt are kept and written back into account.
	UpsertAccount(ctx context.Context, account *domain.Account) error

	// GetAccount retrieves an account by local ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	// GetAccountByExternalID retrieves an account by its natural key.
	// Returns domain.ErrNotFound if it does not exist.
	GetAccountByExternalID(ctx context.Context, userID, externalID string) (*domain.Account, error)

	// ListAccounts returns all accounts owned by userID, or every account when userID is empty.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)

	// SaveCredentials replaces the credentials and state of an existing account.
	SaveCredentials(ctx context.Context, accountID string, creds domain.Credentials, state domain.CredentialState) error
}
