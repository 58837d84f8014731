package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// Ensure AccountStore implements the interface.
var _ driven.AccountStore = (*AccountStore)(nil)

// AccountStore is an in-memory implementation of driven.AccountStore.
// Tokens are held in plaintext; it is not meant for production data.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	byKey    map[string]string
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]domain.Account),
		byKey:    make(map[string]string),
	}
}

func accountKey(userID, externalID string) string {
	return userID + "\x00" + externalID
}

// UpsertAccount creates or updates an account by (UserID, ExternalID).
func (s *AccountStore) UpsertAccount(_ context.Context, account *domain.Account) error {
	if account == nil || account.ExternalID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey(account.UserID, account.ExternalID)
	if id, ok := s.byKey[key]; ok {
		existing := s.accounts[id]
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
	} else if account.ID == "" {
		return domain.ErrInvalidInput
	}

	s.accounts[account.ID] = *account
	s.byKey[key] = account.ID
	return nil
}

// GetAccount retrieves an account by ID.
func (s *AccountStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &account, nil
}

// GetAccountByExternalID retrieves an account by its natural key.
func (s *AccountStore) GetAccountByExternalID(_ context.Context, userID, externalID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[accountKey(userID, externalID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	account := s.accounts[id]
	return &account, nil
}

// ListAccounts returns accounts ordered by external ID.
func (s *AccountStore) ListAccounts(_ context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if userID == "" || a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return strings.Compare(a.ExternalID, b.ExternalID)
	})
	return accounts, nil
}

// SaveCredentials replaces an account's credentials and state.
func (s *AccountStore) SaveCredentials(
	_ context.Context,
	accountID string,
	creds domain.Credentials,
	state domain.CredentialState,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	account.Credentials = creds
	account.State = state
	s.accounts[accountID] = account
	return nil
}
