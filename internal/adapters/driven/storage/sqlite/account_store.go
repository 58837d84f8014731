package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// accountStore implements driven.AccountStore.
type accountStore struct {
	store *Store
}

var _ driven.AccountStore = (*accountStore)(nil)

type accountRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	ExternalID   string         `db:"external_id"`
	DisplayName  string         `db:"display_name"`
	Type         string         `db:"type"`
	AccessToken  []byte         `db:"access_token"`
	RefreshToken []byte         `db:"refresh_token"`
	Expiry       sql.NullString `db:"expiry"`
	State        string         `db:"state"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

const accountColumns = `id, user_id, external_id, display_name, type, access_token,
	refresh_token, expiry, state, created_at, updated_at`

// UpsertAccount creates or updates an account by (UserID, ExternalID).
// The stored ID and CreatedAt are written back into account.
func (s *accountStore) UpsertAccount(ctx context.Context, account *domain.Account) error {
	if account == nil || account.ExternalID == "" || account.ID == "" {
		return domain.ErrInvalidInput
	}

	access, err := s.store.seal(account.Credentials.AccessToken)
	if err != nil {
		return fmt.Errorf("sealing access token: %w", err)
	}
	refresh, err := s.store.seal(account.Credentials.RefreshToken)
	if err != nil {
		return fmt.Errorf("sealing refresh token: %w", err)
	}

	var stored struct {
		ID        string `db:"id"`
		CreatedAt string `db:"created_at"`
	}
	err = s.store.db.QueryRowxContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, external_id) DO UPDATE SET
			display_name = excluded.display_name,
			type = excluded.type,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			state = excluded.state,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, account.ID, account.UserID, account.ExternalID, account.DisplayName, string(account.Type),
		access, refresh, formatNullableTime(account.Credentials.Expiry), string(account.State),
		formatTime(account.CreatedAt), formatTime(account.UpdatedAt),
	).StructScan(&stored)
	if err != nil {
		return fmt.Errorf("saving account: %w", err)
	}

	account.ID = stored.ID
	account.CreatedAt = parseTime(stored.CreatedAt)
	return nil
}

// GetAccount retrieves an account by ID.
func (s *accountStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var row accountRow
	err := s.store.db.GetContext(ctx, &row, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.toDomain(row)
}

// GetAccountByExternalID retrieves an account by its natural key.
func (s *accountStore) GetAccountByExternalID(ctx context.Context, userID, externalID string) (*domain.Account, error) {
	var row accountRow
	err := s.store.db.GetContext(ctx, &row,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? AND external_id = ?", userID, externalID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.toDomain(row)
}

// ListAccounts returns accounts ordered by external ID. An empty userID lists every account.
func (s *accountStore) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	var rows []accountRow
	err := s.store.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+` FROM accounts
		WHERE ? = '' OR user_id = ?
		ORDER BY external_id
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		account, err := s.toDomain(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

// SaveCredentials replaces an account's credentials and state.
func (s *accountStore) SaveCredentials(
	ctx context.Context,
	accountID string,
	creds domain.Credentials,
	state domain.CredentialState,
) error {
	access, err := s.store.seal(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("sealing access token: %w", err)
	}
	refresh, err := s.store.seal(creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("sealing refresh token: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE accounts
		SET access_token = ?, refresh_token = ?, expiry = ?, state = ?
		WHERE id = ?
	`, access, refresh, formatNullableTime(creds.Expiry), string(state), accountID)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *accountStore) toDomain(row accountRow) (*domain.Account, error) {
	access, err := s.store.open(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("opening access token of account %s: %w", row.ID, err)
	}
	refresh, err := s.store.open(row.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("opening refresh token of account %s: %w", row.ID, err)
	}

	return &domain.Account{
		ID:          row.ID,
		UserID:      row.UserID,
		ExternalID:  row.ExternalID,
		DisplayName: row.DisplayName,
		Type:        domain.AccountType(row.Type),
		Credentials: domain.Credentials{
			AccessToken:  access,
			RefreshToken: refresh,
			Expiry:       parseNullableTime(row.Expiry),
		},
		State:     domain.CredentialState(row.State),
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}
