package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// locationStore implements driven.LocationStore.
type locationStore struct {
	store *Store
}

var _ driven.LocationStore = (*locationStore)(nil)

type locationRow struct {
	ID           string         `db:"id"`
	AccountID    string         `db:"account_id"`
	ExternalID   string         `db:"external_id"`
	DisplayName  string         `db:"display_name"`
	Address      string         `db:"address"`
	Phone        sql.NullString `db:"phone"`
	Website      sql.NullString `db:"website"`
	LastSyncedAt sql.NullString `db:"last_synced_at"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

const locationColumns = `id, account_id, external_id, display_name, address, phone, website,
	last_synced_at, created_at, updated_at`

// UpsertLocation creates or updates a location by (AccountID, ExternalID).
// LastSyncedAt is never written here; the stored value is copied back into location.
func (s *locationStore) UpsertLocation(ctx context.Context, location *domain.Location) (bool, error) {
	if location == nil || location.AccountID == "" || location.ExternalID == "" || location.ID == "" {
		return false, domain.ErrInvalidInput
	}

	var created bool
	err := s.store.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing string
		err := tx.GetContext(ctx, &existing,
			"SELECT id FROM locations WHERE account_id = ? AND external_id = ?",
			location.AccountID, location.ExternalID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
		case err != nil:
			return err
		}

		var stored struct {
			ID           string         `db:"id"`
			CreatedAt    string         `db:"created_at"`
			UpdatedAt    string         `db:"updated_at"`
			LastSyncedAt sql.NullString `db:"last_synced_at"`
		}
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO locations (`+locationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
			ON CONFLICT(account_id, external_id) DO UPDATE SET
				updated_at = CASE
					WHEN locations.display_name IS excluded.display_name
						AND locations.address IS excluded.address
						AND locations.phone IS excluded.phone
						AND locations.website IS excluded.website
					THEN locations.updated_at
					ELSE excluded.updated_at
				END,
				display_name = excluded.display_name,
				address = excluded.address,
				phone = excluded.phone,
				website = excluded.website
			RETURNING id, created_at, updated_at, last_synced_at
		`, location.ID, location.AccountID, location.ExternalID, location.DisplayName, location.Address,
			stringPtr(location.Phone), stringPtr(location.Website),
			formatTime(location.CreatedAt), formatTime(location.UpdatedAt),
		).StructScan(&stored)
		if err != nil {
			return err
		}

		location.ID = stored.ID
		location.CreatedAt = parseTime(stored.CreatedAt)
		location.UpdatedAt = parseTime(stored.UpdatedAt)
		location.LastSyncedAt = parseTimePtr(stored.LastSyncedAt)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("saving location: %w", err)
	}
	return created, nil
}

// GetLocation retrieves a location by ID.
func (s *locationStore) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	var row locationRow
	err := s.store.db.GetContext(ctx, &row, "SELECT "+locationColumns+" FROM locations WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	location := row.toDomain()
	return &location, nil
}

// ListByAccount returns an account's locations ordered by external ID.
func (s *locationStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Location, error) {
	var rows []locationRow
	err := s.store.db.SelectContext(ctx, &rows,
		"SELECT "+locationColumns+" FROM locations WHERE account_id = ? ORDER BY external_id", accountID)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}

	locations := make([]domain.Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, row.toDomain())
	}
	return locations, nil
}

// MarkSynced sets LastSyncedAt.
func (s *locationStore) MarkSynced(ctx context.Context, id string, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE locations SET last_synced_at = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return fmt.Errorf("marking location synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r locationRow) toDomain() domain.Location {
	return domain.Location{
		ID:           r.ID,
		AccountID:    r.AccountID,
		ExternalID:   r.ExternalID,
		DisplayName:  r.DisplayName,
		Address:      r.Address,
		Phone:        ptrString(r.Phone),
		Website:      ptrString(r.Website),
		LastSyncedAt: parseTimePtr(r.LastSyncedAt),
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}
