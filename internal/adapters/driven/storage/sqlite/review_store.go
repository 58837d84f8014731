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

// reviewStore implements driven.ReviewStore.
type reviewStore struct {
	store *Store
}

var _ driven.ReviewStore = (*reviewStore)(nil)

type reviewRow struct {
	ID               string         `db:"id"`
	LocationID       string         `db:"location_id"`
	ExternalID       string         `db:"external_id"`
	ReviewerName     string         `db:"reviewer_name"`
	ReviewerPhotoURL sql.NullString `db:"reviewer_photo_url"`
	Rating           int            `db:"rating"`
	Comment          sql.NullString `db:"comment"`
	Reply            sql.NullString `db:"reply"`
	RepliedAt        sql.NullString `db:"replied_at"`
	RemoteCreatedAt  sql.NullString `db:"remote_created_at"`
	RemoteUpdatedAt  sql.NullString `db:"remote_updated_at"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
}

const reviewColumns = `id, location_id, external_id, reviewer_name, reviewer_photo_url, rating,
	comment, reply, replied_at, remote_created_at, remote_updated_at, created_at, updated_at`

// UpsertReview creates or updates a review by (LocationID, ExternalID).
// Provider-owned columns take the incoming value; reply columns are kept
// when the incoming review has none. The merged row is copied back into review.
func (s *reviewStore) UpsertReview(ctx context.Context, review *domain.Review) (bool, error) {
	if review == nil || review.LocationID == "" || review.ExternalID == "" || review.ID == "" {
		return false, domain.ErrInvalidInput
	}

	var created bool
	err := s.store.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing string
		err := tx.GetContext(ctx, &existing,
			"SELECT id FROM reviews WHERE location_id = ? AND external_id = ?",
			review.LocationID, review.ExternalID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
		case err != nil:
			return err
		}

		var row reviewRow
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO reviews (`+reviewColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(location_id, external_id) DO UPDATE SET
				updated_at = CASE
					WHEN reviews.reviewer_name IS excluded.reviewer_name
						AND reviews.reviewer_photo_url IS excluded.reviewer_photo_url
						AND reviews.rating IS excluded.rating
						AND reviews.comment IS excluded.comment
						AND (excluded.reply IS NULL OR reviews.reply IS excluded.reply)
						AND (excluded.replied_at IS NULL OR reviews.replied_at IS excluded.replied_at)
						AND reviews.remote_created_at IS excluded.remote_created_at
						AND reviews.remote_updated_at IS excluded.remote_updated_at
					THEN reviews.updated_at
					ELSE excluded.updated_at
				END,
				reviewer_name = excluded.reviewer_name,
				reviewer_photo_url = excluded.reviewer_photo_url,
				rating = excluded.rating,
				comment = excluded.comment,
				reply = COALESCE(excluded.reply, reviews.reply),
				replied_at = COALESCE(excluded.replied_at, reviews.replied_at),
				remote_created_at = excluded.remote_created_at,
				remote_updated_at = excluded.remote_updated_at
			RETURNING `+reviewColumns,
			review.ID, review.LocationID, review.ExternalID, review.ReviewerName,
			stringPtr(review.ReviewerPhotoURL), int(review.Rating), stringPtr(review.Comment),
			stringPtr(review.Reply), formatTimePtr(review.RepliedAt),
			formatNullableTime(review.RemoteCreatedAt), formatNullableTime(review.RemoteUpdatedAt),
			formatTime(review.CreatedAt), formatTime(review.UpdatedAt),
		).StructScan(&row)
		if err != nil {
			return err
		}

		*review = row.toDomain()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("saving review: %w", err)
	}
	return created, nil
}

// GetReview retrieves a review by ID.
func (s *reviewStore) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	var row reviewRow
	err := s.store.db.GetContext(ctx, &row, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	review := row.toDomain()
	return &review, nil
}

// ListByLocation returns a location's reviews, newest first.
func (s *reviewStore) ListByLocation(ctx context.Context, locationID string) ([]domain.Review, error) {
	var rows []reviewRow
	err := s.store.db.SelectContext(ctx, &rows, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE location_id = ?
		ORDER BY remote_created_at DESC, external_id
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toDomain())
	}
	return reviews, nil
}

// UpdateReply sets the reply of a stored review.
func (s *reviewStore) UpdateReply(ctx context.Context, id, reply string, repliedAt time.Time) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE reviews SET reply = ?, replied_at = ? WHERE id = ?", reply, formatTime(repliedAt), id)
	if err != nil {
		return fmt.Errorf("updating reply: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r reviewRow) toDomain() domain.Review {
	return domain.Review{
		ID:               r.ID,
		LocationID:       r.LocationID,
		ExternalID:       r.ExternalID,
		ReviewerName:     r.ReviewerName,
		ReviewerPhotoURL: ptrString(r.ReviewerPhotoURL),
		Rating:           domain.StarRating(r.Rating),
		Comment:          ptrString(r.Comment),
		Reply:            ptrString(r.Reply),
		RepliedAt:        parseTimePtr(r.RepliedAt),
		RemoteCreatedAt:  parseNullableTime(r.RemoteCreatedAt),
		RemoteUpdatedAt:  parseNullableTime(r.RemoteUpdatedAt),
		CreatedAt:        parseTime(r.CreatedAt),
		UpdatedAt:        parseTime(r.UpdatedAt),
	}
}
