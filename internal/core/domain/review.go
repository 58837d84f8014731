package domain

import "time"

// StarRating is the number of stars a reviewer gave.
type StarRating int

// Star ratings. StarRatingUnspecified is kept for payloads that omit the rating.
const (
	StarRatingUnspecified StarRating = iota
	StarRatingOne
	StarRatingTwo
	StarRatingThree
	StarRatingFour
	StarRatingFive
)

var starRatingNames = map[string]StarRating{
	"ONE":   StarRatingOne,
	"TWO":   StarRatingTwo,
	"THREE": StarRatingThree,
	"FOUR":  StarRatingFour,
	"FIVE":  StarRatingFive,
}

// ParseStarRating maps the provider's enum name (ONE..FIVE) to a StarRating.
// Unknown names yield StarRatingUnspecified.
func ParseStarRating(s string) StarRating {
	return starRatingNames[s]
}

// String returns the provider's enum name.
func (r StarRating) String() string {
	for name, v := range starRatingNames {
		if v == r {
			return name
		}
	}
	return "STAR_RATING_UNSPECIFIED"
}

// IsValid returns true for ONE..FIVE.
func (r StarRating) IsValid() bool {
	return r >= StarRatingOne && r <= StarRatingFive
}

// Review is a customer review on a Location.
// Unique key: (LocationID, ExternalID).
type Review struct {
	// ID is the local identifier (UUID).
	ID string `json:"id"`
	// LocationID is the local ID of the owning location.
	LocationID string `json:"location_id"`
	// ExternalID is the provider's review identifier.
	ExternalID string `json:"external_id"`

	ReviewerName     string     `json:"reviewer_name"`
	ReviewerPhotoURL *string    `json:"reviewer_photo_url,omitempty"`
	Rating           StarRating `json:"rating"`
	Comment          *string    `json:"comment,omitempty"`

	Reply     *string    `json:"reply,omitempty"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`

	// RemoteCreatedAt and RemoteUpdatedAt are the provider's timestamps.
	RemoteCreatedAt time.Time `json:"remote_created_at"`
	RemoteUpdatedAt time.Time `json:"remote_updated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasReply returns true if a reply has been stored.
func (r *Review) HasReply() bool {
	return r.Reply != nil
}

// MergeReview combines a stored review with freshly fetched provider data.
//
// The provider is the sole source of truth for reviewer identity, rating,
// comment and remote timestamps, so those always take the incoming value.
// Reply fields are merged by presence: a nil incoming reply keeps the stored one.
// Local identity (ID, LocationID, CreatedAt) is kept from existing, and so is
// UpdatedAt when the merge changes nothing.
func MergeReview(existing, incoming Review) Review {
	merged := incoming
	merged.ID = existing.ID
	merged.LocationID = existing.LocationID
	merged.CreatedAt = existing.CreatedAt

	if incoming.Reply == nil {
		merged.Reply = existing.Reply
	}
	if incoming.RepliedAt == nil {
		merged.RepliedAt = existing.RepliedAt
	}
	if sameReviewContent(existing, merged) {
		merged.UpdatedAt = existing.UpdatedAt
	}
	return merged
}

func sameReviewContent(a, b Review) bool {
	return a.ReviewerName == b.ReviewerName &&
		equalPtr(a.ReviewerPhotoURL, b.ReviewerPhotoURL) &&
		a.Rating == b.Rating &&
		equalPtr(a.Comment, b.Comment) &&
		equalPtr(a.Reply, b.Reply) &&
		equalTimePtr(a.RepliedAt, b.RepliedAt) &&
		a.RemoteCreatedAt.Equal(b.RemoteCreatedAt) &&
		a.RemoteUpdatedAt.Equal(b.RemoteUpdatedAt)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
