package driven

import (
	"context"
	"time"
)

// Page is one page of a paginated list call.
type Page[T any] struct {
	Items []T
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// RemoteAccount is an account as reported by the provider.
type RemoteAccount struct {
	// Name is the resource name accounts/{a}.
	Name        string
	DisplayName string
	Type        string
}

// RemoteAddress is a provider postal address.
type RemoteAddress struct {
	AddressLines       []string
	Locality           string
	AdministrativeArea string
	PostalCode         string
}

// RemoteLocation is a location as reported by the provider.
type RemoteLocation struct {
	// Name is locations/{l} or accounts/{a}/locations/{l}.
	Name    string
	Title   string
	Address *RemoteAddress
	Phone   string
	Website string
}

// RemoteReply is the owner's reply to a review.
type RemoteReply struct {
	Comment    string
	UpdateTime time.Time
}

// RemoteReview is a review as reported by the provider.
type RemoteReview struct {
	// Name is accounts/{a}/locations/{l}/reviews/{r}.
	Name             string
	ReviewerName     string
	ReviewerPhotoURL string
	// StarRating is the provider enum name (ONE..FIVE).
	StarRating string
	Comment    string
	CreateTime time.Time
	UpdateTime time.Time
	// Reply is nil when the payload carries no reply.
	Reply *RemoteReply
}

// ListingClient reads and writes the provider's business-listing API.
// Every call takes the bearer access token to use.
//
// Error contract is the same as AuthorizationClient: rejections are
// *domain.UpstreamRejectedError, transient failures *domain.UpstreamUnavailableError.
type ListingClient interface {
	// ListAccounts returns one page of accounts the token can reach.
	ListAccounts(ctx context.Context, accessToken, pageToken string) (*Page[RemoteAccount], error)

	// ListLocations returns one page of locations under accounts/{a}.
	ListLocations(ctx context.Context, accessToken, accountName, pageToken string) (*Page[RemoteLocation], error)

	// ListReviews returns one page of reviews under accounts/{a}/locations/{l}.
	ListReviews(ctx context.Context, accessToken, locationName, pageToken string) (*Page[RemoteReview], error)

	// PublishReply creates or replaces the reply on accounts/{a}/locations/{l}/reviews/{r}.
	PublishReply(ctx context.Context, accessToken, reviewName, text string) (*RemoteReply, error)
}
