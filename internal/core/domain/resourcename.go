package domain

import "strings"

// Collection segments of provider resource names.
const (
	segmentAccounts  = "accounts"
	segmentLocations = "locations"
	segmentReviews   = "reviews"
)

// Resource kinds reported by MalformedResourceNameError.
const (
	ResourceKindAccount  = "account"
	ResourceKindLocation = "location"
	ResourceKindReview   = "review"
)

// LocationName is a parsed location resource name.
// AccountID is empty when the provider returned the bare locations/{l} form.
type LocationName struct {
	AccountID  string
	LocationID string
}

// ReviewName is a parsed review resource name.
type ReviewName struct {
	AccountID  string
	LocationID string
	ReviewID   string
}

// ParseAccountID extracts {a} from accounts/{a}.
func ParseAccountID(name string) (string, error) {
	ids, ok := matchSegments(name, segmentAccounts)
	if !ok {
		return "", &MalformedResourceNameError{Name: name, Kind: ResourceKindAccount}
	}
	return ids[0], nil
}

// ParseLocationName parses accounts/{a}/locations/{l} or locations/{l}.
func ParseLocationName(name string) (LocationName, error) {
	if ids, ok := matchSegments(name, segmentAccounts, segmentLocations); ok {
		return LocationName{AccountID: ids[0], LocationID: ids[1]}, nil
	}
	if ids, ok := matchSegments(name, segmentLocations); ok {
		return LocationName{LocationID: ids[0]}, nil
	}
	return LocationName{}, &MalformedResourceNameError{Name: name, Kind: ResourceKindLocation}
}

// ParseLocationID extracts {l} from a location resource name.
func ParseLocationID(name string) (string, error) {
	parsed, err := ParseLocationName(name)
	if err != nil {
		return "", err
	}
	return parsed.LocationID, nil
}

// ParseReviewName parses accounts/{a}/locations/{l}/reviews/{r}.
func ParseReviewName(name string) (ReviewName, error) {
	ids, ok := matchSegments(name, segmentAccounts, segmentLocations, segmentReviews)
	if !ok {
		return ReviewName{}, &MalformedResourceNameError{Name: name, Kind: ResourceKindReview}
	}
	return ReviewName{AccountID: ids[0], LocationID: ids[1], ReviewID: ids[2]}, nil
}

// ParseReviewID extracts {r} from a review resource name.
func ParseReviewID(name string) (string, error) {
	parsed, err := ParseReviewName(name)
	if err != nil {
		return "", err
	}
	return parsed.ReviewID, nil
}

// FormatAccountName returns accounts/{accountID}.
func FormatAccountName(accountID string) string {
	return segmentAccounts + "/" + accountID
}

// FormatLocationParent returns the parent path used to list an account's locations.
func FormatLocationParent(accountID string) string {
	return FormatAccountName(accountID)
}

// FormatReviewParent returns accounts/{accountID}/locations/{locationID},
// the parent path used to list a location's reviews.
func FormatReviewParent(accountID, locationID string) string {
	return FormatAccountName(accountID) + "/" + segmentLocations + "/" + locationID
}

// FormatReviewName returns accounts/{a}/locations/{l}/reviews/{r}.
func FormatReviewName(accountID, locationID, reviewID string) string {
	return FormatReviewParent(accountID, locationID) + "/" + segmentReviews + "/" + reviewID
}

// matchSegments checks name against collection/{id} pairs in order and
// returns the ids. Every id must be non-empty.
func matchSegments(name string, collections ...string) ([]string, bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 2*len(collections) {
		return nil, false
	}

	ids := make([]string, 0, len(collections))
	for i, collection := range collections {
		if parts[2*i] != collection {
			return nil, false
		}
		id := parts[2*i+1]
		if strings.TrimSpace(id) == "" {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
