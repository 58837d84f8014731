package google

import (
	"net/http"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// Base URLs of the generated v1 clients. The generated packages keep these
// unexported, so the values are mirrored here.
const (
	defaultAccountsEndpoint    = "https://mybusinessaccountmanagement.googleapis.com/"
	defaultInformationEndpoint = "https://mybusinessbusinessinformation.googleapis.com/"
)

// DefaultReviewsEndpoint is the base URL of the v4 reviews API.
const DefaultReviewsEndpoint = "https://mybusiness.googleapis.com/v4/"

// Per-endpoint page size limits.
const (
	maxAccountsPageSize  = 20
	maxLocationsPageSize = 100
	maxReviewsPageSize   = 50
)

// locationReadMask lists the location fields the syncer needs.
const locationReadMask = "name,title,storefrontAddress,phoneNumbers,websiteUri"

// Config holds Google listing client configuration.
type Config struct {
	// AccountsEndpoint is the Account Management API base URL.
	AccountsEndpoint string
	// InformationEndpoint is the Business Information API base URL.
	InformationEndpoint string
	// ReviewsEndpoint is the v4 API base URL, ending in "/".
	ReviewsEndpoint string

	// PageSize is requested from list endpoints, capped per endpoint.
	PageSize  int
	RateLimit RateLimitConfig

	// HTTPClient is the base client; the bearer token is added per call.
	HTTPClient *http.Client
}

// DefaultConfig returns the production endpoints and default policy.
func DefaultConfig() Config {
	return ConfigFromPolicy(domain.DefaultSyncPolicy())
}

// ConfigFromPolicy returns the production endpoints with paging and rate
// limits taken from policy.
func ConfigFromPolicy(policy domain.SyncPolicy) Config {
	return Config{
		AccountsEndpoint:    defaultAccountsEndpoint,
		InformationEndpoint: defaultInformationEndpoint,
		ReviewsEndpoint:     DefaultReviewsEndpoint,
		PageSize:            policy.PageSize,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: policy.RequestsPerSecond,
			BurstSize:         policy.Burst,
		},
		HTTPClient: http.DefaultClient,
	}
}

func pageSize(configured, maxSize int) int64 {
	if configured <= 0 || configured > maxSize {
		return int64(maxSize)
	}
	return int64(configured)
}
