package domain

import "time"

// AccountType classifies an external business-listing account.
type AccountType string

// Known account types. Anything else the provider reports maps to AccountTypeUnknown.
const (
	AccountTypePersonal      AccountType = "PERSONAL"
	AccountTypeLocationGroup AccountType = "LOCATION_GROUP"
	AccountTypeUnknown       AccountType = "UNKNOWN"
)

// ParseAccountType maps a provider type string onto an AccountType.
func ParseAccountType(s string) AccountType {
	switch AccountType(s) {
	case AccountTypePersonal:
		return AccountTypePersonal
	case AccountTypeLocationGroup:
		return AccountTypeLocationGroup
	default:
		return AccountTypeUnknown
	}
}

// CredentialState tracks where an account sits in the credential lifecycle.
type CredentialState string

// Credential states.
//
// An account is AUTHORIZED after a successful code exchange or refresh.
// It moves to NEEDS_REAUTH when refresh fails permanently and stays there
// until a human re-runs the authorization flow.
const (
	CredentialStateAuthorized  CredentialState = "AUTHORIZED"
	CredentialStateNeedsReauth CredentialState = "NEEDS_REAUTH"
)

// Credentials holds the OAuth material for one external account.
type Credentials struct {
	// AccessToken is the bearer token for API access.
	AccessToken Secret `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	// Empty when the account was never granted offline access.
	RefreshToken Secret `json:"refresh_token,omitempty"`
	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry"`
}

// IsExpiredAt reports whether the access token is no longer valid at now.
func (c Credentials) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.Expiry)
}

// HasRefreshToken returns true if a refresh token is available.
func (c Credentials) HasRefreshToken() bool {
	return !c.RefreshToken.IsEmpty()
}

// Account is the business's identity on the external listing platform.
// It is distinct from the local user that owns it.
type Account struct {
	// ID is the local identifier (UUID).
	ID string `json:"id"`
	// UserID is the owning local user.
	UserID string `json:"user_id"`
	// ExternalID is the provider's account identifier (the trailing segment of accounts/{id}).
	ExternalID string `json:"external_id"`
	// DisplayName is the provider's account name.
	DisplayName string `json:"display_name"`
	// Type is the provider's account type.
	Type AccountType `json:"type"`

	Credentials Credentials     `json:"credentials"`
	State       CredentialState `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResourceName returns accounts/{ExternalID}.
func (a *Account) ResourceName() string {
	return FormatAccountName(a.ExternalID)
}

// NeedsReauth returns true if the account cannot be refreshed without a new authorization.
func (a *Account) NeedsReauth() bool {
	return a.State == CredentialStateNeedsReauth
}
