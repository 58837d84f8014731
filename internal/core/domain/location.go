package domain

import (
	"strings"
	"time"
)

// PostalAddress is the structured address a provider reports for a location.
type PostalAddress struct {
	AddressLines       []string
	Locality           string
	AdministrativeArea string
	PostalCode         string
}

// Format renders the address as a single line: address lines, locality,
// administrative area and postal code joined by ", ". Blank parts are skipped.
func (a PostalAddress) Format() string {
	parts := make([]string, 0, len(a.AddressLines)+3)
	for _, line := range a.AddressLines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	for _, part := range []string{a.Locality, a.AdministrativeArea, a.PostalCode} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// Location is a business location owned by exactly one Account.
// Unique key: (AccountID, ExternalID).
type Location struct {
	// ID is the local identifier (UUID).
	ID string `json:"id"`
	// AccountID is the local ID of the owning account.
	AccountID string `json:"account_id"`
	// ExternalID is the provider's location identifier.
	ExternalID string `json:"external_id"`

	DisplayName string  `json:"display_name"`
	Address     string  `json:"address"`
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`

	// LastSyncedAt is set after a complete review sync of this location.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SameListing reports whether two locations carry the same provider data.
func (l *Location) SameListing(other *Location) bool {
	return l.DisplayName == other.DisplayName &&
		l.Address == other.Address &&
		equalPtr(l.Phone, other.Phone) &&
		equalPtr(l.Website, other.Website)
}
