package driving

import "github.com/custodia-labs/listingsync/internal/core/domain"

// SettingsService reads and edits typed application settings.
type SettingsService interface {
	// Get returns the current settings with defaults applied.
	Get() (*domain.Settings, error)

	// GetDefaults returns the built-in defaults.
	GetDefaults() domain.Settings

	// Set validates and stores a single key.
	Set(key, value string) error

	// Value returns the configured value of key as text.
	Value(key string) (string, bool)

	// Keys lists every supported key.
	Keys() []string

	// Validate checks the settings needed to talk to the provider.
	Validate() error
}
