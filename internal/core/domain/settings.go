package domain

import "time"

// OAuthSettings holds the OAuth client registered with the listing provider.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// IsConfigured returns true if a client ID and secret are set.
func (o OAuthSettings) IsConfigured() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// SyncPolicy holds the tunable numbers of the sync pipeline.
// None of the defaults are load-bearing; they are policy.
type SyncPolicy struct {
	// FallbackTokenLifetime is used when the provider omits expires_in.
	FallbackTokenLifetime time.Duration
	// MaxAttempts bounds retries of transient upstream failures (1 = no retry).
	MaxAttempts int
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
	// CallTimeout bounds every single upstream call.
	CallTimeout time.Duration
	// PageSize is requested from paginated list endpoints.
	PageSize int
	// RequestsPerSecond and Burst configure the upstream rate limiter.
	RequestsPerSecond float64
	Burst             int
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is console or json.
	Format string
}

// Settings is the full application configuration.
type Settings struct {
	OAuth OAuthSettings
	Sync  SyncPolicy

	// EncryptionKey is the secret tokens are sealed with at rest.
	EncryptionKey Secret
	// DataDir holds the SQLite database. Empty means ~/.listingsync/data.
	DataDir string

	Scheduler SchedulerConfig
	Logging   LoggingSettings
}

// DefaultSyncPolicy returns the default retry, timeout and paging policy.
func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{
		FallbackTokenLifetime: time.Hour,
		MaxAttempts:           3,
		BaseBackoff:           500 * time.Millisecond,
		CallTimeout:           30 * time.Second,
		PageSize:              50,
		RequestsPerSecond:     5,
		Burst:                 10,
	}
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		OAuth: OAuthSettings{
			RedirectURL: "http://localhost:8085/callback",
			Scopes:      []string{"https://www.googleapis.com/auth/business.manage"},
		},
		Sync:      DefaultSyncPolicy(),
		Scheduler: DefaultSchedulerConfig(),
		Logging:   LoggingSettings{Level: "info", Format: "console"},
	}
}
