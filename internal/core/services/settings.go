package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyOAuthClientID     = "oauth.client_id"
	keyOAuthClientSecret = "oauth.client_secret"
	keyOAuthRedirectURL  = "oauth.redirect_url"
	keyOAuthScopes       = "oauth.scopes"
	keyEncryptionKey     = "security.encryption_key"
	keyDataDir           = "storage.data_dir"

	keyFallbackLifetime = "sync.fallback_token_lifetime"
	keyMaxAttempts      = "sync.max_attempts"
	keyBaseBackoff      = "sync.base_backoff"
	keyCallTimeout      = "sync.call_timeout"
	keyPageSize         = "sync.page_size"
	keyRequestsPerSec   = "sync.requests_per_second"
	keyBurst            = "sync.burst"

	keySchedulerEnabled = "scheduler.enabled"
	keySyncInterval     = "scheduler.account_sync_interval"
	keyRefreshInterval  = "scheduler.token_refresh_interval"

	keyLogLevel  = "logging.level"
	keyLogFormat = "logging.format"
)

type valueKind int

const (
	kindString valueKind = iota
	kindSecret
	kindList
	kindInt
	kindFloat
	kindBool
	kindDuration
)

var settingKinds = map[string]valueKind{
	keyOAuthClientID:     kindString,
	keyOAuthClientSecret: kindSecret,
	keyOAuthRedirectURL:  kindString,
	keyOAuthScopes:       kindList,
	keyEncryptionKey:     kindSecret,
	keyDataDir:           kindString,
	keyFallbackLifetime:  kindDuration,
	keyMaxAttempts:       kindInt,
	keyBaseBackoff:       kindDuration,
	keyCallTimeout:       kindDuration,
	keyPageSize:          kindInt,
	keyRequestsPerSec:    kindFloat,
	keyBurst:             kindInt,
	keySchedulerEnabled:  kindBool,
	keySyncInterval:      kindDuration,
	keyRefreshInterval:   kindDuration,
	keyLogLevel:          kindString,
	keyLogFormat:         kindString,
}

// SettingsService types the configuration file into domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns the configured settings. Missing or unparsable values fall back to defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		OAuth: domain.OAuthSettings{
			ClientID:     s.configStore.GetString(keyOAuthClientID),
			ClientSecret: s.configStore.GetString(keyOAuthClientSecret),
			RedirectURL:  s.getString(keyOAuthRedirectURL, d.OAuth.RedirectURL),
			Scopes:       d.OAuth.Scopes,
		},
		Sync: domain.SyncPolicy{
			FallbackTokenLifetime: s.getDuration(keyFallbackLifetime, d.Sync.FallbackTokenLifetime),
			MaxAttempts:           s.getInt(keyMaxAttempts, d.Sync.MaxAttempts),
			BaseBackoff:           s.getDuration(keyBaseBackoff, d.Sync.BaseBackoff),
			CallTimeout:           s.getDuration(keyCallTimeout, d.Sync.CallTimeout),
			PageSize:              s.getInt(keyPageSize, d.Sync.PageSize),
			RequestsPerSecond:     s.getFloat(keyRequestsPerSec, d.Sync.RequestsPerSecond),
			Burst:                 s.getInt(keyBurst, d.Sync.Burst),
		},
		EncryptionKey: domain.Secret(s.configStore.GetString(keyEncryptionKey)),
		DataDir:       s.configStore.GetString(keyDataDir),
		Scheduler:     s.schedulerConfig(d.Scheduler),
		Logging: domain.LoggingSettings{
			Level:  s.getString(keyLogLevel, d.Logging.Level),
			Format: s.getString(keyLogFormat, d.Logging.Format),
		},
	}
	if scopes := s.configStore.GetStringSlice(keyOAuthScopes); len(scopes) > 0 {
		settings.OAuth.Scopes = scopes
	}

	return settings, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Keys lists every supported key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set parses value according to key and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(key, kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func parseSetting(key string, kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, fmt.Errorf("must be at least 1")
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		if f <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		return f, nil
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return d.String(), nil
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}

	switch key {
	case keyLogLevel:
		if !slices.Contains([]string{"debug", "info", "warn", "error"}, value) {
			return nil, fmt.Errorf("must be one of debug, info, warn, error")
		}
	case keyLogFormat:
		if value != "console" && value != "json" {
			return nil, fmt.Errorf("must be console or json")
		}
	}
	return value, nil
}

// Value returns the stored value of key as text. Secrets are redacted.
func (s *SettingsService) Value(key string) (string, bool) {
	kind, ok := settingKinds[key]
	if !ok {
		return "", false
	}
	raw, exists := s.configStore.Get(key)
	if !exists {
		return "", false
	}

	switch kind {
	case kindSecret:
		return domain.Secret(s.configStore.GetString(key)).String(), true
	case kindList:
		return strings.Join(s.configStore.GetStringSlice(key), ","), true
	default:
		return fmt.Sprint(raw), true
	}
}

// Validate checks that the provider and token encryption are configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.OAuth.IsConfigured() {
		return fmt.Errorf("%w: %s and %s must be set", domain.ErrInvalidInput, keyOAuthClientID, keyOAuthClientSecret)
	}
	if settings.EncryptionKey.IsEmpty() {
		return fmt.Errorf("%w: %s must be set", domain.ErrInvalidInput, keyEncryptionKey)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) schedulerConfig(defaults domain.SchedulerConfig) domain.SchedulerConfig {
	cfg := domain.SchedulerConfig{
		Enabled:     s.getBool(keySchedulerEnabled, defaults.Enabled),
		TaskConfigs: make(map[string]domain.TaskConfig, len(defaults.TaskConfigs)),
	}
	intervals := map[string]string{
		domain.TaskIDAccountSync:  keySyncInterval,
		domain.TaskIDOAuthRefresh: keyRefreshInterval,
	}
	for taskID, taskCfg := range defaults.TaskConfigs {
		if key, ok := intervals[taskID]; ok {
			taskCfg.Interval = s.getDuration(key, taskCfg.Interval)
		}
		// A zero interval disables the task.
		taskCfg.Enabled = taskCfg.Interval > 0
		cfg.TaskConfigs[taskID] = taskCfg
	}
	return cfg
}
