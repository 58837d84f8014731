// Package cli implements the listingsync command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services holds the driving ports the commands call.
// Any port may be nil; commands that need it report it as not configured.
type Services struct {
	Credentials driving.CredentialManager
	Listing     driving.ListingService
	Reviews     driving.ReviewSyncer
	Sync        driving.SyncOrchestrator
	Settings    driving.SettingsService
	Scheduler   driving.Scheduler
}

var (
	credentialManager driving.CredentialManager
	listingService    driving.ListingService
	reviewSyncer      driving.ReviewSyncer
	syncOrchestrator  driving.SyncOrchestrator
	settingsService   driving.SettingsService
	scheduler         driving.Scheduler
)

// errNotConfigured is returned by commands whose services could not be built,
// usually because OAuth client or encryption key settings are missing.
var errNotConfigured = errors.New("not configured: set oauth.client_id, oauth.client_secret " +
	"and security.encryption_key with 'listingsync config set'")

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "listingsync",
	Short: "Sync business listings and reviews from Google Business Profile",
	Long: `listingsync connects Google Business Profile accounts, keeps their
locations and reviews in a local database and publishes owner replies.

Get started:
  listingsync config set oauth.client_id <id>
  listingsync config set oauth.client_secret
  listingsync config set security.encryption_key
  listingsync auth login
  listingsync sync`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// SetServices injects the driving ports used by the commands.
func SetServices(s *Services) {
	credentialManager = s.Credentials
	listingService = s.Listing
	reviewSyncer = s.Reviews
	syncOrchestrator = s.Sync
	settingsService = s.Settings
	scheduler = s.Scheduler
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
