// Command listingsync syncs Google Business Profile listings and reviews.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/listingsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/listingsync/internal/adapters/driven/crypto"
	"github.com/custodia-labs/listingsync/internal/adapters/driven/oauth"
	"github.com/custodia-labs/listingsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/listingsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/listingsync/internal/connectors/google"
	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/services"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	if err := logger.Configure(settings.Logging.Level, settings.Logging.Format); err != nil {
		logger.Warn("ignoring logging settings: %v", err)
	}

	cli.SetVersion(version)
	svc := &cli.Services{Settings: settingsService}

	if err := settingsService.Validate(); err != nil {
		// config commands still work; everything else reports it is not configured.
		logger.Debug("services not wired: %v", err)
		cli.SetServices(svc)
		return cli.Execute(ctx)
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing database: %v", err)
		}
	}()

	wire(svc, settings, store)
	cli.SetServices(svc)
	return cli.Execute(ctx)
}

func openStore(settings *domain.Settings) (*sqlite.Store, error) {
	cipher, err := crypto.NewCipher(settings.EncryptionKey.Reveal())
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	store, err := sqlite.NewStore(settings.DataDir, cipher)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

func wire(svc *cli.Services, settings *domain.Settings, store *sqlite.Store) {
	opts := []services.Option{services.WithPolicy(settings.Sync)}

	authClient := oauth.NewClient(settings.OAuth)
	listingClient := google.NewClient(google.ConfigFromPolicy(settings.Sync))

	accounts := store.AccountStore()
	locations := store.LocationStore()
	reviews := store.ReviewStore()

	credentials := services.NewCredentialManager(accounts, authClient, listingClient, opts...)
	locationSyncer := services.NewLocationSyncer(credentials, listingClient, locations, opts...)
	reviewSyncer := services.NewReviewSyncer(credentials, listingClient, accounts, locations, reviews, opts...)
	orchestrator := services.NewSyncOrchestrator(accounts, locations, locationSyncer, reviewSyncer, opts...)

	svc.Credentials = credentials
	svc.Listing = services.NewListingService(accounts, locations, reviews)
	svc.Reviews = reviewSyncer
	svc.Sync = orchestrator
	svc.Scheduler = services.NewScheduler(settings.Scheduler, store.SchedulerStore(), orchestrator, credentials)
}
