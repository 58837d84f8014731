package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [account-id]",
	Short: "Synchronise locations and reviews",
	Long: `Pulls locations and reviews from Google Business Profile into the
local database. If an account ID is provided, only that account is
synchronised. Otherwise, all connected accounts are synchronised.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

// syncPollInterval is how often progress is printed.
var syncPollInterval = 500 * time.Millisecond

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errNotConfigured
	}
	ctx := cmd.Context()

	if len(args) > 0 {
		accountID := args[0]
		cmd.Printf("Synchronising account: %s...\n", accountID)

		result, err := syncWithProgress(ctx, cmd, syncOrchestrator, accountID)
		if result != nil {
			printSyncResult(cmd, result)
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", reauthHint(err))
		}
		return nil
	}

	cmd.Println("Synchronising all accounts...")
	results, err := syncOrchestrator.SyncAll(ctx)
	for i := range results {
		printSyncResult(cmd, &results[i])
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", reauthHint(err))
	}
	cmd.Printf("%d accounts synchronised.\n", len(results))
	return nil
}

type syncOutcome struct {
	result *domain.SyncResult
	err    error
}

// syncWithProgress runs SyncAccount while printing progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	accountID string,
) (*domain.SyncResult, error) {
	done := make(chan syncOutcome, 1)
	go func() {
		result, err := syncOrch.SyncAccount(ctx, accountID)
		done <- syncOutcome{result: result, err: err}
	}()

	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case out := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return out.result, out.err
		case <-ticker.C:
			// Best effort.
			status, err := syncOrch.Status(ctx, accountID)
			if err == nil && status != nil && status.LocationsProcessed > lastCount {
				cmd.Printf("\rProcessed %d locations, %d reviews", status.LocationsProcessed, status.ReviewsProcessed)
				lastCount = status.LocationsProcessed
			}
		}
	}
}

func printSyncResult(cmd *cobra.Command, result *domain.SyncResult) {
	cmd.Printf("Account %s: %d locations, %d reviews",
		result.AccountID, result.LocationsSynced, result.ReviewsSynced)
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		cmd.Printf(" in %s", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	}
	cmd.Println()
	for _, f := range result.Failures {
		cmd.Printf("  location %s (%s) failed: %v\n", f.LocationID, f.ExternalID, f.Err)
	}
}
