package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run background token refresh and account sync",
	Long: `Runs the scheduler in the foreground until interrupted. Tasks and
intervals come from the scheduler.* settings:

  oauth-refresh   refreshes access tokens before they expire
  account-sync    syncs locations and reviews of every account`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errNotConfigured
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(cmd.Context())
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if stopErr := scheduler.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
