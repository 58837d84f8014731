package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

var replyCmd = &cobra.Command{
	Use:   "reply [review-id] [text]",
	Short: "Publish an owner reply to a review",
	Long: `Publishes the reply on Google Business Profile, then stores it locally.
An existing reply is replaced.

Example:
  listingsync reply 0b6f... "Thanks for visiting!"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runReply,
}

func init() {
	rootCmd.AddCommand(replyCmd)
}

func runReply(cmd *cobra.Command, args []string) error {
	if reviewSyncer == nil {
		return errNotConfigured
	}
	ctx := cmd.Context()
	reviewID := args[0]
	text := strings.Join(args[1:], " ")

	err := reviewSyncer.PublishReply(ctx, reviewID, text)

	var partial *domain.PartialSyncError
	if errors.As(err, &partial) {
		cmd.Println("Reply published, but saving it locally failed. Retrying the local save...")
		if repairErr := reviewSyncer.RepairReply(ctx, partial); repairErr != nil {
			cmd.Println("The next sync of this location will record the reply.")
			return fmt.Errorf("reply published but not saved locally: %w", repairErr)
		}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("reply failed: %w", reauthHint(err))
	}

	cmd.Printf("Reply published to review %s.\n", reviewID)
	return nil
}
