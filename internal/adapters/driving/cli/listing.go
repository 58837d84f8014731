package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List connected accounts",
	RunE:  runAccountsList,
}

var locationsCmd = &cobra.Command{
	Use:   "locations [account-id]",
	Short: "List synced locations of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocationsList,
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews [location-id]",
	Short: "List synced reviews of a location, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewsList,
}

var (
	accountsUserID    string
	reviewsUnanswered bool
)

func init() {
	accountsCmd.Flags().StringVar(&accountsUserID, "user", "", "Only list accounts owned by this local user")
	reviewsCmd.Flags().BoolVar(&reviewsUnanswered, "unanswered", false, "Only list reviews without a reply")

	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	if listingService == nil {
		return errNotConfigured
	}

	accounts, err := listingService.ListAccounts(cmd.Context(), accountsUserID)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		cmd.Println("No accounts connected. Run 'listingsync auth login' to add one.")
		return nil
	}

	for i := range accounts {
		a := &accounts[i]
		cmd.Printf("  %s\n", a.ID)
		cmd.Printf("    Name: %s (%s)\n", a.DisplayName, a.ResourceName())
		cmd.Printf("    User: %s\n", a.UserID)
		cmd.Printf("    State: %s\n", a.State)
		cmd.Printf("    Token expires: %s\n", a.Credentials.Expiry.Local().Format(time.RFC1123))
		cmd.Println()
	}
	cmd.Printf("Total: %d accounts\n", len(accounts))
	return nil
}

func runLocationsList(cmd *cobra.Command, args []string) error {
	if listingService == nil {
		return errNotConfigured
	}

	locations, err := listingService.ListLocations(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list locations: %w", err)
	}
	if len(locations) == 0 {
		cmd.Printf("No locations synced for account: %s\n", args[0])
		return nil
	}

	for i := range locations {
		l := &locations[i]
		cmd.Printf("  %s\n", l.ID)
		cmd.Printf("    Name: %s\n", l.DisplayName)
		if l.Address != "" {
			cmd.Printf("    Address: %s\n", l.Address)
		}
		if l.Phone != nil {
			cmd.Printf("    Phone: %s\n", *l.Phone)
		}
		if l.Website != nil {
			cmd.Printf("    Website: %s\n", *l.Website)
		}
		if l.LastSyncedAt != nil {
			cmd.Printf("    Reviews synced: %s\n", l.LastSyncedAt.Local().Format(time.RFC1123))
		} else {
			cmd.Println("    Reviews synced: never")
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d locations\n", len(locations))
	return nil
}

func runReviewsList(cmd *cobra.Command, args []string) error {
	if listingService == nil {
		return errNotConfigured
	}

	reviews, err := listingService.ListReviews(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}

	shown := 0
	for i := range reviews {
		r := &reviews[i]
		if reviewsUnanswered && r.HasReply() {
			continue
		}
		shown++
		cmd.Printf("  %s  %s  %s\n", r.ID, stars(r.Rating), r.RemoteCreatedAt.Local().Format("2006-01-02"))
		cmd.Printf("    By: %s\n", r.ReviewerName)
		if r.Comment != nil {
			cmd.Printf("    %s\n", *r.Comment)
		}
		if r.Reply != nil {
			cmd.Printf("    Reply: %s\n", *r.Reply)
		}
		cmd.Println()
	}

	if shown == 0 {
		cmd.Printf("No reviews for location: %s\n", args[0])
		return nil
	}
	cmd.Printf("Total: %d reviews\n", shown)
	return nil
}

func stars(rating domain.StarRating) string {
	if !rating.IsValid() {
		return "-----"
	}
	n := int(rating)
	return strings.Repeat("*", n) + strings.Repeat("-", 5-n)
}
