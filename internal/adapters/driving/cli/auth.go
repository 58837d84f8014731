package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listingsync/internal/adapters/driving/oauth"
	"github.com/custodia-labs/listingsync/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect and maintain Google Business Profile accounts",
	Long: `Authorize listingsync to manage a Google Business Profile account.

'auth login' runs the full browser flow. On machines without a browser use
'auth url' and then 'auth exchange' with the code from the redirect.

Examples:
  listingsync auth login
  listingsync auth login --user alice --no-browser
  listingsync auth url
  listingsync auth exchange --verifier <verifier> <code>
  listingsync auth refresh`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize an account in the browser",
	RunE:  runAuthLogin,
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print a consent URL for manual authorization",
	RunE:  runAuthURL,
}

var authExchangeCmd = &cobra.Command{
	Use:   "exchange [code]",
	Short: "Exchange an authorization code for tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthExchange,
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh [account-id]",
	Short: "Refresh access tokens",
	Long: `Refresh the access token of one account, or of every account whose
token expires within --within when no account ID is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthRefresh,
}

// Flags for the auth commands.
var (
	authUserID    string
	authNoBrowser bool
	authTimeout   time.Duration
	authVerifier  string
	authWithin    time.Duration
)

func init() {
	authCmd.PersistentFlags().StringVar(&authUserID, "user", "default", "Local user that owns the account")

	authLoginCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Print the consent URL instead of opening it")
	authLoginCmd.Flags().DurationVar(&authTimeout, "timeout", 5*time.Minute, "How long to wait for the redirect")

	authExchangeCmd.Flags().StringVar(&authVerifier, "verifier", "", "PKCE verifier printed by 'auth url'")

	authRefreshCmd.Flags().DurationVar(&authWithin, "within", 10*time.Minute,
		"Refresh tokens expiring within this window")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authURLCmd)
	authCmd.AddCommand(authExchangeCmd)
	authCmd.AddCommand(authRefreshCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if credentialManager == nil || settingsService == nil {
		return errNotConfigured
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
	defer cancel()

	open := func(url string) error {
		cmd.Printf("Open this URL to authorize listingsync:\n\n  %s\n\n", url)
		if authNoBrowser {
			return nil
		}
		return oauth.OpenBrowser(url)
	}

	cmd.Printf("Waiting for authorization (timeout %s)...\n", authTimeout)
	account, err := oauth.Login(ctx, credentialManager, oauth.LoginRequest{
		UserID:      authUserID,
		RedirectURL: settings.OAuth.RedirectURL,
		Open:        open,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printConnected(cmd, account)
	return nil
}

func runAuthURL(cmd *cobra.Command, _ []string) error {
	if credentialManager == nil {
		return errNotConfigured
	}

	state, err := oauth.NewState()
	if err != nil {
		return err
	}
	verifier := oauth.NewCodeVerifier()

	cmd.Printf("Open this URL to authorize listingsync:\n\n  %s\n\n",
		credentialManager.AuthCodeURL(state, oauth.CodeChallenge(verifier)))
	cmd.Println("After approving, copy the 'code' parameter from the redirect and run:")
	cmd.Printf("\n  listingsync auth exchange --user %s --verifier %s <code>\n", authUserID, verifier)
	return nil
}

func runAuthExchange(cmd *cobra.Command, args []string) error {
	if credentialManager == nil {
		return errNotConfigured
	}

	account, err := credentialManager.ExchangeAuthorizationCode(cmd.Context(), authUserID, args[0], authVerifier)
	if err != nil {
		return fmt.Errorf("exchange failed: %w", err)
	}

	printConnected(cmd, account)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	if credentialManager == nil || listingService == nil {
		return errNotConfigured
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		n, err := credentialManager.RefreshExpiring(ctx, authWithin)
		cmd.Printf("Refreshed %d account(s).\n", n)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		return nil
	}

	account, err := listingService.GetAccount(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	account, err = credentialManager.Refresh(ctx, account)
	if err != nil {
		if domain.RequiresReauth(err) {
			return fmt.Errorf("account %s needs to be authorized again with 'listingsync auth login': %w",
				args[0], err)
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	cmd.Printf("Access token for %s valid until %s.\n", account.ResourceName(),
		account.Credentials.Expiry.Local().Format(time.RFC1123))
	return nil
}

func printConnected(cmd *cobra.Command, account *domain.Account) {
	name := account.DisplayName
	if name == "" {
		name = account.ResourceName()
	}
	cmd.Printf("Connected %s (%s) as account %s.\n", name, account.ResourceName(), account.ID)
	if !account.Credentials.HasRefreshToken() {
		cmd.Println("Warning: no refresh token was granted; you will need to log in again when the token expires.")
	}
}

// reauthHint adds a login hint to credential errors.
func reauthHint(err error) error {
	if domain.RequiresReauth(err) {
		return errors.Join(err, errors.New("run 'listingsync auth login' to authorize the account again"))
	}
	return err
}
