package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

// Ensure CredentialManager implements the interface.
var _ driving.CredentialManager = (*CredentialManager)(nil)

// CredentialManager exchanges authorization codes and keeps access tokens fresh.
//
// Refreshes are coalesced per account: concurrent callers holding the same
// expired account share one refresh request.
type CredentialManager struct {
	accounts driven.AccountStore
	auth     driven.AuthorizationClient
	listing  driven.ListingClient

	opts     options
	upstream upstream
	flights  singleflight.Group
}

// NewCredentialManager creates a credential manager.
func NewCredentialManager(
	accounts driven.AccountStore,
	auth driven.AuthorizationClient,
	listing driven.ListingClient,
	opts ...Option,
) *CredentialManager {
	o := buildOptions(opts)
	return &CredentialManager{
		accounts: accounts,
		auth:     auth,
		listing:  listing,
		opts:     o,
		upstream: newUpstream(o),
	}
}

// AuthCodeURL builds the consent URL.
func (m *CredentialManager) AuthCodeURL(state, codeChallenge string) string {
	return m.auth.AuthCodeURL(state, codeChallenge)
}

// ExchangeAuthorizationCode trades a code for tokens and stores the primary account.
//
// The exchange is attempted once: authorization codes are single use, so a
// retry after an ambiguous failure could only fail with invalid_grant.
func (m *CredentialManager) ExchangeAuthorizationCode(
	ctx context.Context,
	userID, code, codeVerifier string,
) (*domain.Account, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", domain.ErrInvalidInput)
	}

	grant, err := callOnce(ctx, m.upstream, "exchange authorization code",
		func(ctx context.Context) (*driven.TokenGrant, error) {
			return m.auth.ExchangeCode(ctx, code, codeVerifier)
		})
	if err != nil {
		var rejected *domain.UpstreamRejectedError
		if errors.As(err, &rejected) {
			return nil, &domain.AuthExchangeError{Code: rejected.Code, Description: rejected.Message, Err: err}
		}
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if grant.AccessToken == "" {
		return nil, &domain.AuthExchangeError{Description: "token response carried no access token"}
	}

	now := m.opts.now()
	remote, err := m.primaryAccount(ctx, grant.AccessToken)
	if err != nil {
		return nil, err
	}
	externalID, err := domain.ParseAccountID(remote.Name)
	if err != nil {
		logger.Warn("Provider returned malformed account name %q", remote.Name)
		return nil, err
	}

	account := &domain.Account{
		ID:          m.opts.newID(),
		UserID:      userID,
		ExternalID:  externalID,
		DisplayName: remote.DisplayName,
		Type:        domain.ParseAccountType(remote.Type),
		CreatedAt:   now,
	}
	existing, err := m.accounts.GetAccountByExternalID(ctx, userID, externalID)
	switch {
	case err == nil:
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
		account.Credentials.RefreshToken = existing.Credentials.RefreshToken
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get account: %w", err)
	}

	account.Credentials.AccessToken = domain.Secret(grant.AccessToken)
	account.Credentials.Expiry = m.expiry(now, grant)
	if grant.RefreshToken != "" {
		account.Credentials.RefreshToken = domain.Secret(grant.RefreshToken)
	}
	account.State = domain.CredentialStateAuthorized
	account.UpdatedAt = now

	if err := m.accounts.UpsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	logger.Info("Authorized account %s (%s)", account.ExternalID, account.DisplayName)
	return account, nil
}

// primaryAccount lists every account reachable with token and picks the
// first PERSONAL one, falling back to the first listed.
func (m *CredentialManager) primaryAccount(ctx context.Context, token string) (*driven.RemoteAccount, error) {
	var (
		first     *driven.RemoteAccount
		pageToken string
	)
	for {
		page, err := call(ctx, m.upstream, "list accounts",
			func(ctx context.Context) (*driven.Page[driven.RemoteAccount], error) {
				return m.listing.ListAccounts(ctx, token, pageToken)
			})
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		for i := range page.Items {
			remote := page.Items[i]
			if domain.ParseAccountType(remote.Type) == domain.AccountTypePersonal {
				return &remote, nil
			}
			if first == nil {
				first = &remote
			}
		}
		if page.NextPageToken == "" || page.NextPageToken == pageToken {
			break
		}
		pageToken = page.NextPageToken
	}
	if first == nil {
		return nil, fmt.Errorf("list accounts: %w: no account is reachable with this authorization", domain.ErrNotFound)
	}
	return first, nil
}

// EnsureValid returns account untouched while now < expiry.
func (m *CredentialManager) EnsureValid(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: nil account", domain.ErrInvalidInput)
	}
	if !account.Credentials.IsExpiredAt(m.opts.now()) {
		return account, nil
	}
	return m.Refresh(ctx, account)
}

// Refresh obtains a new access token for account.
//
// Concurrent calls for the same account share a single flight. The flight
// outlives the caller that started it so one cancelled caller cannot fail
// the others.
func (m *CredentialManager) Refresh(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: nil account", domain.ErrInvalidInput)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan(account.ID, func() (any, error) {
		return m.refresh(flightCtx, account)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		refreshed := *res.Val.(*domain.Account)
		return &refreshed, nil
	}
}

func (m *CredentialManager) refresh(ctx context.Context, stale *domain.Account) (*domain.Account, error) {
	current, err := m.accounts.GetAccount(ctx, stale.ID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	now := m.opts.now()
	if current.Credentials.Expiry.After(stale.Credentials.Expiry) && !current.Credentials.IsExpiredAt(now) {
		logger.Debug("Account %s was refreshed concurrently", current.ID)
		return current, nil
	}

	if !current.Credentials.HasRefreshToken() {
		if !current.NeedsReauth() {
			m.markNeedsReauth(ctx, current)
		}
		return nil, &domain.MissingRefreshTokenError{AccountID: current.ID}
	}
	if current.NeedsReauth() {
		return nil, &domain.RefreshRejectedError{
			AccountID:   current.ID,
			Description: "account needs re-authorization",
		}
	}

	grant, err := call(ctx, m.upstream, "refresh access token",
		func(ctx context.Context) (*driven.TokenGrant, error) {
			return m.auth.ExchangeRefreshToken(ctx, current.Credentials.RefreshToken.Reveal())
		})
	if err != nil {
		var rejected *domain.UpstreamRejectedError
		if errors.As(err, &rejected) {
			m.markNeedsReauth(ctx, current)
			return nil, &domain.RefreshRejectedError{
				AccountID:   current.ID,
				Code:        rejected.Code,
				Description: rejected.Message,
				Err:         err,
			}
		}
		return nil, fmt.Errorf("refresh account %s: %w", current.ID, err)
	}
	if grant.AccessToken == "" {
		m.markNeedsReauth(ctx, current)
		return nil, &domain.RefreshRejectedError{
			AccountID:   current.ID,
			Description: "token response carried no access token",
		}
	}

	creds := domain.Credentials{
		AccessToken:  domain.Secret(grant.AccessToken),
		RefreshToken: current.Credentials.RefreshToken,
		Expiry:       m.expiry(now, grant),
	}
	if grant.RefreshToken != "" {
		creds.RefreshToken = domain.Secret(grant.RefreshToken)
	}
	if err := m.accounts.SaveCredentials(ctx, current.ID, creds, domain.CredentialStateAuthorized); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	current.Credentials = creds
	current.State = domain.CredentialStateAuthorized
	current.UpdatedAt = now
	logger.Debug("Refreshed access token for account %s, expires %s", current.ID, creds.Expiry.Format(time.RFC3339))
	return current, nil
}

// RefreshExpiring refreshes authorized accounts whose token expires within the window.
func (m *CredentialManager) RefreshExpiring(ctx context.Context, within time.Duration) (int, error) {
	accounts, err := m.accounts.ListAccounts(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	deadline := m.opts.now().Add(within)
	refreshed := 0
	var errs []error
	for i := range accounts {
		account := &accounts[i]
		if account.NeedsReauth() || !account.Credentials.HasRefreshToken() {
			continue
		}
		if account.Credentials.Expiry.After(deadline) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := m.Refresh(ctx, account); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", account.ID, err))
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

// markNeedsReauth persists the terminal state. The credential error that
// caused it is what callers see, so a failed write is only logged.
func (m *CredentialManager) markNeedsReauth(ctx context.Context, account *domain.Account) {
	logger.Warn("Account %s needs re-authorization", account.ID)
	account.State = domain.CredentialStateNeedsReauth
	if err := m.accounts.SaveCredentials(ctx, account.ID, account.Credentials, domain.CredentialStateNeedsReauth); err != nil {
		logger.Error("Failed to mark account %s as needing re-authorization: %v", account.ID, err)
	}
}

func (m *CredentialManager) expiry(now time.Time, grant *driven.TokenGrant) time.Time {
	if grant.ExpiresInSeconds != nil && *grant.ExpiresInSeconds > 0 {
		return now.Add(time.Duration(*grant.ExpiresInSeconds) * time.Second)
	}
	return now.Add(m.opts.policy.FallbackTokenLifetime)
}
