package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

func TestEnsureValid_UnexpiredMakesNoNetworkCall(t *testing.T) {
	h := newHarness(t)
	account := h.seedAccount(t, testNow.Add(time.Minute), "refresh")

	got, err := h.creds.EnsureValid(context.Background(), account)

	require.NoError(t, err)
	assert.Same(t, account, got)
	assert.Equal(t, "stored-access", got.Credentials.AccessToken.Reveal())
	assert.Zero(t, h.auth.refreshCalls.Load())
	assert.Zero(t, h.auth.exchangeCalls.Load())
}

func TestEnsureValid_ExpiredRefreshesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	account := h.seedAccount(t, testNow.Add(-time.Second), "refresh")

	got, err := h.creds.EnsureValid(context.Background(), account)

	require.NoError(t, err)
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load())
	assert.Equal(t, "refreshed-1", got.Credentials.AccessToken.Reveal())
	assert.Equal(t, testNow.Add(time.Hour), got.Credentials.Expiry)

	stored, err := h.accounts.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", stored.Credentials.AccessToken.Reveal())
	assert.Equal(t, "refresh", stored.Credentials.RefreshToken.Reveal(), "refresh token kept when not rotated")
	assert.Equal(t, domain.CredentialStateAuthorized, stored.State)
}

func TestEnsureValid_ExpiryBoundaryIsExpired(t *testing.T) {
	h := newHarness(t)
	account := h.seedAccount(t, testNow, "refresh")

	_, err := h.creds.EnsureValid(context.Background(), account)

	require.NoError(t, err)
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load())
}

func TestRefresh_MissingRefreshToken(t *testing.T) {
	h := newHarness(t)
	account := h.seedAccount(t, testNow.Add(-time.Minute), "")

	_, err := h.creds.EnsureValid(context.Background(), account)

	var missing *domain.MissingRefreshTokenError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, account.ID, missing.AccountID)
	assert.True(t, domain.RequiresReauth(err))
	assert.Zero(t, h.auth.refreshCalls.Load())

	stored, err := h.accounts.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsReauth())
}

func TestEnsureValid_MissingRefreshTokenIsStableAcrossCalls(t *testing.T) {
	h := newHarness(t)
	account := h.seedAccount(t, testNow.Add(-time.Minute), "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		current, err := h.accounts.GetAccount(ctx, account.ID)
		require.NoError(t, err)

		_, err = h.creds.EnsureValid(ctx, current)

		var missing *domain.MissingRefreshTokenError
		require.True(t, errors.As(err, &missing), "call %d: %v", i+1, err)
		assert.ErrorIs(t, err, domain.ErrMissingRefreshToken)
		assert.NotErrorIs(t, err, domain.ErrRefreshRejected)
	}
	assert.Zero(t, h.auth.refreshCalls.Load())

	stored, err := h.accounts.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsReauth())
}

func TestRefresh_RejectedMovesToNeedsReauth(t *testing.T) {
	h := newHarness(t)
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		return nil, rejected("refresh access token", 400, "invalid_grant")
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "revoked")

	_, err := h.creds.Refresh(context.Background(), account)

	var refreshErr *domain.RefreshRejectedError
	require.True(t, errors.As(err, &refreshErr))
	assert.Equal(t, "invalid_grant", refreshErr.Code)
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load(), "rejections are not retried")

	stored, err := h.accounts.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsReauth())

	// Terminal until re-authorization: no further network calls.
	_, err = h.creds.Refresh(context.Background(), stored)
	assert.ErrorIs(t, err, domain.ErrRefreshRejected)
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load())
}

func TestRefresh_RotatesRefreshTokenOnlyWhenReturned(t *testing.T) {
	h := newHarness(t)
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		return &driven.TokenGrant{AccessToken: "new-access", RefreshToken: "rotated", ExpiresInSeconds: ptr[int64](60)}, nil
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "original")

	got, err := h.creds.Refresh(context.Background(), account)

	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Credentials.RefreshToken.Reveal())
	assert.Equal(t, testNow.Add(time.Minute), got.Credentials.Expiry)
}

func TestRefresh_FallbackLifetimeWhenExpiryOmitted(t *testing.T) {
	h := newHarness(t)
	policy := testPolicy()
	policy.FallbackTokenLifetime = 30 * time.Minute
	h.withPolicy(policy)
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		return &driven.TokenGrant{AccessToken: "new-access"}, nil
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")

	got, err := h.creds.Refresh(context.Background(), account)

	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*time.Minute), got.Credentials.Expiry)
}

func TestRefresh_RetriesTransientFailures(t *testing.T) {
	h := newHarness(t)
	calls := 0
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		calls++
		if calls < 3 {
			return nil, unavailable("refresh access token")
		}
		return &driven.TokenGrant{AccessToken: "third-time", ExpiresInSeconds: ptr[int64](3600)}, nil
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")

	got, err := h.creds.Refresh(context.Background(), account)

	require.NoError(t, err)
	assert.Equal(t, "third-time", got.Credentials.AccessToken.Reveal())
	assert.EqualValues(t, 3, h.auth.refreshCalls.Load())
}

func TestRefresh_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		return nil, unavailable("refresh access token")
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")

	_, err := h.creds.Refresh(context.Background(), account)

	assert.True(t, domain.IsRetryable(err))
	assert.False(t, domain.RequiresReauth(err))
	assert.EqualValues(t, h.policy.MaxAttempts, h.auth.refreshCalls.Load())

	stored, err := h.accounts.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.False(t, stored.NeedsReauth(), "transient failures keep the account authorized")
}

func TestRefresh_TimeoutSurfacesAsUpstreamUnavailable(t *testing.T) {
	h := newHarness(t)
	policy := testPolicy()
	policy.CallTimeout = 20 * time.Millisecond
	policy.MaxAttempts = 1
	h.withPolicy(policy)
	h.auth.refresh = func(ctx context.Context, _ string) (*driven.TokenGrant, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")

	_, err := h.creds.Refresh(context.Background(), account)

	var unavailableErr *domain.UpstreamUnavailableError
	require.True(t, errors.As(err, &unavailableErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnsureValid_ConcurrentCallersShareOneRefresh(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		once.Do(func() { close(started) })
		<-release
		return &driven.TokenGrant{AccessToken: "shared", ExpiresInSeconds: ptr[int64](3600)}, nil
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")

	var wg sync.WaitGroup
	results := make([]*domain.Account, 2)
	errs := make([]error, 2)
	for i := range 2 {
		stale := *account
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.creds.EnsureValid(context.Background(), &stale)
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range 2 {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", results[i].Credentials.AccessToken.Reveal())
	}
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load())
}

func TestEnsureValid_StaleSnapshotAfterRefreshMakesNoCall(t *testing.T) {
	h := newHarness(t)
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")
	stale := *account

	_, err := h.creds.EnsureValid(context.Background(), account)
	require.NoError(t, err)

	got, err := h.creds.EnsureValid(context.Background(), &stale)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", got.Credentials.AccessToken.Reveal())
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load())
}

func TestRefresh_CallerCancellationDoesNotFailFlight(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.auth.refresh = func(context.Context, string) (*driven.TokenGrant, error) {
		<-release
		return &driven.TokenGrant{AccessToken: "survivor", ExpiresInSeconds: ptr[int64](3600)}, nil
	}
	account := h.seedAccount(t, testNow.Add(-time.Minute), "refresh")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.creds.Refresh(ctx, account)
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		stored, err := h.accounts.GetAccount(context.Background(), account.ID)
		return err == nil && stored.Credentials.AccessToken.Reveal() == "survivor"
	}, time.Second, 5*time.Millisecond)
}

func TestExchangeAuthorizationCode(t *testing.T) {
	h := newHarness(t)
	h.listing.accounts = chain(1,
		driven.RemoteAccount{Name: "accounts/7", DisplayName: "Group", Type: "LOCATION_GROUP"},
		driven.RemoteAccount{Name: "accounts/42", DisplayName: "Owner", Type: "PERSONAL"},
	)

	account, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "abc123", "verifier")

	require.NoError(t, err)
	assert.Equal(t, "42", account.ExternalID)
	assert.Equal(t, domain.AccountTypePersonal, account.Type)
	assert.Equal(t, "access-abc123", account.Credentials.AccessToken.Reveal())
	assert.Equal(t, "refresh-abc123", account.Credentials.RefreshToken.Reveal())
	assert.Equal(t, testNow.Add(3600*time.Second), account.Credentials.Expiry)
	assert.Equal(t, domain.CredentialStateAuthorized, account.State)
	assert.Equal(t, "access-abc123", h.listing.lastToken())

	// Re-authorizing updates the same row; a grant without a refresh token keeps the stored one.
	h.clock.Advance(time.Hour)
	h.auth.exchange = func(code string) (*driven.TokenGrant, error) {
		return &driven.TokenGrant{AccessToken: "access-" + code, ExpiresInSeconds: ptr[int64](3600)}, nil
	}
	again, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "def456", "")
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
	assert.Equal(t, account.CreatedAt, again.CreatedAt)
	assert.Equal(t, "refresh-abc123", again.Credentials.RefreshToken.Reveal())
	assert.Equal(t, testNow.Add(2*time.Hour), again.Credentials.Expiry)

	all, err := h.accounts.ListAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "access-def456", all[0].Credentials.AccessToken.Reveal())
}

func TestExchangeAuthorizationCode_ReauthorizesNeedsReauthAccount(t *testing.T) {
	h := newHarness(t)
	h.listing.accounts = chain(10, driven.RemoteAccount{Name: "accounts/42", Type: "PERSONAL"})
	seeded := h.seedAccount(t, testNow.Add(-time.Hour), "")
	require.NoError(t, h.accounts.SaveCredentials(context.Background(), seeded.ID, seeded.Credentials, domain.CredentialStateNeedsReauth))

	account, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "code", "")

	require.NoError(t, err)
	assert.Equal(t, seeded.ID, account.ID)
	assert.False(t, account.NeedsReauth())
}

func TestExchangeAuthorizationCode_FallsBackToFirstAccount(t *testing.T) {
	h := newHarness(t)
	h.listing.accounts = chain(10,
		driven.RemoteAccount{Name: "accounts/7", Type: "LOCATION_GROUP"},
		driven.RemoteAccount{Name: "accounts/8", Type: "ORGANIZATION"},
	)

	account, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "code", "")

	require.NoError(t, err)
	assert.Equal(t, "7", account.ExternalID)
	assert.Equal(t, domain.AccountTypeLocationGroup, account.Type)
}

func TestExchangeAuthorizationCode_Errors(t *testing.T) {
	t.Run("error payload", func(t *testing.T) {
		h := newHarness(t)
		h.auth.exchange = func(string) (*driven.TokenGrant, error) {
			return nil, rejected("exchange authorization code", 200, "invalid_grant")
		}

		_, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "abc123", "")

		var exchangeErr *domain.AuthExchangeError
		require.True(t, errors.As(err, &exchangeErr))
		assert.Equal(t, "invalid_grant", exchangeErr.Code)
		assert.Zero(t, h.listing.callCount("accounts"))
	})

	t.Run("missing access token", func(t *testing.T) {
		h := newHarness(t)
		h.auth.exchange = func(string) (*driven.TokenGrant, error) {
			return &driven.TokenGrant{RefreshToken: "r"}, nil
		}

		_, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "abc123", "")
		assert.ErrorIs(t, err, domain.ErrAuthExchange)
	})

	t.Run("empty code", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", " ", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Zero(t, h.auth.exchangeCalls.Load())
	})

	t.Run("transient failure is not retried", func(t *testing.T) {
		h := newHarness(t)
		h.auth.exchange = func(string) (*driven.TokenGrant, error) {
			return nil, unavailable("exchange authorization code")
		}

		_, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "abc123", "")
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
		assert.EqualValues(t, 1, h.auth.exchangeCalls.Load())
	})

	t.Run("no reachable accounts", func(t *testing.T) {
		h := newHarness(t)
		h.listing.accounts = chain[driven.RemoteAccount](10)

		_, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "abc123", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed account name", func(t *testing.T) {
		h := newHarness(t)
		h.listing.accounts = chain(10, driven.RemoteAccount{Name: "malformed", Type: "PERSONAL"})

		_, err := h.creds.ExchangeAuthorizationCode(context.Background(), "user-1", "abc123", "")
		assert.ErrorIs(t, err, domain.ErrMalformedResourceName)
	})
}

func TestRefreshExpiring(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	soon := h.seedAccount(t, testNow.Add(10*time.Minute), "r1")
	later := &domain.Account{
		ID: "acc-2", UserID: "user-1", ExternalID: "43",
		Credentials: domain.Credentials{AccessToken: "a", RefreshToken: "r2", Expiry: testNow.Add(3 * time.Hour)},
		State:       domain.CredentialStateAuthorized,
	}
	require.NoError(t, h.accounts.UpsertAccount(ctx, later))
	noRefresh := &domain.Account{
		ID: "acc-3", UserID: "user-1", ExternalID: "44",
		Credentials: domain.Credentials{AccessToken: "a", Expiry: testNow.Add(time.Minute)},
		State:       domain.CredentialStateAuthorized,
	}
	require.NoError(t, h.accounts.UpsertAccount(ctx, noRefresh))

	n, err := h.creds.RefreshExpiring(ctx, 45*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 1, h.auth.refreshCalls.Load())

	stored, err := h.accounts.GetAccount(ctx, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", stored.Credentials.AccessToken.Reveal())
}

func TestAuthCodeURL_Delegates(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.creds.AuthCodeURL("st", "ch"), "state=st")
}
