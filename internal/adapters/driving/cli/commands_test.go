package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func TestVersionCmd(t *testing.T) {
	original := version
	SetVersion("1.2.3")
	defer func() { version = original }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "listingsync version 1.2.3")
}

func TestCommands_NotConfigured(t *testing.T) {
	SetServices(&Services{})

	for _, args := range [][]string{
		{"accounts"},
		{"locations", "acc-1"},
		{"reviews", "loc-1"},
		{"sync"},
		{"reply", "r-1", "thanks"},
		{"auth", "url"},
		{"auth", "exchange", "code"},
		{"schedule"},
		{"mcp"},
	} {
		_, err := execute(t, args...)
		assert.ErrorIs(t, err, errNotConfigured, "%v", args)
	}
}

func TestAccountsCmd(t *testing.T) {
	withServices(t, &Services{Listing: &mockListing{accounts: []domain.Account{
		{ID: "acc-1", UserID: "alice", ExternalID: "42", DisplayName: "Bakery", State: domain.CredentialStateAuthorized},
		{ID: "acc-2", UserID: "bob", ExternalID: "43", DisplayName: "Cafe", State: domain.CredentialStateNeedsReauth},
	}}})

	out, err := execute(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "Bakery (accounts/42)")
	assert.Contains(t, out, "NEEDS_REAUTH")
	assert.Contains(t, out, "Total: 2 accounts")

	out, err = execute(t, "accounts", "--user", "bob")
	require.NoError(t, err)
	assert.NotContains(t, out, "Bakery")
	assert.Contains(t, out, "Total: 1 accounts")
}

func TestAccountsCmd_Empty(t *testing.T) {
	withServices(t, &Services{Listing: &mockListing{}})

	out, err := execute(t, "accounts")

	require.NoError(t, err)
	assert.Contains(t, out, "auth login")
}

func TestLocationsCmd(t *testing.T) {
	synced := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withServices(t, &Services{Listing: &mockListing{locations: []domain.Location{
		{ID: "loc-1", DisplayName: "Main St", Address: "1 Main St", Phone: strPtr("+1 555"), LastSyncedAt: &synced},
		{ID: "loc-2", DisplayName: "Annex"},
	}}})

	out, err := execute(t, "locations", "acc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Address: 1 Main St")
	assert.Contains(t, out, "Phone: +1 555")
	assert.Contains(t, out, "Reviews synced: never")
	assert.Contains(t, out, "Total: 2 locations")
}

func TestReviewsCmd(t *testing.T) {
	withServices(t, &Services{Listing: &mockListing{reviews: []domain.Review{
		{ID: "r-1", ReviewerName: "Ann", Rating: domain.StarRatingFour, Comment: strPtr("lovely"), Reply: strPtr("thanks!")},
		{ID: "r-2", ReviewerName: "Bob", Rating: domain.StarRatingUnspecified},
	}}})

	out, err := execute(t, "reviews", "loc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "r-1  ****-")
	assert.Contains(t, out, "Reply: thanks!")
	assert.Contains(t, out, "r-2  -----")
	assert.Contains(t, out, "Total: 2 reviews")

	out, err = execute(t, "reviews", "loc-1", "--unanswered")
	require.NoError(t, err)
	assert.NotContains(t, out, "r-1")
	assert.Contains(t, out, "Total: 1 reviews")
}

func TestStars(t *testing.T) {
	assert.Equal(t, "*****", stars(domain.StarRatingFive))
	assert.Equal(t, "*----", stars(domain.StarRatingOne))
	assert.Equal(t, "-----", stars(domain.StarRatingUnspecified))
}

func TestSyncCmd_Account(t *testing.T) {
	orig := syncPollInterval
	syncPollInterval = 10 * time.Millisecond
	defer func() { syncPollInterval = orig }()

	withServices(t, &Services{Sync: &mockSync{
		delay: 50 * time.Millisecond,
		result: &domain.SyncResult{
			AccountID:       "acc-1",
			LocationsSynced: 2,
			ReviewsSynced:   5,
			Failures:        []domain.LocationFailure{{LocationID: "loc-2", ExternalID: "100", Err: errors.New("boom")}},
		},
	}})

	out, err := execute(t, "sync", "acc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Synchronising account: acc-1")
	assert.Contains(t, out, "Processed 1 locations, 3 reviews")
	assert.Contains(t, out, "Account acc-1: 2 locations, 5 reviews")
	assert.Contains(t, out, "location loc-2 (100) failed: boom")
}

func TestSyncCmd_All(t *testing.T) {
	withServices(t, &Services{Sync: &mockSync{results: []domain.SyncResult{
		{AccountID: "acc-1", ReviewsSynced: 1},
		{AccountID: "acc-2", ReviewsSynced: 2},
	}}})

	out, err := execute(t, "sync")

	require.NoError(t, err)
	assert.Contains(t, out, "Synchronising all accounts...")
	assert.Contains(t, out, "Account acc-2: 0 locations, 2 reviews")
	assert.Contains(t, out, "2 accounts synchronised.")
}

func TestSyncCmd_ReauthHint(t *testing.T) {
	withServices(t, &Services{Sync: &mockSync{err: &domain.RefreshRejectedError{AccountID: "acc-1", Code: "invalid_grant"}}})

	_, err := execute(t, "sync", "acc-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReauthRequired)
	assert.Contains(t, err.Error(), "auth login")
}

func TestReplyCmd(t *testing.T) {
	t.Run("publishes joined text", func(t *testing.T) {
		reviews := &mockReviews{}
		withServices(t, &Services{Reviews: reviews})

		out, err := execute(t, "reply", "r-1", "Thanks", "for", "visiting")

		require.NoError(t, err)
		assert.Equal(t, []string{"r-1|Thanks for visiting"}, reviews.published)
		assert.Contains(t, out, "Reply published to review r-1.")
	})

	t.Run("partial sync is repaired", func(t *testing.T) {
		reviews := &mockReviews{publishErr: &domain.PartialSyncError{ReviewID: "r-1", Err: errors.New("locked")}}
		withServices(t, &Services{Reviews: reviews})

		out, err := execute(t, "reply", "r-1", "hi")

		require.NoError(t, err)
		assert.Equal(t, 1, reviews.repaired)
		assert.Contains(t, out, "Reply published to review r-1.")
	})

	t.Run("failed repair reports the partial state", func(t *testing.T) {
		reviews := &mockReviews{
			publishErr: &domain.PartialSyncError{ReviewID: "r-1", Err: errors.New("locked")},
			repairErr:  errors.New("still locked"),
		}
		withServices(t, &Services{Reviews: reviews})

		out, err := execute(t, "reply", "r-1", "hi")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not saved locally")
		assert.Contains(t, out, "next sync")
	})

	t.Run("upstream rejection", func(t *testing.T) {
		reviews := &mockReviews{publishErr: &domain.UpstreamRejectedError{Op: "publish reply", StatusCode: 404}}
		withServices(t, &Services{Reviews: reviews})

		_, err := execute(t, "reply", "r-1", "hi")

		assert.ErrorIs(t, err, domain.ErrUpstreamRejected)
		assert.Zero(t, reviews.repaired)
	})
}

func TestAuthURLAndExchange(t *testing.T) {
	creds := &mockCredentials{}
	withServices(t, &Services{Credentials: creds})

	out, err := execute(t, "auth", "url", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "https://accounts.example/auth?state=")
	assert.Contains(t, out, "listingsync auth exchange --user alice --verifier ")

	out, err = execute(t, "auth", "exchange", "--user", "alice", "--verifier", "v", "the-code")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice|the-code|v"}, creds.exchanged)
	assert.Contains(t, out, "Connected Bakery (accounts/42) as account acc-1.")
	assert.NotContains(t, out, "Warning")
}

func TestAuthRefreshCmd(t *testing.T) {
	t.Run("expiring accounts", func(t *testing.T) {
		withServices(t, &Services{Credentials: &mockCredentials{expiringN: 3}, Listing: &mockListing{}})

		out, err := execute(t, "auth", "refresh")

		require.NoError(t, err)
		assert.Contains(t, out, "Refreshed 3 account(s).")
	})

	t.Run("one account", func(t *testing.T) {
		creds := &mockCredentials{}
		withServices(t, &Services{
			Credentials: creds,
			Listing:     &mockListing{accounts: []domain.Account{{ID: "acc-1", ExternalID: "42"}}},
		})

		out, err := execute(t, "auth", "refresh", "acc-1")

		require.NoError(t, err)
		assert.Equal(t, []string{"acc-1"}, creds.refreshed)
		assert.Contains(t, out, "Access token for accounts/42 valid until")
	})

	t.Run("unknown account", func(t *testing.T) {
		withServices(t, &Services{Credentials: &mockCredentials{}, Listing: &mockListing{}})

		_, err := execute(t, "auth", "refresh", "missing")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("revoked", func(t *testing.T) {
		withServices(t, &Services{
			Credentials: &mockCredentials{refreshErr: &domain.RefreshRejectedError{AccountID: "acc-1"}},
			Listing:     &mockListing{accounts: []domain.Account{{ID: "acc-1"}}},
		})

		_, err := execute(t, "auth", "refresh", "acc-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth login")
	})
}

func TestConfigCmd(t *testing.T) {
	withServices(t, &Services{})

	out, err := execute(t, "config", "set", "sync.max_attempts", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "sync.max_attempts = 5")

	out, err = execute(t, "config", "get", "sync.max_attempts")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = execute(t, "config", "set", "sync.max_attempts", "zero")
	assert.Error(t, err)

	_, err = execute(t, "config", "get", "no.such.key")
	assert.Error(t, err)

	out, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "sync.max_attempts")
	assert.Contains(t, out, "oauth.client_id")
}

func TestConfigCmd_SecretFromStdin(t *testing.T) {
	withServices(t, &Services{})

	out, err := executeContext(t, context.Background(), "super-secret\n", "config", "set", "security.encryption_key")

	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "[REDACTED]")
	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, "super-secret", settings.EncryptionKey.Reveal())
}

func TestScheduleCmd_StopsOnCancel(t *testing.T) {
	sched := &mockScheduler{}
	withServices(t, &Services{Scheduler: sched})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := executeContext(t, ctx, "", "schedule")

	require.NoError(t, err)
	assert.True(t, sched.started)
	assert.True(t, sched.stopped)
	assert.Contains(t, out, "Scheduler stopped.")
}

func TestConfigCmd_UnsetKnownKey(t *testing.T) {
	withServices(t, &Services{})

	out, err := execute(t, "config", "get", "oauth.client_id")

	require.NoError(t, err)
	assert.Equal(t, "(not set)\n", out)
}
