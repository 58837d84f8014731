package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/listingsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/core/services"
)

type mockCredentials struct {
	exchanged   []string
	refreshed   []string
	expiringN   int
	expiringErr error
	refreshErr  error
}

func (m *mockCredentials) AuthCodeURL(state, challenge string) string {
	return "https://accounts.example/auth?state=" + state + "&code_challenge=" + challenge
}

func (m *mockCredentials) ExchangeAuthorizationCode(
	_ context.Context,
	userID, code, verifier string,
) (*domain.Account, error) {
	m.exchanged = append(m.exchanged, userID+"|"+code+"|"+verifier)
	return &domain.Account{
		ID: "acc-1", UserID: userID, ExternalID: "42", DisplayName: "Bakery",
		Credentials: domain.Credentials{AccessToken: "a", RefreshToken: "r"},
	}, nil
}

func (m *mockCredentials) EnsureValid(_ context.Context, a *domain.Account) (*domain.Account, error) {
	return a, nil
}

func (m *mockCredentials) Refresh(_ context.Context, a *domain.Account) (*domain.Account, error) {
	m.refreshed = append(m.refreshed, a.ID)
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	updated := *a
	updated.Credentials.Expiry = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &updated, nil
}

func (m *mockCredentials) RefreshExpiring(_ context.Context, _ time.Duration) (int, error) {
	return m.expiringN, m.expiringErr
}

type mockListing struct {
	accounts  []domain.Account
	locations []domain.Location
	reviews   []domain.Review
	err       error
}

func (m *mockListing) ListAccounts(_ context.Context, userID string) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range m.accounts {
		if userID == "" || a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, m.err
}

func (m *mockListing) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			return &m.accounts[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockListing) ListLocations(_ context.Context, _ string) ([]domain.Location, error) {
	return m.locations, m.err
}

func (m *mockListing) GetLocation(_ context.Context, _ string) (*domain.Location, error) {
	return nil, domain.ErrNotFound
}

func (m *mockListing) ListReviews(_ context.Context, _ string) ([]domain.Review, error) {
	return m.reviews, m.err
}

func (m *mockListing) GetReview(_ context.Context, _ string) (*domain.Review, error) {
	return nil, domain.ErrNotFound
}

type mockSync struct {
	result  *domain.SyncResult
	results []domain.SyncResult
	err     error
	delay   time.Duration
}

func (m *mockSync) SyncAccount(ctx context.Context, accountID string) (*domain.SyncResult, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.result, m.err
}

func (m *mockSync) SyncAll(_ context.Context) ([]domain.SyncResult, error) {
	return m.results, m.err
}

func (m *mockSync) Status(_ context.Context, accountID string) (*domain.SyncStatus, error) {
	return &domain.SyncStatus{AccountID: accountID, Running: true, LocationsProcessed: 1, ReviewsProcessed: 3}, nil
}

type mockReviews struct {
	publishErr error
	repairErr  error
	published  []string
	repaired   int
}

func (m *mockReviews) SyncReviews(_ context.Context, _ *domain.Location) (int, error) {
	return 0, nil
}

func (m *mockReviews) PublishReply(_ context.Context, reviewID, text string) error {
	m.published = append(m.published, reviewID+"|"+text)
	return m.publishErr
}

func (m *mockReviews) RepairReply(_ context.Context, _ *domain.PartialSyncError) error {
	m.repaired++
	return m.repairErr
}

type mockScheduler struct {
	started, stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

var (
	_ driving.CredentialManager = (*mockCredentials)(nil)
	_ driving.ListingService    = (*mockListing)(nil)
	_ driving.SyncOrchestrator  = (*mockSync)(nil)
	_ driving.ReviewSyncer      = (*mockReviews)(nil)
	_ driving.Scheduler         = (*mockScheduler)(nil)
)

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	if s.Settings == nil {
		s.Settings = services.NewSettingsService(memory.NewConfigStore())
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(&Services{}) })
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	return executeContext(t, context.Background(), "", args...)
}

func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores flag defaults; cobra keeps values between executions.
func resetFlags() {
	authUserID = "default"
	authNoBrowser = false
	authTimeout = 5 * time.Minute
	authVerifier = ""
	authWithin = 10 * time.Minute
	accountsUserID = ""
	reviewsUnanswered = false
	verbose = false
}
