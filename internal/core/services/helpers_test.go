package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/listingsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- authorization client ---

type fakeAuth struct {
	exchangeCalls atomic.Int32
	refreshCalls  atomic.Int32

	exchange func(code string) (*driven.TokenGrant, error)
	refresh  func(ctx context.Context, refreshToken string) (*driven.TokenGrant, error)
}

func (f *fakeAuth) ExchangeCode(_ context.Context, code, _ string) (*driven.TokenGrant, error) {
	f.exchangeCalls.Add(1)
	if f.exchange == nil {
		return &driven.TokenGrant{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, ExpiresInSeconds: ptr[int64](3600)}, nil
	}
	return f.exchange(code)
}

func (f *fakeAuth) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*driven.TokenGrant, error) {
	n := f.refreshCalls.Add(1)
	if f.refresh == nil {
		return &driven.TokenGrant{AccessToken: fmt.Sprintf("refreshed-%d", n), ExpiresInSeconds: ptr[int64](3600)}, nil
	}
	return f.refresh(ctx, refreshToken)
}

func (f *fakeAuth) AuthCodeURL(state, challenge string) string {
	return "https://auth.example/consent?state=" + state + "&code_challenge=" + challenge
}

// --- listing client ---

// chain links items into pages of pageSize, tokens "page-1", "page-2", ...
func chain[T any](pageSize int, items ...T) []driven.Page[T] {
	var pages []driven.Page[T]
	for start := 0; start < len(items) || start == 0; start += pageSize {
		end := min(start+pageSize, len(items))
		pages = append(pages, driven.Page[T]{Items: items[start:end]})
		if end >= len(items) {
			break
		}
	}
	for i := range len(pages) - 1 {
		pages[i].NextPageToken = "page-" + strconv.Itoa(i+1)
	}
	return pages
}

func pageAt[T any](pages []driven.Page[T], token string) (*driven.Page[T], error) {
	idx := 0
	if token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "page-"))
		if err != nil {
			return nil, fmt.Errorf("bad page token %q", token)
		}
		idx = n
	}
	if idx >= len(pages) {
		return &driven.Page[T]{}, nil
	}
	page := pages[idx]
	return &page, nil
}

type published struct {
	token, name, text string
}

type fakeListing struct {
	mu        sync.Mutex
	accounts  []driven.Page[driven.RemoteAccount]
	locations map[string][]driven.Page[driven.RemoteLocation]
	reviews   map[string][]driven.Page[driven.RemoteReview]

	// errs are returned (then removed) per operation before serving data.
	errs map[string][]error

	tokens    []string
	calls     map[string]int
	published []published
	publish   func(name, text string) (*driven.RemoteReply, error)
}

func newFakeListing() *fakeListing {
	return &fakeListing{
		locations: make(map[string][]driven.Page[driven.RemoteLocation]),
		reviews:   make(map[string][]driven.Page[driven.RemoteReview]),
		errs:      make(map[string][]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeListing) record(op, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	f.tokens = append(f.tokens, token)
	if queued := f.errs[op]; len(queued) > 0 {
		f.errs[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *fakeListing) failNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], errs...)
}

func (f *fakeListing) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeListing) lastToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return ""
	}
	return f.tokens[len(f.tokens)-1]
}

func (f *fakeListing) ListAccounts(_ context.Context, token, pageToken string) (*driven.Page[driven.RemoteAccount], error) {
	if err := f.record("accounts", token); err != nil {
		return nil, err
	}
	return pageAt(f.accounts, pageToken)
}

func (f *fakeListing) ListLocations(_ context.Context, token, parent, pageToken string) (*driven.Page[driven.RemoteLocation], error) {
	if err := f.record("locations", token); err != nil {
		return nil, err
	}
	return pageAt(f.locations[parent], pageToken)
}

func (f *fakeListing) ListReviews(_ context.Context, token, parent, pageToken string) (*driven.Page[driven.RemoteReview], error) {
	if err := f.record("reviews:"+parent, token); err != nil {
		return nil, err
	}
	return pageAt(f.reviews[parent], pageToken)
}

func (f *fakeListing) PublishReply(_ context.Context, token, name, text string) (*driven.RemoteReply, error) {
	if err := f.record("publish", token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.published = append(f.published, published{token: token, name: name, text: text})
	f.mu.Unlock()
	if f.publish != nil {
		return f.publish(name, text)
	}
	return &driven.RemoteReply{Comment: text, UpdateTime: testNow.Add(time.Minute)}, nil
}

// --- stores ---

// flakyReviewStore fails UpdateReply while updateErr is set.
type flakyReviewStore struct {
	*memory.ReviewStore
	updateErr error
}

func (s *flakyReviewStore) UpdateReply(ctx context.Context, id, reply string, repliedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.ReviewStore.UpdateReply(ctx, id, reply, repliedAt)
}

// --- harness ---

type harness struct {
	clock     *fakeClock
	auth      *fakeAuth
	listing   *fakeListing
	accounts  *memory.AccountStore
	locations *memory.LocationStore
	reviews   *flakyReviewStore
	policy    domain.SyncPolicy
	creds     *CredentialManager
	seq       atomic.Int64
}

func testPolicy() domain.SyncPolicy {
	policy := domain.DefaultSyncPolicy()
	policy.BaseBackoff = 0
	policy.CallTimeout = 5 * time.Second
	return policy
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     newFakeClock(),
		auth:      &fakeAuth{},
		listing:   newFakeListing(),
		accounts:  memory.NewAccountStore(),
		locations: memory.NewLocationStore(),
		reviews:   &flakyReviewStore{ReviewStore: memory.NewReviewStore()},
		policy:    testPolicy(),
	}
	h.creds = NewCredentialManager(h.accounts, h.auth, h.listing, h.options()...)
	return h
}

func (h *harness) options() []Option {
	return []Option{
		WithClock(h.clock.Now),
		WithPolicy(h.policy),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", h.seq.Add(1)) }),
	}
}

func (h *harness) locationSyncer() *LocationSyncer {
	return NewLocationSyncer(h.creds, h.listing, h.locations, h.options()...)
}

func (h *harness) reviewSyncer() *ReviewSyncer {
	return NewReviewSyncer(h.creds, h.listing, h.accounts, h.locations, h.reviews, h.options()...)
}

// seedAccount stores account "42" with the given expiry and refresh token.
func (h *harness) seedAccount(t *testing.T, expiry time.Time, refreshToken string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:         "acc-1",
		UserID:     "user-1",
		ExternalID: "42",
		Type:       domain.AccountTypePersonal,
		Credentials: domain.Credentials{
			AccessToken:  "stored-access",
			RefreshToken: domain.Secret(refreshToken),
			Expiry:       expiry,
		},
		State:     domain.CredentialStateAuthorized,
		CreatedAt: testNow.Add(-24 * time.Hour),
	}
	require.NoError(t, h.accounts.UpsertAccount(context.Background(), account))
	return account
}

// seedLocation stores a location under acc-1.
func (h *harness) seedLocation(t *testing.T, id, externalID string) *domain.Location {
	t.Helper()
	location := &domain.Location{ID: id, AccountID: "acc-1", ExternalID: externalID, DisplayName: "Loc " + externalID}
	_, err := h.locations.UpsertLocation(context.Background(), location)
	require.NoError(t, err)
	return location
}

func unavailable(op string) error {
	return &domain.UpstreamUnavailableError{Op: op, StatusCode: 503, Err: fmt.Errorf("service unavailable")}
}

func rejected(op string, status int, code string) error {
	return &domain.UpstreamRejectedError{Op: op, StatusCode: status, Code: code, Message: code}
}

// withPolicy replaces the policy and rebuilds the credential manager.
func (h *harness) withPolicy(policy domain.SyncPolicy) *harness {
	h.policy = policy
	h.creds = NewCredentialManager(h.accounts, h.auth, h.listing, h.options()...)
	return h
}
