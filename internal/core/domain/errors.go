package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running for the account.
	ErrSyncInProgress = errors.New("sync in progress")

	// Credential errors.

	// ErrReauthRequired is matched by every credential error that can only be
	// resolved by a human re-running the authorization flow.
	ErrReauthRequired = errors.New("reauthorization required")

	// ErrAuthExchange indicates the authorization code was rejected.
	ErrAuthExchange = errors.New("authorization code exchange failed")

	// ErrMissingRefreshToken indicates the account was never granted offline access.
	ErrMissingRefreshToken = errors.New("missing refresh token")

	// ErrRefreshRejected indicates the provider rejected the refresh token.
	ErrRefreshRejected = errors.New("refresh token rejected")

	// Sync errors.

	// ErrMalformedResourceName indicates a provider resource name did not have the expected shape.
	ErrMalformedResourceName = errors.New("malformed resource name")

	// ErrUpstreamUnavailable indicates a transient transport, timeout or 5xx failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRejected indicates the provider refused a request with a 4xx response.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrPartialSync indicates an upstream write succeeded but the local mirror was not updated.
	ErrPartialSync = errors.New("partial sync")
)

// AuthExchangeError is returned when the authorization endpoint refuses an
// authorization code (invalid, expired or already used).
type AuthExchangeError struct {
	Code        string
	Description string
	Err         error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %s", describe(e.Code, e.Description, e.Err))
}

func (e *AuthExchangeError) Unwrap() []error {
	return nonNil(ErrAuthExchange, ErrReauthRequired, e.Err)
}

// MissingRefreshTokenError is returned when an expired account has no refresh token.
type MissingRefreshTokenError struct {
	AccountID string
}

func (e *MissingRefreshTokenError) Error() string {
	return fmt.Sprintf("account %s: no refresh token stored, reauthorization required", e.AccountID)
}

func (e *MissingRefreshTokenError) Unwrap() []error {
	return []error{ErrMissingRefreshToken, ErrReauthRequired}
}

// RefreshRejectedError is returned when the provider refuses a refresh token
// (revoked or expired), or the account is already marked NEEDS_REAUTH.
type RefreshRejectedError struct {
	AccountID   string
	Code        string
	Description string
	Err         error
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("account %s: refresh rejected: %s", e.AccountID, describe(e.Code, e.Description, e.Err))
}

func (e *RefreshRejectedError) Unwrap() []error {
	return nonNil(ErrRefreshRejected, ErrReauthRequired, e.Err)
}

// MalformedResourceNameError is returned when a resource name lacks the
// expected prefix or segment count.
type MalformedResourceNameError struct {
	Name string
	Kind string
}

func (e *MalformedResourceNameError) Error() string {
	return fmt.Sprintf("malformed %s resource name %q", e.Kind, e.Name)
}

func (e *MalformedResourceNameError) Unwrap() error {
	return ErrMalformedResourceName
}

// UpstreamUnavailableError is a transient failure talking to the provider:
// transport error, timeout, rate limit or 5xx. It is safe to retry.
type UpstreamUnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream unavailable (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream unavailable: %v", e.Op, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() []error {
	return nonNil(ErrUpstreamUnavailable, e.Err)
}

// UpstreamRejectedError is a 4xx business rejection from the provider.
// It is never retried automatically.
type UpstreamRejectedError struct {
	Op         string
	StatusCode int
	// Code is the provider's error code when one was reported (e.g. "invalid_grant").
	Code    string
	Message string
}

func (e *UpstreamRejectedError) Error() string {
	return fmt.Sprintf("%s: upstream rejected (status %d): %s", e.Op, e.StatusCode, describe(e.Code, e.Message, nil))
}

func (e *UpstreamRejectedError) Unwrap() error {
	return ErrUpstreamRejected
}

// PartialSyncError reports a reply that was accepted upstream but could not be
// written locally. It carries everything needed to repeat the local write
// without resending the reply.
type PartialSyncError struct {
	ReviewID  string
	Reply     string
	RepliedAt time.Time
	Err       error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("review %s: reply published upstream but not saved locally: %v", e.ReviewID, e.Err)
}

func (e *PartialSyncError) Unwrap() []error {
	return nonNil(ErrPartialSync, e.Err)
}

// IsRetryable returns true if err is a transient upstream failure.
func IsRetryable(err error) bool {
	var unavailable *UpstreamUnavailableError
	return errors.As(err, &unavailable)
}

// RequiresReauth returns true if err can only be fixed by re-authorizing the account.
func RequiresReauth(err error) bool {
	return errors.Is(err, ErrReauthRequired)
}

func describe(code, description string, err error) string {
	switch {
	case code != "" && description != "":
		return code + " - " + description
	case code != "":
		return code
	case description != "":
		return description
	case err != nil:
		return err.Error()
	default:
		return "no details"
	}
}

func nonNil(errs ...error) []error {
	out := errs[:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
