package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// Option configures the sync services.
type Option func(*options)

type options struct {
	now    func() time.Time
	newID  func() string
	policy domain.SyncPolicy
	sleep  sleepFunc
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPolicy sets the retry, timeout and paging policy.
func WithPolicy(policy domain.SyncPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// WithIDGenerator overrides uuid.NewString for new rows.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		newID:  uuid.NewString,
		policy: domain.DefaultSyncPolicy(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
