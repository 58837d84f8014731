package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/logger"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// upstream runs outbound calls under the call timeout and retries
// transient failures with exponential backoff.
type upstream struct {
	policy domain.SyncPolicy
	sleep  sleepFunc
}

func newUpstream(o options) upstream {
	return upstream{policy: o.policy, sleep: o.sleep}
}

// callOnce makes a single attempt. A timeout becomes *domain.UpstreamUnavailableError.
func callOnce[T any](ctx context.Context, u upstream, op string, fn func(context.Context) (T, error)) (T, error) {
	callCtx := ctx
	if u.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, u.policy.CallTimeout)
		defer cancel()
	}

	v, err := fn(callCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !domain.IsRetryable(err) {
		var zero T
		return zero, &domain.UpstreamUnavailableError{Op: op, Err: err}
	}
	return v, err
}

// call retries callOnce while the error is retryable and attempts remain.
func call[T any](ctx context.Context, u upstream, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := max(u.policy.MaxAttempts, 1)
	backoff := u.policy.BaseBackoff

	for attempt := 1; ; attempt++ {
		v, err := callOnce(ctx, u, op, fn)
		if err == nil || !domain.IsRetryable(err) || attempt >= attempts {
			return v, err
		}

		logger.Debug("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, backoff, err)
		if sleepErr := u.sleep(ctx, backoff); sleepErr != nil {
			return v, err
		}
		backoff *= 2
	}
}
