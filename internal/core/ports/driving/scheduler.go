package driving

import "context"

// Scheduler runs background token refresh and account sync.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for running tasks to finish.
	Stop() error
}
