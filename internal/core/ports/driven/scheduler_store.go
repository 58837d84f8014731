package driven

import (
	"context"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// SchedulerStore keeps scheduled task state and run history across restarts.
type SchedulerStore interface {
	// GetTask returns nil and no error if the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or updates the task by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	DeleteTask(ctx context.Context, taskID string) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns the most recent results first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep results per task.
	PruneHistory(ctx context.Context, keep int) error
}
