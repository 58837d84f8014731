package domain

import "time"

// Task IDs for built-in tasks.
const (
	// TaskIDOAuthRefresh proactively refreshes access tokens that are about to expire.
	TaskIDOAuthRefresh = "oauth-refresh"
	// TaskIDAccountSync syncs locations and reviews for every stored account.
	TaskIDAccountSync = "account-sync"
)

// ScheduledTask is a recurring background task and its last outcome.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	// LastError is empty when the last run succeeded.
	LastError string
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// TaskResult records one execution of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts reviews synced or tokens refreshed.
	ItemsProcessed int
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	TaskConfigs map[string]TaskConfig
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig refreshes tokens every 45 minutes, ahead of the
// usual one-hour access token lifetime, and syncs accounts hourly.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDOAuthRefresh: {Enabled: true, Interval: 45 * time.Minute},
			TaskIDAccountSync:  {Enabled: true, Interval: time.Hour},
		},
	}
}
