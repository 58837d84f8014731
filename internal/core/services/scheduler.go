package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/listingsync/internal/core/domain"
	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
	"github.com/custodia-labs/listingsync/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of results kept per task.
const historyRetention = 100

// job is a built-in task body. It returns the number of items it handled.
type job struct {
	name string
	run  func(ctx context.Context, task *domain.ScheduledTask) (int, error)
}

// Scheduler runs token refresh and account sync on their intervals.
// Task state lives in the SchedulerStore so runs survive restarts.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	jobs   map[string]job
	order  []string
	tick   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	running bool
	busy    map[string]bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler wires the refresh and sync jobs. A nil orchestrator or
// credential manager turns the matching job into a no-op.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	creds driving.CredentialManager,
) *Scheduler {
	s := &Scheduler{
		config: config,
		store:  store,
		jobs:   make(map[string]job),
		tick:   time.Minute,
		now:    time.Now,
		busy:   make(map[string]bool),
	}

	s.register(domain.TaskIDOAuthRefresh, "OAuth Token Refresh",
		func(ctx context.Context, task *domain.ScheduledTask) (int, error) {
			if creds == nil {
				return 0, nil
			}
			// Anything expiring before the next run is refreshed now.
			return creds.RefreshExpiring(ctx, task.Interval)
		})
	s.register(domain.TaskIDAccountSync, "Account Sync",
		func(ctx context.Context, _ *domain.ScheduledTask) (int, error) {
			if syncOrch == nil {
				return 0, nil
			}
			results, err := syncOrch.SyncAll(ctx)
			reviews := 0
			for _, r := range results {
				reviews += r.ReviewsSynced
			}
			return reviews, err
		})

	return s
}

func (s *Scheduler) register(id, name string, run func(context.Context, *domain.ScheduledTask) (int, error)) {
	s.jobs[id] = job{name: name, run: run}
	s.order = append(s.order, id)
}

// Start runs the scheduler loop until Stop is called or ctx is cancelled.
// Calling Start on a running scheduler returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("Scheduler disabled")
	} else if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	if s.config.Enabled {
		s.checkAndRunDueTasks(ctx)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			if s.config.Enabled {
				s.checkAndRunDueTasks(ctx)
			}
		}
	}
}

// Stop ends the loop and waits for in-flight tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks makes sure every registered job has a stored task.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range s.order {
		if err := s.ensureTask(ctx, id, s.jobs[id].name, s.config.GetTaskConfig(id)); err != nil {
			return fmt.Errorf("ensure task %s: %w", id, err)
		}
	}
	return nil
}

// ensureTask reconciles the stored task with cfg. New tasks are due
// immediately; an interval change pushes the next run out by the new
// interval.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	switch {
	case task == nil:
		task = &domain.ScheduledTask{ID: id, Name: name, NextRun: now}
	case task.Interval != cfg.Interval:
		task.NextRun = now.Add(cfg.Interval)
	}
	task.Interval = cfg.Interval
	task.Enabled = cfg.Enabled

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask starts task in the background unless it is unknown or still
// running from an earlier tick.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	j, ok := s.jobs[task.ID]
	if !ok {
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}

	s.mu.Lock()
	if s.busy[task.ID] {
		s.mu.Unlock()
		return
	}
	s.busy[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.busy, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
		n, err := j.run(ctx, task)
		result.ItemsProcessed = n
		result.EndedAt = s.now()
		s.finish(ctx, task, result, err)
	}()
}

// finish stores the outcome of one run and schedules the next.
func (s *Scheduler) finish(ctx context.Context, task *domain.ScheduledTask, result *domain.TaskResult, err error) {
	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)
	if err != nil {
		result.Error = err.Error()
		task.LastError = result.Error
		logger.Warn("scheduler: task %s failed: %v", task.ID, err)
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Error("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Error("scheduler: failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		logger.Error("scheduler: failed to prune history: %v", err)
	}
}
