package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

// Scheduler enqueues the recurring scrape and purge tasks on a cron driver.
type Scheduler struct {
	driver     ports.Scheduler
	queue      ports.TaskQueue
	scrapeSpec string
	purgeSpec  string
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs. An empty spec
// disables that job.
func NewScheduler(driver ports.Scheduler, queue ports.TaskQueue, scrapeSpec, purgeSpec string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:     driver,
		queue:      queue,
		scrapeSpec: scrapeSpec,
		purgeSpec:  purgeSpec,
		logger:     logger.OrDiscard(log).With("component", "schedule"),
	}
}

// Start registers both jobs and starts the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.queue == nil {
		return nil
	}

	jobs := []struct {
		spec string
		kind domain.TaskKind
	}{
		{s.scrapeSpec, domain.TaskScrape},
		{s.purgeSpec, domain.TaskPurge},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		kind := job.kind
		if err := s.driver.Add(job.spec, func() { s.fire(ctx, kind) }); err != nil {
			return fmt.Errorf("schedule %s: %w", kind, err)
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) fire(ctx context.Context, kind domain.TaskKind) {
	task, err := Trigger(ctx, s.queue, kind)
	if err != nil {
		s.logger.Error("scheduled task not queued", "kind", kind, "err", err)
		return
	}
	s.logger.Info("scheduled task queued", "kind", kind, "task_id", task.ID)
}

// Trigger enqueues a fresh task of kind and returns it.
func Trigger(ctx context.Context, queue ports.TaskQueue, kind domain.TaskKind) (domain.Task, error) {
	task := domain.NewTask(kind)
	if err := queue.Enqueue(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return task, nil
}
