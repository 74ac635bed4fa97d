package usecase

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

// Worker consumes the task queue with a fixed number of concurrent
// consumers, each feeding tasks to the pipeline.
type Worker struct {
	queue       ports.TaskQueue
	pipeline    *Pipeline
	concurrency int
	logger      *slog.Logger
}

// NewWorker builds a worker; concurrency below one means a single consumer.
func NewWorker(queue ports.TaskQueue, pipeline *Pipeline, concurrency int, log *slog.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:       queue,
		pipeline:    pipeline,
		concurrency: concurrency,
		logger:      logger.OrDiscard(log).With("component", "worker"),
	}
}

// Run blocks until ctx is done or a consumer fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "concurrency", w.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := range w.concurrency {
		g.Go(func() error {
			err := w.queue.Consume(ctx, w.handle)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("consumer stopped", "consumer", i, "err", err)
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	w.logger.Info("worker stopped")
	return err
}

func (w *Worker) handle(ctx context.Context, task domain.Task) domain.Outcome {
	out := w.pipeline.Handle(ctx, task)
	LogOutcome(w.logger, out)
	return out
}

// LogOutcome writes the structured task report.
func LogOutcome(log *slog.Logger, out domain.Outcome) {
	attrs := []any{"task_id", out.TaskID, "kind", out.Kind, "status", out.Status}
	if out.Detail != "" {
		attrs = append(attrs, "detail", out.Detail)
	}
	switch out.Kind {
	case domain.TaskScrape:
		attrs = append(attrs, "discovered", out.Discovered, "existing", out.Existing, "created", out.Created, "queued", out.Queued)
	case domain.TaskEnrichBatch:
		attrs = append(attrs, "queued", out.Queued)
	case domain.TaskEnrichArticle:
		attrs = append(attrs, "article_id", out.ArticleID, "summary", out.SummaryGenerated, "suggestion", out.SuggestionGenerated, "notified", out.Notified)
		if out.ConfidenceScore != nil {
			attrs = append(attrs, "confidence", *out.ConfidenceScore)
		}
	case domain.TaskPurge:
		attrs = append(attrs, "deleted", out.Deleted)
	}

	if out.Status == domain.StatusError {
		log.Error("task finished", attrs...)
		return
	}
	log.Info("task finished", attrs...)
}
