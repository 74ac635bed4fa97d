package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

// DefaultRetention is how long articles are kept before a purge removes them.
const DefaultRetention = 30 * 24 * time.Hour

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.ArticleSource
	Store     ports.ArticleStore
	Queue     ports.TaskQueue
	Enricher  ports.Enricher
	Notifier  ports.Notifier
	Retention time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Pipeline implements the scrape, dedupe, enrich and notify workflow. Each
// stage is a task so that it can run on any worker.
type Pipeline struct {
	source    ports.ArticleSource
	store     ports.ArticleStore
	queue     ports.TaskQueue
	enricher  ports.Enricher
	notifier  ports.Notifier
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	retention := deps.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:    deps.Source,
		store:     deps.Store,
		queue:     deps.Queue,
		enricher:  deps.Enricher,
		notifier:  deps.Notifier,
		retention: retention,
		logger:    logger.OrDiscard(deps.Logger).With("component", "pipeline"),
		now:       now,
	}
}

// Handle runs the stage named by task.Kind.
func (p *Pipeline) Handle(ctx context.Context, task domain.Task) domain.Outcome {
	started := time.Now()

	var out domain.Outcome
	switch task.Kind {
	case domain.TaskScrape:
		out = p.RunScrape(ctx)
	case domain.TaskEnrichBatch:
		out = p.RunBatch(ctx, task.ArticleIDs)
	case domain.TaskEnrichArticle:
		out = p.RunEnrich(ctx, task.ArticleID)
	case domain.TaskPurge:
		out = p.RunPurge(ctx)
	default:
		out = domain.Failed(task.Kind, fmt.Sprintf("unknown task kind %q", task.Kind))
	}
	out.TaskID = task.ID

	metrics.RecordTask(string(task.Kind), string(out.Status), time.Since(started))
	return out
}

// RunScrape collects candidates from every source, stores the unseen ones
// and queues a single enrichment batch for them.
func (p *Pipeline) RunScrape(ctx context.Context) domain.Outcome {
	out := domain.Outcome{Kind: domain.TaskScrape, Status: domain.StatusSuccess}
	if p.source == nil || p.store == nil {
		return domain.Failed(domain.TaskScrape, "scrape pipeline not configured")
	}

	results := p.source.ScrapeAll(ctx)
	out.Discovered = len(results)

	var created []int64
	for _, res := range results {
		if ctx.Err() != nil {
			break
		}
		article := domain.NewArticle(res)

		exists, err := p.store.Exists(ctx, article.Fingerprint, article.URL)
		if err != nil {
			p.logger.Error("dedupe lookup failed", "url", article.URL, "err", err)
			metrics.ArticlesStored.WithLabelValues("error").Inc()
			continue
		}
		if exists {
			out.Existing++
			metrics.ArticlesStored.WithLabelValues("duplicate").Inc()
			p.logger.Debug("article already stored", "url", article.URL)
			continue
		}

		id, err := p.store.Insert(ctx, article)
		switch {
		case errors.Is(err, domain.ErrDuplicateArticle):
			out.Existing++
			metrics.ArticlesStored.WithLabelValues("duplicate").Inc()
			continue
		case err != nil:
			p.logger.Error("insert article failed", "url", article.URL, "err", err)
			metrics.ArticlesStored.WithLabelValues("error").Inc()
			continue
		}

		created = append(created, id)
		metrics.ArticlesStored.WithLabelValues("created").Inc()
		p.logger.Info("article stored", "id", id, "source", article.Source, "title", article.ShortTitle(50))
	}
	out.Created = len(created)

	if len(created) > 0 {
		task := domain.NewTask(domain.TaskEnrichBatch)
		task.ArticleIDs = created
		if err := p.enqueue(ctx, task); err != nil {
			out.Status = domain.StatusError
			out.Detail = err.Error()
		} else {
			out.Queued = len(created)
		}
	}

	p.logger.Info("scrape finished",
		"discovered", out.Discovered,
		"existing", out.Existing,
		"created", out.Created,
		"queued", out.Queued,
	)
	return out
}

// RunBatch fans a batch out into one enrichment task per article.
func (p *Pipeline) RunBatch(ctx context.Context, ids []int64) domain.Outcome {
	out := domain.Outcome{Kind: domain.TaskEnrichBatch, Status: domain.StatusSuccess}

	var failed []error
	for _, id := range ids {
		task := domain.NewTask(domain.TaskEnrichArticle)
		task.ArticleID = id
		if err := p.enqueue(ctx, task); err != nil {
			failed = append(failed, err)
			continue
		}
		out.Queued++
	}

	if len(failed) > 0 {
		out.Status = domain.StatusError
		out.Detail = errors.Join(failed...).Error()
	}
	p.logger.Info("batch queued", "articles", len(ids), "queued", out.Queued)
	return out
}

// RunEnrich summarizes and scores one stored article, persists the result
// and sends an alert when the score clears the notification threshold.
func (p *Pipeline) RunEnrich(ctx context.Context, id int64) domain.Outcome {
	out := domain.Outcome{Kind: domain.TaskEnrichArticle, ArticleID: id}
	if p.store == nil || p.enricher == nil {
		out.Status = domain.StatusError
		out.Detail = "enrichment pipeline not configured"
		return out
	}

	article, err := p.store.Get(ctx, id)
	if errors.Is(err, domain.ErrArticleNotFound) {
		p.logger.Error("article not found", "id", id)
		out.Status = domain.StatusError
		out.Detail = "Article not found"
		return out
	}
	if err != nil {
		out.Status = domain.StatusError
		out.Detail = fmt.Sprintf("load article %d: %v", id, err)
		return out
	}

	summary, hasSummary := p.enricher.Summarize(ctx, article.Body)
	if !hasSummary {
		summary = ""
	}
	suggestion, hasSuggestion := p.enricher.Suggest(ctx, article.Body, summary)

	article.ApplyEnrichment(summary, hasSummary, suggestion, hasSuggestion)
	if err := p.store.Update(ctx, article); err != nil {
		out.Status = domain.StatusError
		out.Detail = fmt.Sprintf("update article %d: %v", id, err)
		return out
	}

	out.Status = domain.StatusSuccess
	out.SummaryGenerated = hasSummary
	out.SuggestionGenerated = hasSuggestion
	out.ConfidenceScore = article.ConfidenceScore

	if p.notifier != nil {
		sent, err := p.notifier.Dispatch(ctx, article)
		if err != nil {
			p.logger.Error("alert dispatch failed", "id", id, "err", err)
		}
		out.Notified = sent
	}

	p.logger.Info("article enriched",
		"id", id,
		"summary", hasSummary,
		"suggestion", hasSuggestion,
		"notified", out.Notified,
	)
	return out
}

// RunPurge deletes articles created before the retention window.
func (p *Pipeline) RunPurge(ctx context.Context) domain.Outcome {
	if p.store == nil {
		return domain.Failed(domain.TaskPurge, "purge pipeline not configured")
	}

	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("purge failed", "cutoff", cutoff, "err", err)
		return domain.Failed(domain.TaskPurge, err.Error())
	}

	p.logger.Info("purge finished", "cutoff", cutoff, "deleted", deleted)
	return domain.Outcome{Kind: domain.TaskPurge, Status: domain.StatusSuccess, Deleted: deleted}
}

func (p *Pipeline) enqueue(ctx context.Context, task domain.Task) error {
	if p.queue == nil {
		return fmt.Errorf("enqueue %s: no task queue", task.Kind)
	}
	if err := p.queue.Enqueue(ctx, task); err != nil {
		p.logger.Error("enqueue failed", "kind", task.Kind, "task_id", task.ID, "err", err)
		return fmt.Errorf("enqueue %s: %w", task.Kind, err)
	}
	return nil
}
