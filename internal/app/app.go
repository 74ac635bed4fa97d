package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"MarketPulse/internal/config"
	"MarketPulse/internal/domain"
	"MarketPulse/internal/enrichment"
	"MarketPulse/internal/httpapi"
	"MarketPulse/internal/infrastructure/cache"
	"MarketPulse/internal/infrastructure/llm"
	"MarketPulse/internal/infrastructure/parser"
	"MarketPulse/internal/infrastructure/queue"
	"MarketPulse/internal/infrastructure/scheduler"
	"MarketPulse/internal/infrastructure/sendgrid"
	"MarketPulse/internal/infrastructure/storage"
	"MarketPulse/internal/logging"
	"MarketPulse/internal/notify"
	"MarketPulse/internal/ports"
	"MarketPulse/internal/scanner"
	"MarketPulse/internal/usecase"
)

// ErrLocalQueue is returned when a task would be queued for another process
// but the queue only lives in this one.
var ErrLocalQueue = errors.New("task queue is in-process; set KAFKA_BROKERS to queue tasks for other workers")

// Option tweaks how the application is assembled.
type Option func(*options)

type options struct {
	inline bool
}

// WithInlineQueue runs every queued task synchronously in the caller. Used
// by one-shot commands that have no worker listening.
func WithInlineQueue() Option {
	return func(o *options) { o.inline = true }
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	queue    ports.TaskQueue
	inline   *queue.InlineQueue
	shared   bool
	cache    ports.ResponseCache
	engine   *enrichment.Engine
	gate     *notify.Gate
	pipeline *usecase.Pipeline
	closers  []func() error
}

// New builds the application from configuration, connecting to every
// backend the configuration names.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	responseCache, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = responseCache

	taskQueue, err := a.openQueue(o.inline)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = taskQueue

	var provider ports.LLMProvider
	if cfg.LLM.APIKey != "" {
		client := llm.NewOpenAIClient(cfg.LLM)
		provider = client
		a.closers = append(a.closers, client.Close)
	} else {
		baseLogger.Warn("OPENAI_API_KEY not set, enrichment will use placeholder content")
	}
	a.engine = enrichment.NewEngine(provider, responseCache, cfg.LLM, cfg.Cache.TTL, baseLogger)

	var transport ports.MailTransport
	if cfg.Notifications.SendGrid.APIKey != "" {
		transport = sendgrid.NewClient(cfg.Notifications.SendGrid)
	}
	a.gate = notify.NewGate(cfg.Notifications, transport, baseLogger)

	registry := scanner.NewRegistry()
	parser.Register(registry, parser.Options{
		UserAgent:     cfg.Scraping.UserAgent,
		Timeout:       cfg.Scraping.RequestTimeout,
		RecencyWindow: cfg.Scraping.RecencyWindow,
		Logger:        baseLogger,
	})
	source, err := parser.NewCoordinatorFromSites(registry, cfg.Scraping.Sites, cfg.Scraping.RateLimit, baseLogger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build scrapers: %w", err)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:    source,
		Store:     store,
		Queue:     taskQueue,
		Enricher:  a.engine,
		Notifier:  a.gate,
		Retention: cfg.Retention.Window,
		Logger:    baseLogger,
	})
	if a.inline != nil {
		a.inline.Bind(a.pipeline.Handle)
	}
	return a, nil
}

func (a *Application) openStore(ctx context.Context) (ports.ArticleStore, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("DATABASE_DSN not set, using in-memory article store")
		return storage.NewMemoryRepository(), nil
	}

	db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	repo := storage.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *Application) openCache(ctx context.Context) (ports.ResponseCache, error) {
	if a.cfg.Redis.Addr == "" {
		return cache.NewMemoryCache(a.cfg.Cache.TTL, a.cfg.Cache.MaxEntries), nil
	}

	client, err := cache.Dial(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return cache.NewRedisCache(client, a.cfg.Cache.TTL, a.logger), nil
}

func (a *Application) openQueue(inline bool) (ports.TaskQueue, error) {
	switch {
	case inline:
		a.inline = queue.NewInlineQueue()
		return a.inline, nil
	case len(a.cfg.Kafka.Brokers) == 0:
		a.logger.Info("KAFKA_BROKERS not set, using in-process task queue")
		q := queue.NewChannelQueue(0)
		a.closers = append(a.closers, q.Close)
		return q, nil
	default:
		q, err := queue.NewKafkaQueue(a.cfg.Kafka, a.logger)
		if err != nil {
			return nil, err
		}
		a.shared = true
		a.closers = append(a.closers, q.Close)
		return q, nil
	}
}

// Serve runs the HTTP surface and the cron schedule until ctx is done. With
// withWorker it also consumes the task queue in the same process.
func (a *Application) Serve(ctx context.Context, withWorker bool) error {
	if !withWorker && !a.shared {
		return ErrLocalQueue
	}

	g, ctx := errgroup.WithContext(ctx)

	sched := usecase.NewScheduler(
		scheduler.NewCronScheduler(a.cfg.Scheduler.Location(), a.logger),
		a.queue,
		a.cfg.Scheduler.ScrapeCron,
		a.cfg.Scheduler.PurgeCron,
		a.logger,
	)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	api := httpapi.NewServer(a.queue, a.gate, a.logger)
	g.Go(func() error { return api.ListenAndServe(ctx, a.cfg.HTTP.Addr) })

	if withWorker {
		g.Go(func() error { return a.Work(ctx) })
	}

	return g.Wait()
}

// Work consumes the task queue until ctx is done.
func (a *Application) Work(ctx context.Context) error {
	return usecase.NewWorker(a.queue, a.pipeline, a.cfg.Worker.Concurrency, a.logger).Run(ctx)
}

// RunOnce executes a task of kind in the calling goroutine and returns its
// outcome followed by the outcomes of every task it queued. It requires the
// inline queue.
func (a *Application) RunOnce(ctx context.Context, kind domain.TaskKind) ([]domain.Outcome, error) {
	if a.inline == nil {
		return nil, errors.New("run once requires the inline queue")
	}

	out := a.pipeline.Handle(ctx, domain.NewTask(kind))
	usecase.LogOutcome(a.logger, out)
	return append([]domain.Outcome{out}, a.inline.Outcomes()...), nil
}

// Enqueue places a task of kind on the shared queue for a worker. An
// in-process queue is refused since the task would die with this process.
func (a *Application) Enqueue(ctx context.Context, kind domain.TaskKind) (domain.Task, error) {
	if !a.shared {
		return domain.Task{}, ErrLocalQueue
	}
	return usecase.Trigger(ctx, a.queue, kind)
}

// Cache exposes the LLM response cache for maintenance commands.
func (a *Application) Cache() ports.ResponseCache {
	return a.cache
}

// Notifications exposes the notification gate for status and test commands.
func (a *Application) Notifications() *notify.Gate {
	return a.gate
}

// Engine exposes the enrichment engine for cost estimation.
func (a *Application) Engine() *enrichment.Engine {
	return a.engine
}

// Close releases every backend connection in reverse order of opening.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
