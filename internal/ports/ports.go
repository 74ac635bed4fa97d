package ports

import (
	"context"
	"time"

	"MarketPulse/internal/domain"
)

// ArticleStore persists articles keyed by url fingerprint.
type ArticleStore interface {
	// Exists reports whether an article with the fingerprint or the exact url is stored.
	Exists(ctx context.Context, fingerprint, url string) (bool, error)
	// Insert returns the store-assigned id or domain.ErrDuplicateArticle.
	Insert(ctx context.Context, article domain.Article) (int64, error)
	// Get returns domain.ErrArticleNotFound for unknown ids.
	Get(ctx context.Context, id int64) (domain.Article, error)
	Update(ctx context.Context, article domain.Article) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArticleSource produces candidate articles from every configured site.
type ArticleSource interface {
	ScrapeAll(ctx context.Context) []domain.ScrapeResult
}

// CacheStats describes the response cache backend.
type CacheStats struct {
	Backend string        `json:"backend"`
	TTL     time.Duration `json:"ttl"`
	Entries int64         `json:"entries"`
	Status  string        `json:"status"`
}

// ResponseCache maps (payload, kind) to a prior LLM output.
type ResponseCache interface {
	Get(ctx context.Context, payload, kind string) (string, bool)
	Put(ctx context.Context, payload, kind, value string, ttl time.Duration)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) CacheStats
}

// CompletionRequest is a single prompt sent to the LLM provider.
type CompletionRequest struct {
	Prompt          string
	Model           string
	ReasoningEffort string
	Verbosity       string
}

// Usage is the token usage reported by the provider; zero when unknown.
type Usage struct {
	InputTokens       int
	CachedInputTokens int
	OutputTokens      int
}

// Completion is the provider answer.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// LLMProvider issues completions against a hosted model.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Close() error
}

// MailTransport delivers rendered notifications.
type MailTransport interface {
	// Send returns the delivery status code of the provider.
	Send(ctx context.Context, msg domain.MailMessage) (int, error)
}

// TaskHandler processes one task taken from the queue.
type TaskHandler func(ctx context.Context, task domain.Task) domain.Outcome

// TaskQueue carries tasks between producers and workers with at-least-once delivery.
type TaskQueue interface {
	Enqueue(ctx context.Context, task domain.Task) error
	// Consume blocks, feeding tasks to handler until ctx is done. Safe to call
	// from several goroutines.
	Consume(ctx context.Context, handler TaskHandler) error
	Close() error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Add(spec string, job func()) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Enricher produces summaries and scored suggestions for article bodies.
// ok is false when the model returned nothing usable.
type Enricher interface {
	Summarize(ctx context.Context, body string) (string, bool)
	Suggest(ctx context.Context, body, summary string) (domain.Suggestion, bool)
}

// Notifier sends high-confidence alerts for enriched articles.
type Notifier interface {
	Dispatch(ctx context.Context, article domain.Article) (bool, error)
}
