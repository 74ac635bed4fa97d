package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind names a unit of asynchronous work.
type TaskKind string

const (
	TaskScrape        TaskKind = "scrape"
	TaskEnrichBatch   TaskKind = "enrich_batch"
	TaskEnrichArticle TaskKind = "enrich_article"
	TaskPurge         TaskKind = "purge"
)

// Task is the message carried by the task queue.
type Task struct {
	ID         string    `json:"id"`
	Kind       TaskKind  `json:"kind"`
	ArticleIDs []int64   `json:"article_ids,omitempty"`
	ArticleID  int64     `json:"article_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask stamps a task with a fresh identifier.
func NewTask(kind TaskKind) Task {
	return Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		EnqueuedAt: time.Now().UTC(),
	}
}

// OutcomeStatus is the terminal status of a task.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusError   OutcomeStatus = "error"
)

// Outcome is the structured report every task produces.
type Outcome struct {
	TaskID string        `json:"task_id,omitempty"`
	Kind   TaskKind      `json:"kind"`
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`

	Discovered int `json:"discovered,omitempty"`
	Existing   int `json:"existing,omitempty"`
	Created    int `json:"created,omitempty"`
	Queued     int `json:"queued,omitempty"`

	Deleted int64 `json:"deleted,omitempty"`

	ArticleID           int64    `json:"article_id,omitempty"`
	SummaryGenerated    bool     `json:"summary_generated,omitempty"`
	SuggestionGenerated bool     `json:"suggestion_generated,omitempty"`
	ConfidenceScore     *float64 `json:"confidence_score,omitempty"`
	Notified            bool     `json:"notified,omitempty"`
}

// Failed builds an error outcome.
func Failed(kind TaskKind, detail string) Outcome {
	return Outcome{Kind: kind, Status: StatusError, Detail: detail}
}
