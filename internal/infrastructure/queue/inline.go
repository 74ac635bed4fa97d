package queue

import (
	"context"
	"errors"
	"sync"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
)

// InlineQueue runs the bound handler synchronously inside Enqueue. It serves
// one-shot CLI runs where no worker is listening.
type InlineQueue struct {
	mu      sync.RWMutex
	handler ports.TaskHandler
	results []domain.Outcome
}

var _ ports.TaskQueue = (*InlineQueue)(nil)

// NewInlineQueue creates an unbound queue.
func NewInlineQueue() *InlineQueue {
	return &InlineQueue{}
}

// Bind sets the handler every enqueued task is passed to.
func (q *InlineQueue) Bind(handler ports.TaskHandler) {
	q.mu.Lock()
	q.handler = handler
	q.mu.Unlock()
}

func (q *InlineQueue) Enqueue(ctx context.Context, task domain.Task) error {
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return errors.New("inline queue has no handler bound")
	}

	outcome := handler(ctx, task)

	q.mu.Lock()
	q.results = append(q.results, outcome)
	q.mu.Unlock()
	return nil
}

// Consume binds handler and waits for ctx to end.
func (q *InlineQueue) Consume(ctx context.Context, handler ports.TaskHandler) error {
	q.Bind(handler)
	<-ctx.Done()
	return ctx.Err()
}

// Outcomes returns every outcome produced so far, in completion order.
func (q *InlineQueue) Outcomes() []domain.Outcome {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]domain.Outcome(nil), q.results...)
}

func (q *InlineQueue) Close() error { return nil }
