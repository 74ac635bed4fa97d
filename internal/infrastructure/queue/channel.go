package queue

import (
	"context"
	"errors"
	"sync"

	"MarketPulse/internal/domain"
	"MarketPulse/internal/ports"
)

// ErrClosed is returned when enqueueing onto a closed queue.
var ErrClosed = errors.New("task queue closed")

// ChannelQueue is an in-process queue backed by a buffered channel. The
// channel is never closed; done signals shutdown to producers and consumers.
type ChannelQueue struct {
	tasks chan domain.Task
	done  chan struct{}
	once  sync.Once
}

var _ ports.TaskQueue = (*ChannelQueue)(nil)

// NewChannelQueue creates a queue holding up to capacity pending tasks.
func NewChannelQueue(capacity int) *ChannelQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &ChannelQueue{
		tasks: make(chan domain.Task, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue blocks while the buffer is full, until ctx is done or the queue
// is closed.
func (q *ChannelQueue) Enqueue(ctx context.Context, task domain.Task) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume handles tasks until ctx is done or the queue is closed and drained.
func (q *ChannelQueue) Consume(ctx context.Context, handler ports.TaskHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-q.tasks:
			handler(ctx, task)
		case <-q.done:
			return q.drain(ctx, handler)
		}
	}
}

func (q *ChannelQueue) drain(ctx context.Context, handler ports.TaskHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case task := <-q.tasks:
			handler(ctx, task)
		default:
			return nil
		}
	}
}

// Close stops accepting tasks and wakes blocked producers; consumers drain
// what is buffered.
func (q *ChannelQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
