package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// MemoryQueue is a bounded in-process queue for tests and local runs.
type MemoryQueue struct {
	ch chan []byte
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{ch: make(chan []byte, capacity)}
}

// Enqueue fails with common.ErrQueue when the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	b, err := encode(job)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrQueue, err)
	}
	select {
	case q.ch <- b:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", common.ErrQueue, ctx.Err())
	default:
		return fmt.Errorf("%w: queue is full", common.ErrQueue)
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b := <-q.ch:
		return decode(b)
	case <-timer.C:
		return nil, ErrNoJob
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack is a no-op: a dequeued job has already left the channel.
func (q *MemoryQueue) Ack(context.Context, *Job) error { return nil }

func (q *MemoryQueue) Len() int { return len(q.ch) }
