package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue implements Queue in process memory for single-node gateways.
type MemoryQueue struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	pending chan string
	done    chan struct{}
	once    sync.Once
}

// NewMemoryQueue creates a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(map[string]Job),
		pending: make(chan string, capacity),
		done:    make(chan struct{}),
	}
}

// Push enqueues job without blocking. It fails with ErrQueueFull when
// capacity jobs are already waiting.
func (q *MemoryQueue) Push(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.pending <- job.ID:
		q.jobs[job.ID] = *job
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	select {
	case id := <-q.pending:
		return q.Get(ctx, id)
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	q.jobs[job.ID] = *job
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, id string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

// Len returns the number of jobs waiting to be popped.
func (q *MemoryQueue) Len() int {
	return len(q.pending)
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
