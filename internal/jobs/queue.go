package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const retryBackoffStep = 50 * time.Millisecond

// Job is one unit of background work.
type Job struct {
	ID      string
	Kind    string
	Payload map[string]string
}

// Handler processes a job. Returning an error wrapped with Transient makes
// the queue retry; any other error dead-letters immediately.
type Handler func(ctx context.Context, job Job) error

type transientError struct {
	err error
}

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Transient marks an error as retryable.
func Transient(err error) error {
	return transientError{err: err}
}

// IsTransient reports whether the error was marked retryable.
func IsTransient(err error) bool {
	var te transientError
	return errors.As(err, &te)
}

// Stats counts queue outcomes.
type Stats struct {
	Processed  int
	Failed     int
	DeadLetter int
}

// Queue is a bounded in-process job queue with retry and dead-letter
// accounting. One worker goroutine drains it; job failure never propagates
// to the enqueue site.
type Queue struct {
	jobs        chan Job
	maxAttempts int
	logger      *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	stats    Stats
}

// New constructs a Queue with the given buffer size and retry budget.
func New(size, maxAttempts int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:        make(chan Job, size),
		maxAttempts: maxAttempts,
		logger:      logger,
		handlers:    make(map[string]Handler),
	}
}

// Register binds a handler to a job kind. Must be called before Run.
func (q *Queue) Register(kind string, h Handler) {
	q.mu.Lock()
	q.handlers[kind] = h
	q.mu.Unlock()
}

// Enqueue offers a job without blocking. It reports false when the queue is
// full; the caller treats that as a dropped fire-and-forget job.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		q.logger.Warn("job queue full, dropping job", "kind", job.Kind, "job_id", job.ID)
		return false
	}
}

// Run drains the queue until the context is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

// Stats returns a snapshot of outcome counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue) process(ctx context.Context, job Job) {
	q.mu.Lock()
	handler, ok := q.handlers[job.Kind]
	q.mu.Unlock()
	if !ok {
		q.deadLetter(job, fmt.Errorf("no handler for kind %q", job.Kind))
		return
	}

	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		err = handler(ctx, job)
		if err == nil {
			q.mu.Lock()
			q.stats.Processed++
			q.mu.Unlock()
			return
		}
		if attempt < q.maxAttempts && IsTransient(err) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * retryBackoffStep):
			}
			continue
		}
		break
	}
	q.deadLetter(job, err)
}

func (q *Queue) deadLetter(job Job, err error) {
	q.mu.Lock()
	q.stats.Failed++
	q.stats.DeadLetter++
	q.mu.Unlock()
	q.logger.Error("job dead-lettered", "kind", job.Kind, "job_id", job.ID, "error", err)
}
