package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the ExtractionQueue
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrQueueClosed     = errors.New("extraction queue is closed")
)

// Job is one queued request to extract a source's text. It only carries
// the source id; the worker reloads everything else when it runs the job.
type Job struct {
	ID         uuid.UUID
	SourceID   string
	EnqueuedAt time.Time
}

// ExtractionQueue is an unbounded FIFO queue with any number of producers
// and a single consumer. Enqueue never blocks; Dequeue waits for work.
type ExtractionQueue struct {
	mu     sync.Mutex
	items  []Job
	closed bool

	// signal holds at most one pending wake-up for the consumer.
	signal chan struct{}
	done   chan struct{}

	logger *slog.Logger
}

// NewExtractionQueue creates an empty queue.
func NewExtractionQueue(logger *slog.Logger) *ExtractionQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger.With("component", "extraction_queue"),
	}
}

// Enqueue appends a job for sourceID to the tail of the queue.
// Returns ErrInvalidArgument for a blank id and ErrQueueClosed after Close.
func (q *ExtractionQueue) Enqueue(sourceID string) (Job, error) {
	if strings.TrimSpace(sourceID) == "" {
		return Job{}, fmt.Errorf("%w: source ID cannot be blank", ErrInvalidArgument)
	}

	job := Job{
		ID:         uuid.New(),
		SourceID:   sourceID,
		EnqueuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Job{}, ErrQueueClosed
	}
	q.items = append(q.items, job)
	depth := len(q.items)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}

	q.logger.Debug("extraction job enqueued",
		"job_id", job.ID,
		"source_id", sourceID,
		"queue_depth", depth)
	return job, nil
}

// Dequeue removes and returns the job at the head of the queue. When the
// queue is empty it waits until a job arrives, ctx is done or the queue is
// closed; the last two return false. Only one goroutine may call Dequeue
// at a time.
func (q *ExtractionQueue) Dequeue(ctx context.Context) (Job, bool) {
	for {
		if ctx.Err() != nil {
			return Job{}, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = Job{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return job, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Job{}, false
		}

		select {
		case <-ctx.Done():
			return Job{}, false
		case <-q.done:
		case <-q.signal:
		}
	}
}

// Len returns the number of jobs waiting in the queue.
func (q *ExtractionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue from accepting jobs and releases a waiting
// consumer. Jobs already queued can still be dequeued. Close is idempotent.
func (q *ExtractionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
	q.logger.Info("extraction queue closed", "remaining_jobs", len(q.items))
}
