package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/scry-reader/internal/domain"
)

// Runner lifecycle errors
var (
	ErrRunnerStarted = errors.New("extraction runner already started")
	ErrRunnerStopped = errors.New("extraction runner already stopped")
)

// RunnerConfig holds configuration for the extraction runner
type RunnerConfig struct {
	// RecoverOnStart re-enqueues document sources left pending or
	// processing by a previous process when the runner starts.
	RecoverOnStart bool

	// RecoverLimit caps how many sources per status are recovered.
	// If zero, defaults to 1000.
	RecoverLimit int
}

// DefaultRunnerConfig returns a RunnerConfig with recovery disabled.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		RecoverOnStart: false,
		RecoverLimit:   1000,
	}
}

// ExtractionRunner owns the extraction queue and the goroutine running
// the worker loop. A runner is single-use: Stop closes the queue, and a
// stopped runner cannot be started again.
type ExtractionRunner struct {
	queue   *ExtractionQueue
	worker  *ExtractionWorker
	sources SourceLister
	config  RunnerConfig
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewExtractionRunner creates a runner. sources may be nil when recovery
// is disabled.
func NewExtractionRunner(
	queue *ExtractionQueue,
	worker *ExtractionWorker,
	sources SourceLister,
	config RunnerConfig,
	logger *slog.Logger,
) *ExtractionRunner {
	if config.RecoverLimit <= 0 {
		config.RecoverLimit = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExtractionRunner{
		queue:   queue,
		worker:  worker,
		sources: sources,
		config:  config,
		logger:  logger.With("component", "extraction_runner"),
	}
}

// Start launches the worker loop. The loop stops when ctx is cancelled or
// Stop is called.
func (r *ExtractionRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerStopped
	}
	if r.started {
		return ErrRunnerStarted
	}

	if r.config.RecoverOnStart {
		if _, err := r.Recover(ctx); err != nil {
			return fmt.Errorf("failed to recover extraction jobs: %w", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go func() {
		defer close(r.done)
		r.worker.Run(loopCtx)
	}()

	r.logger.Info("extraction runner started", "recover_on_start", r.config.RecoverOnStart)
	return nil
}

// Stop cancels the worker loop, waits for the job in progress to finish
// and closes the queue. Jobs still queued are dropped.
func (r *ExtractionRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if !r.started {
		r.queue.Close()
		return
	}

	r.cancel()
	<-r.done
	r.queue.Close()
	r.started = false

	r.logger.Info("extraction runner stopped", "dropped_jobs", r.queue.Len())
}

// EnqueueExtraction queues text extraction for a source. Callers must
// persist the source and its document first.
func (r *ExtractionRunner) EnqueueExtraction(sourceID string) error {
	_, err := r.queue.Enqueue(sourceID)
	return err
}

// Recover enqueues document sources that a previous process left pending
// or processing and returns how many were queued.
func (r *ExtractionRunner) Recover(ctx context.Context) (int, error) {
	if r.sources == nil {
		return 0, errors.New("no source lister configured for recovery")
	}

	queued := 0
	for _, status := range []domain.ExtractionStatus{
		domain.ExtractionStatusProcessing,
		domain.ExtractionStatusPending,
	} {
		sources, err := r.sources.FindByExtractionStatus(ctx, status, r.config.RecoverLimit)
		if err != nil {
			return queued, fmt.Errorf("failed to list %s sources: %w", status, err)
		}

		for _, source := range sources {
			if _, err := r.queue.Enqueue(source.ID.String()); err != nil {
				return queued, err
			}
			queued++
		}

		r.logger.Info("recovered extraction jobs", "status", status, "count", len(sources))
		if len(sources) >= r.config.RecoverLimit {
			r.logger.Warn("recovery limit reached, more sources may remain",
				"status", status,
				"limit", r.config.RecoverLimit)
		}
	}

	return queued, nil
}
