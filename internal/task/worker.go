package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/redact"
	"github.com/phrazzld/scry-reader/internal/store"
)

// Messages recorded on sources whose extraction could not run.
const (
	ErrMsgNoDocument     = "no document found for source"
	ErrMsgDocumentLookup = "failed to load document for source"
	ErrMsgTimeout        = "extraction timed out"
	ErrMsgPersistText    = "failed to save extracted text"
)

// JobOutcome describes what processing a job did to its source.
type JobOutcome string

// Possible job outcomes. A superseded job found its source reset while it
// ran and discarded its result.
const (
	OutcomeSkipped    JobOutcome = "skipped"
	OutcomeCompleted  JobOutcome = "completed"
	OutcomeFailed     JobOutcome = "failed"
	OutcomeSuperseded JobOutcome = "superseded"
)

// Dequeuer is the consumer side of the extraction queue.
type Dequeuer interface {
	Dequeue(ctx context.Context) (Job, bool)
}

// ExtractionWorker consumes extraction jobs one at a time and drives each
// document source through the extraction state machine.
type ExtractionWorker struct {
	queue      Dequeuer
	scopes     ScopeFactory
	files      FileOpener
	extractor  TextExtractor
	logger     *slog.Logger
	jobTimeout time.Duration
	now        func() time.Time
}

// WorkerOption configures an ExtractionWorker.
type WorkerOption func(*ExtractionWorker)

// WithJobTimeout bounds the storage and extraction I/O of each job.
// Zero disables the limit.
func WithJobTimeout(d time.Duration) WorkerOption {
	return func(w *ExtractionWorker) {
		w.jobTimeout = d
	}
}

// WithClock replaces the clock used to stamp completion times.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *ExtractionWorker) {
		w.now = now
	}
}

// NewExtractionWorker creates a worker reading from queue.
func NewExtractionWorker(
	queue Dequeuer,
	scopes ScopeFactory,
	files FileOpener,
	extractor TextExtractor,
	logger *slog.Logger,
	options ...WorkerOption,
) *ExtractionWorker {
	if logger == nil {
		logger = slog.Default()
	}

	w := &ExtractionWorker{
		queue:     queue,
		scopes:    scopes,
		files:     files,
		extractor: extractor,
		logger:    logger.With("component", "extraction_worker"),
		now:       time.Now,
	}

	for _, option := range options {
		option(w)
	}

	return w
}

// Run processes jobs until ctx is cancelled or the queue is closed. A job
// that has started is finished before cancellation is observed.
func (w *ExtractionWorker) Run(ctx context.Context) {
	w.logger.Info("extraction worker started")
	defer w.logger.Info("extraction worker stopped")

	for {
		job, ok := w.queue.Dequeue(ctx)
		if !ok {
			return
		}
		w.ProcessJob(ctx, job)
	}
}

// ProcessJob runs a single job. It never panics and never returns an
// error: every failure ends as a state transition or a log entry.
func (w *ExtractionWorker) ProcessJob(ctx context.Context, job Job) (outcome JobOutcome) {
	// the job finishes even if the loop is being cancelled
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	log := w.logger.With(
		"job_id", job.ID,
		"source_id", job.SourceID,
		"enqueued_at", job.EnqueuedAt,
		"queue_wait_ms", start.Sub(job.EnqueuedAt).Milliseconds(),
	)
	ctx = logger.WithLogger(ctx, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing extraction job", "panic", fmt.Sprint(r))
			outcome = OutcomeSkipped
		}
	}()

	scope, err := w.scopes.NewScope(ctx)
	if err != nil {
		log.Error("failed to open job scope, dropping job", "error", redact.Error(err))
		return OutcomeSkipped
	}
	defer func() {
		if err := scope.Close(); err != nil {
			log.Warn("failed to release job scope", "error", redact.Error(err))
		}
	}()

	outcome = w.process(ctx, log, scope, job)
	log.Info("extraction job finished",
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds())
	return outcome
}

func (w *ExtractionWorker) process(
	ctx context.Context,
	log *slog.Logger,
	scope JobScope,
	job Job,
) (outcome JobOutcome) {
	sources := scope.Sources()

	sourceID, err := uuid.Parse(job.SourceID)
	if err != nil {
		log.Warn("job carries a malformed source id, skipping", "error", err)
		return OutcomeSkipped
	}

	source, err := sources.GetByID(ctx, sourceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("source no longer exists, skipping")
		} else {
			log.Error("failed to load source, skipping", "error", redact.Error(err))
		}
		return OutcomeSkipped
	}

	if source.ShouldSkipExtraction() {
		log.Debug("extraction not needed, skipping",
			"kind", source.Kind,
			"status", source.ExtractionStatus)
		return OutcomeSkipped
	}

	if err := source.StartExtraction(); err != nil {
		log.Error("cannot start extraction", "error", err)
		return OutcomeSkipped
	}
	if err := sources.UpdateExtraction(ctx, source); err != nil {
		log.Error("failed to mark source as processing, skipping", "error", redact.Error(err))
		return OutcomeSkipped
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("extraction panicked", "panic", fmt.Sprint(r))
			outcome = w.fail(ctx, log, sources, source, fmt.Sprintf("extraction panicked: %v", r))
		}
	}()

	doc, err := scope.Documents().GetBySource(ctx, source.UserID, source.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("no document bound to source")
			return w.fail(ctx, log, sources, source, ErrMsgNoDocument)
		}
		log.Error("failed to load document", "error", redact.Error(err))
		return w.fail(ctx, log, sources, source, ErrMsgDocumentLookup)
	}

	log = log.With("document_id", doc.ID, "file_type", doc.FileType)

	text, err := w.extract(ctx, doc)
	if err != nil {
		log.Warn("text extraction failed", "error", redact.Error(err))
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = ErrMsgTimeout
		}
		return w.fail(ctx, log, sources, source, msg)
	}

	if err := source.CompleteExtraction(text, w.now()); err != nil {
		log.Error("cannot complete extraction", "error", err)
		return OutcomeFailed
	}
	if err := sources.FinishExtraction(ctx, source); err != nil {
		if errors.Is(err, store.ErrExtractionSuperseded) {
			log.Info("source changed during extraction, discarding result")
			return OutcomeSuperseded
		}
		log.Error("failed to persist extracted text", "error", redact.Error(err))
		// back to processing so the failure can be recorded instead
		if err := source.StartExtraction(); err != nil {
			log.Error("cannot reopen extraction", "error", err)
			return OutcomeFailed
		}
		return w.fail(ctx, log, sources, source, ErrMsgPersistText)
	}

	log.Debug("extraction completed", "text_bytes", len(text))
	return OutcomeCompleted
}

// extract opens the stored file and runs the extractor under the job timeout.
func (w *ExtractionWorker) extract(ctx context.Context, doc *domain.Document) (string, error) {
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	stream, err := w.files.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = stream.Close() }()

	return w.extractor.Extract(ctx, stream, doc.FileType)
}

// fail records a failed extraction. A failure to persist it is logged and
// swallowed so the loop keeps going. A source reset while the job ran is
// left untouched.
func (w *ExtractionWorker) fail(
	ctx context.Context,
	log *slog.Logger,
	sources SourceRepository,
	source *domain.Source,
	message string,
) JobOutcome {
	if err := source.FailExtraction(message, w.now()); err != nil {
		log.Error("cannot record extraction failure", "error", err)
		return OutcomeFailed
	}
	if err := sources.FinishExtraction(ctx, source); err != nil {
		if errors.Is(err, store.ErrExtractionSuperseded) {
			log.Info("source changed during extraction, discarding failure")
			return OutcomeSuperseded
		}
		log.Error("failed to persist extraction failure",
			"error", redact.Error(err),
			"extraction_error", redact.String(message))
	}
	return OutcomeFailed
}
