package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-reader/internal/events"
)

// Enqueuer accepts extraction requests.
type Enqueuer interface {
	EnqueueExtraction(sourceID string) error
}

// ExtractionEventHandler turns document extraction events into queued jobs.
type ExtractionEventHandler struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewExtractionEventHandler creates a handler that enqueues on enqueuer.
func NewExtractionEventHandler(enqueuer Enqueuer, logger *slog.Logger) *ExtractionEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionEventHandler{
		enqueuer: enqueuer,
		logger:   logger.With("component", "extraction_event_handler"),
	}
}

// HandleEvent enqueues the source named by a document extraction event.
// Other event types are ignored.
func (h *ExtractionEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.TypeDocumentExtraction {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.DocumentExtractionPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := h.enqueuer.EnqueueExtraction(payload.SourceID); err != nil {
		h.logger.Error("failed to enqueue extraction",
			"error", err,
			"source_id", payload.SourceID,
			"event_id", event.ID)
		return fmt.Errorf("failed to enqueue extraction: %w", err)
	}

	return nil
}

var _ events.EventHandler = (*ExtractionEventHandler)(nil)
