package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TypeDocumentExtraction requests text extraction for a freshly stored document.
const TypeDocumentExtraction = "document_extraction"

// TaskRequestEvent represents a request to start background work. It lets
// services ask for work without importing the task package.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// DocumentExtractionPayload is the payload of a TypeDocumentExtraction event.
type DocumentExtractionPayload struct {
	SourceID string `json:"source_id"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a new TaskRequestEvent with the specified type and payload.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewDocumentExtractionEvent creates an extraction request for a source.
func NewDocumentExtractionEvent(sourceID string) (*TaskRequestEvent, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, errors.New("source ID cannot be empty")
	}
	return NewTaskRequestEvent(TypeDocumentExtraction, DocumentExtractionPayload{SourceID: sourceID})
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event. Handlers ignore event types
	// they do not understand.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
