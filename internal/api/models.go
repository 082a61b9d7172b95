package api

import (
	"time"

	"github.com/phrazzld/scry-reader/internal/service"
)

// ExtractionStatusResponse is returned by the upload endpoints and the
// extraction status endpoint.
type ExtractionStatusResponse struct {
	SourceID    string     `json:"source_id"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toExtractionStatusResponse(view *service.ExtractionStatusView) ExtractionStatusResponse {
	return ExtractionStatusResponse{
		SourceID:    view.SourceID.String(),
		Status:      string(view.Status),
		Error:       view.Error,
		CompletedAt: view.CompletedAt,
	}
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
