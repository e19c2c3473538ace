// Package extraction turns an uploaded delivery docket into structured fields
// by calling an external document-extraction service.
package extraction

import (
	"context"
	"errors"
	"fmt"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/models"
	"docketflow/internal/platform/storage"
)

// ErrNotConfigured is returned by New when no extraction provider can be built.
var ErrNotConfigured = errors.New("extraction service not configured")

// RejectedError is returned when the extraction service refused the document
// itself (HTTP 4xx or success=false) rather than failing to process it.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("extraction rejected (HTTP %d): %s", e.StatusCode, e.Message)
}

type Request struct {
	BucketID string
	FileName string
	FilePath string
	UserID   string
	TenantID string
}

// Temperature is one reading found in the docket text. Value is in Unit.
type Temperature struct {
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Context     string  `json:"context"`
	ProductType string  `json:"product_type,omitempty"`
}

type Result struct {
	SupplierName *string         `json:"supplierName"`
	DocketNumber *string         `json:"docketNumber"`
	DeliveryDate *string         `json:"deliveryDate"`
	RawText      string          `json:"rawText"`
	Temperatures []Temperature   `json:"temperatures"`
	Products     models.Products `json:"products"`
	ItemCount    int             `json:"itemCount"`
	Confidence   float64         `json:"confidence"`
}

type Extractor interface {
	// Provider names the backing service for logs and metrics.
	Provider() string
	Extract(ctx context.Context, req Request) (*Result, error)
}

// New builds the extractor selected by cfg.Provider. The storage backend is
// only needed by providers that read the object themselves.
func New(ctx context.Context, cfg config.ExtractionConfig, objects storage.Backend) (Extractor, error) {
	switch cfg.Provider {
	case "documentai":
		if cfg.DocumentAI.ProjectID == "" || cfg.DocumentAI.ProcessorID == "" {
			return nil, fmt.Errorf("%w: documentai needs project_id and processor_id", ErrNotConfigured)
		}
		return NewDocumentAIExtractor(ctx, cfg.DocumentAI, objects)
	case "remote":
		if cfg.Remote.URL == "" {
			return nil, fmt.Errorf("%w: remote needs url", ErrNotConfigured)
		}
		return NewRemoteExtractor(cfg.Remote, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}
}
