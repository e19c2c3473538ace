package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type RecordStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.Docket, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*models.Docket, error)
	UpdateExtracted(ctx context.Context, d *models.Docket) error
}

// Correction holds operator edits to extracted fields. A nil field is left
// unchanged; an empty string clears it.
type Correction struct {
	SupplierName *string `json:"supplier_name"`
	DocketNumber *string `json:"docket_number"`
	DeliveryDate *string `json:"delivery_date"`
}

func (c Correction) empty() bool {
	return c.SupplierName == nil && c.DocketNumber == nil && c.DeliveryDate == nil
}

// Records serves stored dockets after ingestion.
type Records struct {
	dockets RecordStore
	audit   AuditLogger
	now     func() time.Time
}

func NewRecords(dockets RecordStore, auditLog AuditLogger) *Records {
	return &Records{dockets: dockets, audit: auditLog, now: time.Now}
}

// List returns a tenant's dockets newest first.
func (r *Records) List(ctx context.Context, tenantID string, limit, offset int) ([]*models.Docket, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	dockets, err := r.dockets.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to list dockets")
		return nil, errors.Upstream("Failed to load dockets", err)
	}
	return dockets, nil
}

// Correct applies c to the extracted fields of a docket. The processing
// status is never changed.
func (r *Records) Correct(ctx context.Context, tenantID, docketID, userID string, c Correction) (*models.Docket, error) {
	if c.empty() {
		return nil, errors.Validation("No fields to update")
	}
	if c.DeliveryDate != nil && *c.DeliveryDate != "" {
		if _, err := time.Parse("2006-01-02", *c.DeliveryDate); err != nil {
			return nil, errors.Validation("Invalid fields: delivery_date", "delivery_date")
		}
	}

	docket, err := r.dockets.GetByID(ctx, tenantID, docketID)
	if err != nil {
		return nil, errors.Upstream("Failed to load docket", err)
	}
	if docket == nil {
		return nil, errors.NotFound("Docket not found")
	}

	var changed []string
	apply := func(name string, dst **string, v *string) {
		if v == nil {
			return
		}
		changed = append(changed, name)
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			*dst = nil
			return
		}
		*dst = &trimmed
	}
	apply("supplier_name", &docket.SupplierName, c.SupplierName)
	apply("docket_number", &docket.DocketNumber, c.DocketNumber)
	apply("delivery_date", &docket.DeliveryDate, c.DeliveryDate)
	docket.UpdatedAt = r.now().Unix()

	if err := r.dockets.UpdateExtracted(ctx, docket); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Str("docket_id", docketID).Msg("failed to correct docket")
		return nil, errors.Upstream("Failed to update docket", err)
	}

	if r.audit != nil {
		r.audit.Log(ctx, audit.Entry{
			TenantID:     tenantID,
			UserID:       userID,
			Action:       audit.ActionDocketCorrected,
			ResourceType: "docket",
			ResourceID:   docketID,
			Metadata:     map[string]interface{}{"fields": changed},
		})
	}
	return docket, nil
}
