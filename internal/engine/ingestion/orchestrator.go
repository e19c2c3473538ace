// Package ingestion turns a completed-upload notification into a persisted
// docket with its temperature readings and compliance alerts.
package ingestion

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"docketflow/internal/engine/compliance"
	"docketflow/internal/engine/events"
	"docketflow/internal/engine/extraction"
	"docketflow/internal/engine/uploads"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/cache"
	"docketflow/internal/platform/metrics"
	"docketflow/internal/platform/models"
	"docketflow/internal/platform/repositories"
	"docketflow/internal/platform/safego"
)

const lockGrace = 30 * time.Second

type DocketStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	GetByPath(ctx context.Context, tenantID, storagePath string) (*models.Docket, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Docket) error
	CreateReadingsTx(ctx context.Context, tx *sqlx.Tx, readings []*models.TemperatureReading) error
	IncrementUsageTx(ctx context.Context, tx *sqlx.Tx, tenantID, period string, now int64) error
	ListReadings(ctx context.Context, docketID string) ([]*models.TemperatureReading, error)
}

type AlertWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, a *models.ComplianceAlert) error
	CountByDocket(ctx context.Context, docketID string) (int, error)
}

// Locker serializes work on one key across replicas. Acquire returns
// cache.ErrLocked when another holder owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

// Request is the completed-upload notification.
type Request struct {
	BucketID string `json:"bucketId" validate:"required"`
	FileName string `json:"fileName" validate:"required"`
	FilePath string `json:"filePath" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	TenantID string `json:"clientId" validate:"required"`
}

type ExtractedData struct {
	SupplierName    *string                  `json:"supplierName"`
	DocketNumber    *string                  `json:"docketNumber"`
	DeliveryDate    *string                  `json:"deliveryDate"`
	Temperatures    []extraction.Temperature `json:"temperatures"`
	Products        models.Products          `json:"products"`
	ItemCount       int                      `json:"itemCount"`
	ConfidenceScore float64                  `json:"confidenceScore"`
}

type Outcome struct {
	DocketID        string         `json:"deliveryRecordId"`
	Extracted       *ExtractedData `json:"extractedData"`
	AlertsGenerated int            `json:"alertsGenerated"`
	ProcessingTime  int64          `json:"processingTime"`
	Duplicate       bool           `json:"duplicate"`

	Docket *models.Docket `json:"-"`
}

type Config struct {
	Category          string
	ExtractionTimeout time.Duration
	Thresholds        compliance.Thresholds
}

type Orchestrator struct {
	dockets   DocketStore
	alerts    AlertWriter
	extractor extraction.Extractor
	locker    Locker
	publisher events.Publisher
	audit     AuditLogger
	cfg       Config
	now       func() time.Time
}

// NewOrchestrator wires the ingestion pipeline. extractor, locker, publisher
// and auditLog may be nil.
func NewOrchestrator(dockets DocketStore, alerts AlertWriter, extractor extraction.Extractor, locker Locker, publisher events.Publisher, auditLog AuditLogger, cfg Config) *Orchestrator {
	if cfg.Category == "" {
		cfg.Category = uploads.DefaultCategory
	}
	if cfg.ExtractionTimeout <= 0 {
		cfg.ExtractionTimeout = 60 * time.Second
	}
	return &Orchestrator{
		dockets:   dockets,
		alerts:    alerts,
		extractor: extractor,
		locker:    locker,
		publisher: publisher,
		audit:     auditLog,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Process extracts and stores the docket at req.FilePath. A path that was
// already ingested for the tenant returns the stored docket with Duplicate set.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Outcome, error) {
	started := o.now()

	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(req.FilePath, uploads.Prefix(o.cfg.Category, req.TenantID)) || strings.Contains(req.FilePath, "..") {
		return nil, errors.Validation("File path does not belong to this company", "filePath")
	}

	logger := log.With().Str("tenant_id", req.TenantID).Str("path", req.FilePath).Logger()

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, "ingest:"+req.TenantID+":"+req.FilePath, o.cfg.ExtractionTimeout+lockGrace)
		switch {
		case stderrors.Is(err, cache.ErrLocked):
			return nil, errors.Conflict("Docket is already being processed")
		case err != nil:
			logger.Warn().Err(err).Msg("ingestion lock unavailable, continuing without it")
		default:
			defer release()
		}
	}

	existing, err := o.dockets.GetByPath(ctx, req.TenantID, req.FilePath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to check for existing docket")
		return nil, errors.Upstream("Failed to process docket", err)
	}
	if existing != nil {
		return o.duplicate(ctx, existing, started)
	}

	if o.extractor == nil {
		return nil, errors.Upstream("Extraction service not configured", extraction.ErrNotConfigured)
	}

	result, err := o.extract(ctx, req)
	if err != nil {
		metrics.DocketsProcessedTotal.WithLabelValues(string(models.DocketFailed)).Inc()
		logger.Error().Err(err).Str("provider", o.extractor.Provider()).Msg("document extraction failed")
		var rejected *extraction.RejectedError
		if stderrors.As(err, &rejected) {
			return nil, errors.Validation("Document extraction failed: " + rejected.Message)
		}
		return nil, errors.Upstream("Document extraction failed", err)
	}

	docket, readings, alerts := o.build(req, result)

	if err := o.persist(ctx, docket, readings, alerts); err != nil {
		if repositories.IsUniqueViolation(err) {
			existing, getErr := o.dockets.GetByPath(ctx, req.TenantID, req.FilePath)
			if getErr == nil && existing != nil {
				return o.duplicate(ctx, existing, started)
			}
		}
		logger.Error().Err(err).Msg("failed to store processed docket")
		return nil, errors.Upstream("Failed to save docket", err)
	}

	metrics.DocketsProcessedTotal.WithLabelValues(string(models.DocketCompleted)).Inc()
	for _, a := range alerts {
		metrics.AlertsGeneratedTotal.WithLabelValues(string(a.Severity)).Inc()
	}
	o.afterCommit(ctx, req, docket, alerts)

	logger.Info().
		Str("docket_id", docket.ID).
		Int("alerts", len(alerts)).
		Float64("confidence", docket.ConfidenceScore).
		Msg("docket processed")

	return &Outcome{
		DocketID:        docket.ID,
		Extracted:       extractedData(docket, result.Temperatures),
		AlertsGenerated: len(alerts),
		ProcessingTime:  o.now().Sub(started).Milliseconds(),
		Docket:          docket,
	}, nil
}

func (o *Orchestrator) extract(ctx context.Context, req Request) (*extraction.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ExtractionTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.extractor.Extract(ctx, extraction.Request{
		BucketID: req.BucketID,
		FileName: req.FileName,
		FilePath: req.FilePath,
		UserID:   req.UserID,
		TenantID: req.TenantID,
	})
	label := "success"
	if err != nil {
		label = "error"
	}
	metrics.ExtractionDuration.WithLabelValues(o.extractor.Provider(), label).Observe(time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) build(req Request, result *extraction.Result) (*models.Docket, []*models.TemperatureReading, []*models.ComplianceAlert) {
	now := o.now().Unix()
	uploader := req.UserID
	rawText := result.RawText

	docket := &models.Docket{
		ID:              "dkt_" + uuid.New().String(),
		TenantID:        req.TenantID,
		UploaderID:      &uploader,
		StoragePath:     req.FilePath,
		Status:          models.DocketCompleted,
		SupplierName:    result.SupplierName,
		DocketNumber:    result.DocketNumber,
		DeliveryDate:    result.DeliveryDate,
		RawText:         &rawText,
		Products:        result.Products,
		ItemCount:       result.ItemCount,
		ConfidenceScore: result.Confidence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var (
		readings []*models.TemperatureReading
		alerts   []*models.ComplianceAlert
	)
	for _, t := range result.Temperatures {
		ev := o.cfg.Thresholds.Evaluate(t.Value, t.Unit, t.ProductType)
		readings = append(readings, &models.TemperatureReading{
			ID:          "rdg_" + uuid.New().String(),
			DocketID:    docket.ID,
			TenantID:    req.TenantID,
			Value:       t.Value,
			Unit:        t.Unit,
			ProductType: ev.ProductType,
			Context:     t.Context,
			InRange:     ev.InRange,
			CreatedAt:   now,
		})
		if ev.Violation == nil {
			continue
		}
		value, unit := t.Value, t.Unit
		alerts = append(alerts, &models.ComplianceAlert{
			ID:                     "alr_" + uuid.New().String(),
			DocketID:               docket.ID,
			TenantID:               req.TenantID,
			AlertType:              models.AlertTemperatureViolation,
			Severity:               ev.Violation.Severity,
			TemperatureValue:       &value,
			TemperatureUnit:        &unit,
			SupplierName:           result.SupplierName,
			Message:                ev.Violation.Message,
			RequiresAcknowledgment: ev.Violation.Severity == models.SeverityCritical,
			CreatedAt:              now,
		})
	}
	return docket, readings, alerts
}

func (o *Orchestrator) persist(ctx context.Context, docket *models.Docket, readings []*models.TemperatureReading, alerts []*models.ComplianceAlert) error {
	tx, err := o.dockets.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := o.dockets.CreateTx(ctx, tx, docket); err != nil {
		return err
	}
	if err := o.dockets.CreateReadingsTx(ctx, tx, readings); err != nil {
		return err
	}
	for _, a := range alerts {
		if err := o.alerts.CreateTx(ctx, tx, a); err != nil {
			return err
		}
	}
	period := time.Unix(docket.CreatedAt, 0).UTC().Format("2006-01")
	if err := o.dockets.IncrementUsageTx(ctx, tx, docket.TenantID, period, docket.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (o *Orchestrator) afterCommit(ctx context.Context, req Request, docket *models.Docket, alerts []*models.ComplianceAlert) {
	if o.audit != nil {
		o.audit.Log(ctx, audit.Entry{
			TenantID:     req.TenantID,
			UserID:       req.UserID,
			Action:       audit.ActionDocketProcessed,
			ResourceType: "docket",
			ResourceID:   docket.ID,
			Metadata: map[string]interface{}{
				"storage_path":     docket.StoragePath,
				"confidence_score": docket.ConfidenceScore,
				"alerts":           len(alerts),
			},
		})
	}

	if o.publisher == nil {
		return
	}
	batch := []*models.Event{events.NewEvent(models.EventDocketProcessed, req.TenantID, docket)}
	for _, a := range alerts {
		batch = append(batch, events.NewEvent(models.EventAlertCreated, req.TenantID, a))
	}
	safego.Go(func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, evt := range batch {
			if err := o.publisher.Publish(pubCtx, evt); err != nil {
				log.Warn().Err(err).Str("event", evt.Type).Str("tenant_id", evt.TenantID).Msg("event publish failed")
			}
		}
	})
}

func (o *Orchestrator) duplicate(ctx context.Context, docket *models.Docket, started time.Time) (*Outcome, error) {
	readings, err := o.dockets.ListReadings(ctx, docket.ID)
	if err != nil {
		return nil, errors.Upstream("Failed to load existing docket", err)
	}
	count, err := o.alerts.CountByDocket(ctx, docket.ID)
	if err != nil {
		return nil, errors.Upstream("Failed to load existing docket", err)
	}

	temps := make([]extraction.Temperature, 0, len(readings))
	for _, r := range readings {
		temps = append(temps, extraction.Temperature{Value: r.Value, Unit: r.Unit, Context: r.Context, ProductType: r.ProductType})
	}

	metrics.DocketsProcessedTotal.WithLabelValues("duplicate").Inc()
	log.Info().Str("tenant_id", docket.TenantID).Str("docket_id", docket.ID).Msg("duplicate docket notification")

	return &Outcome{
		DocketID:        docket.ID,
		Extracted:       extractedData(docket, temps),
		AlertsGenerated: count,
		ProcessingTime:  o.now().Sub(started).Milliseconds(),
		Duplicate:       true,
		Docket:          docket,
	}, nil
}

func extractedData(d *models.Docket, temps []extraction.Temperature) *ExtractedData {
	if temps == nil {
		temps = []extraction.Temperature{}
	}
	products := d.Products
	if products == nil {
		products = models.Products{}
	}
	return &ExtractedData{
		SupplierName:    d.SupplierName,
		DocketNumber:    d.DocketNumber,
		DeliveryDate:    d.DeliveryDate,
		Temperatures:    temps,
		Products:        products,
		ItemCount:       d.ItemCount,
		ConfidenceScore: d.ConfidenceScore,
	}
}
