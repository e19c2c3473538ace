package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"docketflow/internal/platform/models"
)

type DocketRepository struct {
	base
}

func NewDocketRepository(db *sqlx.DB) *DocketRepository {
	return &DocketRepository{base{db: db}}
}

const docketColumns = `id, tenant_id, uploader_id, storage_path, processing_status, supplier_name, docket_number,
	delivery_date, raw_text, products, item_count, confidence_score, error_message, created_at, updated_at`

func (r *DocketRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, d *models.Docket) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO dockets (`+docketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), d.ID, d.TenantID, d.UploaderID, d.StoragePath, d.Status, d.SupplierName, d.DocketNumber,
		d.DeliveryDate, d.RawText, d.Products, d.ItemCount, d.ConfidenceScore, d.ErrorMessage, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DocketRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Docket, error) {
	return r.getOne(ctx, `SELECT `+docketColumns+` FROM dockets WHERE tenant_id = ? AND id = ?`, tenantID, id)
}

func (r *DocketRepository) GetByPath(ctx context.Context, tenantID, storagePath string) (*models.Docket, error) {
	return r.getOne(ctx, `SELECT `+docketColumns+` FROM dockets WHERE tenant_id = ? AND storage_path = ?`, tenantID, storagePath)
}

func (r *DocketRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Docket, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var d models.Docket
	if err := db.GetContext(ctx, &d, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DocketRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*models.Docket, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	dockets := []*models.Docket{}
	err = db.SelectContext(ctx, &dockets, db.Rebind(`
		SELECT `+docketColumns+` FROM dockets
		WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), tenantID, limit, offset)
	return dockets, err
}

// UpdateExtracted applies a manual correction. Status is never touched.
func (r *DocketRepository) UpdateExtracted(ctx context.Context, d *models.Docket) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		UPDATE dockets SET supplier_name = ?, docket_number = ?, delivery_date = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`), d.SupplierName, d.DocketNumber, d.DeliveryDate, d.UpdatedAt, d.TenantID, d.ID)
	return err
}

func (r *DocketRepository) CreateReadingsTx(ctx context.Context, tx *sqlx.Tx, readings []*models.TemperatureReading) error {
	query := tx.Rebind(`
		INSERT INTO temperature_readings (id, docket_id, tenant_id, value, unit, product_type, context, in_range, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, rd := range readings {
		if _, err := tx.ExecContext(ctx, query, rd.ID, rd.DocketID, rd.TenantID, rd.Value, rd.Unit, rd.ProductType, rd.Context, rd.InRange, rd.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocketRepository) ListReadings(ctx context.Context, docketID string) ([]*models.TemperatureReading, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	readings := []*models.TemperatureReading{}
	err = db.SelectContext(ctx, &readings, db.Rebind(`
		SELECT id, docket_id, tenant_id, value, unit, product_type, context, in_range, created_at
		FROM temperature_readings WHERE docket_id = ? ORDER BY created_at ASC, id ASC
	`), docketID)
	return readings, err
}

// IncrementUsageTx bumps the processed-document counter for a billing period (YYYY-MM).
func (r *DocketRepository) IncrementUsageTx(ctx context.Context, tx *sqlx.Tx, tenantID, period string, now int64) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE document_usage SET documents_processed = documents_processed + 1, updated_at = ?
		WHERE tenant_id = ? AND billing_period = ?
	`), now, tenantID, period)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO document_usage (tenant_id, billing_period, documents_processed, updated_at) VALUES (?, ?, 1, ?)
	`), tenantID, period, now)
	return err
}

func (r *DocketRepository) Usage(ctx context.Context, tenantID, period string) (int, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.GetContext(ctx, &n, db.Rebind(`
		SELECT documents_processed FROM document_usage WHERE tenant_id = ? AND billing_period = ?
	`), tenantID, period)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
