package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"docketflow/internal/platform/models"
)

type AlertRepository struct {
	base
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{base{db: db}}
}

const alertColumns = `id, docket_id, tenant_id, alert_type, severity, temperature_value, temperature_unit, supplier_name,
	message, requires_acknowledgment, acknowledged_by, acknowledged_at, resolved_at, resolved_by, corrective_actions, created_at`

func (r *AlertRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, a *models.ComplianceAlert) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO compliance_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), a.ID, a.DocketID, a.TenantID, a.AlertType, a.Severity, a.TemperatureValue, a.TemperatureUnit, a.SupplierName,
		a.Message, a.RequiresAcknowledgment, a.AcknowledgedBy, a.AcknowledgedAt, a.ResolvedAt, a.ResolvedBy, a.CorrectiveActions, a.CreatedAt)
	return err
}

// ListOpen returns unresolved alerts for a tenant joined with their docket, newest first.
func (r *AlertRepository) ListOpen(ctx context.Context, tenantID string) ([]models.OpenAlert, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	alerts := []models.OpenAlert{}
	err = db.SelectContext(ctx, &alerts, db.Rebind(`
		SELECT a.id, a.docket_id, a.tenant_id, a.alert_type, a.severity, a.temperature_value, a.temperature_unit,
			a.supplier_name, a.message, a.requires_acknowledgment, a.acknowledged_by, a.acknowledged_at,
			a.resolved_at, a.resolved_by, a.corrective_actions, a.created_at,
			d.docket_number AS "docket.docket_number",
			d.supplier_name AS "docket.supplier_name",
			d.created_at AS "docket.created_at"
		FROM compliance_alerts a
		INNER JOIN dockets d ON d.id = a.docket_id
		WHERE a.tenant_id = ? AND a.resolved_at IS NULL
		ORDER BY a.created_at DESC, a.id DESC
	`), tenantID)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.ComplianceAlert, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	var a models.ComplianceAlert
	if err := db.GetContext(ctx, &a, db.Rebind(`SELECT `+alertColumns+` FROM compliance_alerts WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepository) CountByDocket(ctx context.Context, docketID string) (int, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.GetContext(ctx, &n, db.Rebind(`SELECT COUNT(*) FROM compliance_alerts WHERE docket_id = ?`), docketID)
	return n, err
}

// Acknowledge stamps the alert once. It reports false when it was already acknowledged.
func (r *AlertRepository) Acknowledge(ctx context.Context, id, userID string, at int64) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE compliance_alerts SET acknowledged_by = ?, acknowledged_at = ?
		WHERE id = ? AND acknowledged_at IS NULL
	`), userID, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Resolve closes the alert once. It reports false when it was already resolved.
func (r *AlertRepository) Resolve(ctx context.Context, id, userID string, correctiveActions *string, at int64) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE compliance_alerts SET resolved_by = ?, resolved_at = ?, corrective_actions = COALESCE(?, corrective_actions)
		WHERE id = ? AND resolved_at IS NULL
	`), userID, at, correctiveActions, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
