package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"docketflow/internal/platform/models"
)

type WebhookRepository struct {
	base
}

func NewWebhookRepository(db *sqlx.DB) *WebhookRepository {
	return &WebhookRepository{base{db: db}}
}

type webhookRow struct {
	ID              string         `db:"id"`
	TenantID        string         `db:"tenant_id"`
	URL             string         `db:"url"`
	Events          string         `db:"events"`
	Secret          string         `db:"secret"`
	Status          string         `db:"status"`
	RetryCount      int            `db:"retry_count"`
	LastTriggeredAt sql.NullInt64  `db:"last_triggered_at"`
	LastError       sql.NullString `db:"last_error"`
	CreatedAt       int64          `db:"created_at"`
	UpdatedAt       int64          `db:"updated_at"`
}

func (row *webhookRow) model() *models.Webhook {
	w := &models.Webhook{
		ID:         row.ID,
		TenantID:   row.TenantID,
		URL:        row.URL,
		Secret:     row.Secret,
		Status:     row.Status,
		RetryCount: row.RetryCount,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.LastTriggeredAt.Valid {
		w.LastTriggeredAt = row.LastTriggeredAt.Int64
	}
	if row.LastError.Valid {
		w.LastError = row.LastError.String
	}
	_ = json.Unmarshal([]byte(row.Events), &w.Events)
	return w
}

const webhookColumns = `id, tenant_id, url, events, secret, status, retry_count, last_triggered_at, last_error, created_at, updated_at`

func (r *WebhookRepository) Create(ctx context.Context, w *models.Webhook) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	eventsJSON, err := json.Marshal(w.Events)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO webhooks (id, tenant_id, url, events, secret, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`), w.ID, w.TenantID, w.URL, string(eventsJSON), w.Secret, w.Status, w.CreatedAt, w.UpdatedAt)
	return err
}

func (r *WebhookRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Webhook, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var row webhookRow
	err = db.GetContext(ctx, &row, db.Rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE tenant_id = ? AND id = ?`), tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.model(), nil
}

func (r *WebhookRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Webhook, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var rows []webhookRow
	err = db.SelectContext(ctx, &rows, db.Rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE tenant_id = ? ORDER BY created_at DESC`), tenantID)
	if err != nil {
		return nil, err
	}

	webhooks := make([]*models.Webhook, 0, len(rows))
	for i := range rows {
		webhooks = append(webhooks, rows[i].model())
	}
	return webhooks, nil
}

// GetByEvent returns the tenant's active webhooks subscribed to event.
func (r *WebhookRepository) GetByEvent(ctx context.Context, tenantID, event string) ([]*models.Webhook, error) {
	all, err := r.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var matched []*models.Webhook
	for _, w := range all {
		if w.Status == "active" && w.Subscribed(event) {
			matched = append(matched, w)
		}
	}
	return matched, nil
}

func (r *WebhookRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	db, err := r.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM webhooks WHERE tenant_id = ? AND id = ?`), tenantID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecordSuccess stamps a delivery and clears the retry counter.
func (r *WebhookRepository) RecordSuccess(ctx context.Context, id string, at int64) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`UPDATE webhooks SET last_triggered_at = ?, retry_count = 0, last_error = NULL WHERE id = ?`), at, id)
	return err
}

func (r *WebhookRepository) RecordFailure(ctx context.Context, id, lastError string) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`UPDATE webhooks SET last_error = ?, retry_count = retry_count + 1 WHERE id = ?`), lastError, id)
	return err
}

// PauseFailing pauses active webhooks whose consecutive failures reached
// maxRetries. It returns the number of webhooks paused.
func (r *WebhookRepository) PauseFailing(ctx context.Context, maxRetries int, at int64) (int64, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE webhooks SET status = 'paused', updated_at = ? WHERE status = 'active' AND retry_count >= ?`), at, maxRetries)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
