// Package audit records who did what to which tenant resource.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"docketflow/internal/platform/safego"
)

const (
	ActionDocketProcessed  = "docket.processed"
	ActionDocketCorrected  = "docket.corrected"
	ActionBulkProcessed    = "bulk.processing.completed"
	ActionCompanyCreated   = "company.created"
	ActionCompanyUpdated   = "company.updated"
	ActionMemberInvited    = "member.invited"
	ActionMemberAccepted   = "member.accepted"
	ActionMemberRoleChange = "member.role_changed"
	ActionMemberRevoked    = "member.revoked"
	ActionAlertAcknowledge = "alert.acknowledged"
	ActionAlertResolved    = "alert.resolved"
	ActionWebhookCreated   = "webhook.created"
	ActionWebhookDeleted   = "webhook.deleted"
)

type Entry struct {
	ID           string                 `json:"id" db:"id"`
	TenantID     string                 `json:"tenant_id" db:"tenant_id"`
	UserID       string                 `json:"user_id" db:"user_id"`
	Action       string                 `json:"action" db:"action"`
	ResourceType string                 `json:"resource_type" db:"resource_type"`
	ResourceID   string                 `json:"resource_id" db:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata" db:"-"`
	IPAddress    string                 `json:"ip_address" db:"ip_address"`
	UserAgent    string                 `json:"user_agent" db:"user_agent"`
	CreatedAt    int64                  `json:"created_at" db:"created_at"`
}

var errNoDatabase = errors.New("audit log store not configured")

type requestMetaKey struct{}

type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta attaches the caller's address and user agent to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMeta(ctx context.Context) RequestMeta {
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{IPAddress: "unknown", UserAgent: "unknown"}
}

type Logger struct {
	db *sqlx.DB
}

// NewLogger accepts a nil db; entries are then only written to the process log.
func NewLogger(db *sqlx.DB) *Logger {
	return &Logger{db: db}
}

// Log records entry in the background. Request metadata is taken from ctx.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if l == nil {
		return
	}
	meta := requestMeta(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = meta.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}

	safego.Go(func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Write(writeCtx, &entry); err != nil {
			log.Error().Err(err).Str("action", entry.Action).Str("tenant_id", entry.TenantID).Msg("failed to write audit log")
		}
	})
}

// Write inserts entry synchronously.
func (l *Logger) Write(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "audit_" + uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	log.Info().
		Str("action", entry.Action).
		Str("tenant_id", entry.TenantID).
		Str("user_id", entry.UserID).
		Str("resource_id", entry.ResourceID).
		Msg("audit")

	if l.db == nil {
		return nil
	}

	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO audit_logs (id, tenant_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), entry.ID, entry.TenantID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID,
		string(metaJSON), entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	return err
}

type entryRow struct {
	Entry
	RawMetadata *string `db:"metadata"`
}

// List returns the most recent entries of a tenant, newest first.
func (l *Logger) List(ctx context.Context, tenantID string, limit int) ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, errNoDatabase
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []entryRow
	err := l.db.SelectContext(ctx, &rows, l.db.Rebind(`
		SELECT id, tenant_id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
		FROM audit_logs WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), tenantID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := row.Entry
		if row.RawMetadata != nil && *row.RawMetadata != "" {
			if err := json.Unmarshal([]byte(*row.RawMetadata), &e.Metadata); err != nil {
				log.Warn().Err(err).Str("audit_id", e.ID).Msg("unreadable audit metadata")
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
