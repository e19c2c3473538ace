package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/google/uuid"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/models"
)

// Events a webhook may subscribe to.
var Events = []string{models.EventDocketProcessed, models.EventAlertCreated}

type RegistryStore interface {
	Create(ctx context.Context, w *models.Webhook) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Webhook, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

type CreateRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1"`
	// Secret is generated when empty.
	Secret string `json:"secret"`
}

// Registry manages the webhook endpoints of a tenant.
type Registry struct {
	store RegistryStore
	audit AuditLogger
	now   func() time.Time
}

func NewRegistry(store RegistryStore, auditLog AuditLogger) *Registry {
	return &Registry{store: store, audit: auditLog, now: time.Now}
}

func (r *Registry) Create(ctx context.Context, tenantID, actorID string, req CreateRequest) (*models.Webhook, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, errors.Validation("Invalid fields: url", "url")
	}
	for _, e := range req.Events {
		if !known(e) {
			return nil, errors.Validation("Unknown event: "+e, "events")
		}
	}

	secret := req.Secret
	if secret == "" {
		secret, err = newSecret()
		if err != nil {
			return nil, errors.Upstream("Failed to create webhook", err)
		}
	}

	now := r.now().Unix()
	w := &models.Webhook{
		ID:        "wh_" + uuid.New().String(),
		TenantID:  tenantID,
		URL:       req.URL,
		Events:    req.Events,
		Secret:    secret,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Create(ctx, w); err != nil {
		return nil, errors.Upstream("Failed to create webhook", err)
	}

	if r.audit != nil {
		r.audit.Log(ctx, audit.Entry{
			TenantID:     tenantID,
			UserID:       actorID,
			Action:       audit.ActionWebhookCreated,
			ResourceType: "webhook",
			ResourceID:   w.ID,
			Metadata:     map[string]interface{}{"url": w.URL, "events": w.Events},
		})
	}
	return w, nil
}

// List hides secrets; they are only returned once, on creation.
func (r *Registry) List(ctx context.Context, tenantID string) ([]*models.Webhook, error) {
	hooks, err := r.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Upstream("Failed to load webhooks", err)
	}
	for _, h := range hooks {
		h.Secret = ""
	}
	return hooks, nil
}

func (r *Registry) Delete(ctx context.Context, tenantID, actorID, id string) error {
	ok, err := r.store.Delete(ctx, tenantID, id)
	if err != nil {
		return errors.Upstream("Failed to delete webhook", err)
	}
	if !ok {
		return errors.NotFound("Webhook not found")
	}
	if r.audit != nil {
		r.audit.Log(ctx, audit.Entry{
			TenantID:     tenantID,
			UserID:       actorID,
			Action:       audit.ActionWebhookDeleted,
			ResourceType: "webhook",
			ResourceID:   id,
		})
	}
	return nil
}

func known(event string) bool {
	for _, e := range Events {
		if e == event {
			return true
		}
	}
	return false
}

func newSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
