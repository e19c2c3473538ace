// Package uploads issues short-lived signed URLs that let a browser write a
// docket straight to blob storage.
package uploads

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/config"
	"docketflow/internal/platform/metrics"
	"docketflow/internal/platform/storage"
)

const DefaultCategory = "delivery-dockets"

type Request struct {
	FileName string `json:"fileName" validate:"required,filename"`
	FileType string `json:"fileType" validate:"required"`
	TenantID string `json:"clientId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

type Upload struct {
	storage.SignedUpload
	FileName  string `json:"fileName"`
	ExpiresIn int    `json:"expiresIn"`
}

type Issuer struct {
	backend  storage.Backend
	category string
	ttl      time.Duration
	allowed  map[string]bool
	now      func() time.Time
}

func NewIssuer(backend storage.Backend, cfg config.StorageConfig) *Issuer {
	category := cfg.Category
	if category == "" {
		category = DefaultCategory
	}
	ttl := cfg.UploadExpiry
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &Issuer{backend: backend, category: category, ttl: ttl, allowed: allowed, now: time.Now}
}

func (i *Issuer) Category() string { return i.category }

// Issue mints a create-only write URL for
// <category>/<tenant>/<timestamp>-<fileName>.
func (i *Issuer) Issue(ctx context.Context, req Request) (*Upload, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	contentType := strings.ToLower(req.FileType)
	if len(i.allowed) > 0 && !i.allowed[contentType] {
		return nil, errors.Validation("Unsupported file type: "+req.FileType, "fileType")
	}

	objectPath := ObjectPath(i.category, req.TenantID, req.FileName, i.now())

	signed, err := i.backend.SignUpload(ctx, objectPath, contentType, i.ttl)
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", req.TenantID).
			Str("path", objectPath).
			Str("backend", i.backend.Name()).
			Msg("failed to sign upload url")
		return nil, errors.Upstream("Failed to generate upload URL", err)
	}
	metrics.UploadURLsIssuedTotal.WithLabelValues(i.backend.Name()).Inc()

	return &Upload{
		SignedUpload: *signed,
		FileName:     req.FileName,
		ExpiresIn:    int(i.ttl.Seconds()),
	}, nil
}

// ObjectPath builds the storage key for an upload. The timestamp is UTC with
// millisecond precision and ':' and '.' replaced by '-'.
func ObjectPath(category, tenantID, fileName string, at time.Time) string {
	stamp := at.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return Prefix(category, tenantID) + stamp + "-" + fileName
}

// Prefix is the key prefix every object of a tenant lives under.
func Prefix(category, tenantID string) string {
	return category + "/" + tenantID + "/"
}
