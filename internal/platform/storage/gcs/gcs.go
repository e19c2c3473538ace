// Package gcs signs docket uploads against Google Cloud Storage with V4 signed URLs.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"docketflow/internal/platform/config"
	appstorage "docketflow/internal/platform/storage"
)

func init() {
	appstorage.Register("gcs", func(cfg config.StorageConfig) (appstorage.Backend, error) {
		return New(context.Background(), cfg.Bucket, cfg.GCS)
	})
}

type Backend struct {
	client *storage.Client
	bucket string

	// Set when a service account key is configured; otherwise signing goes
	// through the client's detected credentials.
	accessID   string
	privateKey []byte
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func New(ctx context.Context, bucket string, cfg config.GCSStorageConfig) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	credsJSON := []byte(cfg.CredentialsJSON)
	if len(credsJSON) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = b
	}

	backend := &Backend{bucket: bucket}

	var opts []option.ClientOption
	if len(credsJSON) > 0 {
		var sa serviceAccount
		if err := json.Unmarshal(credsJSON, &sa); err != nil {
			return nil, fmt.Errorf("invalid service account credentials: %w", err)
		}
		if sa.ClientEmail == "" || sa.PrivateKey == "" {
			return nil, fmt.Errorf("service account credentials need client_email and private_key")
		}
		backend.accessID = sa.ClientEmail
		backend.privateKey = []byte(sa.PrivateKey)
		opts = append(opts, option.WithCredentialsJSON(credsJSON))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	backend.client = client
	return backend, nil
}

const signingSlack = time.Second - time.Millisecond

func (b *Backend) Name() string   { return "gcs" }
func (b *Backend) Bucket() string { return b.bucket }

func (b *Backend) SignUpload(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*appstorage.SignedUpload, error) {
	expires := time.Now().Add(ttl)
	opts := &storage.SignedURLOptions{
		Scheme: storage.SigningSchemeV4,
		Method: "PUT",
		// X-Goog-Expires is truncated to whole seconds from the library's own
		// clock reading, so pad to keep it equal to ttl.
		Expires:     expires.Add(signingSlack),
		ContentType: contentType,
		// generation 0 means "only if the object does not exist"
		Headers: []string{"x-goog-if-generation-match:0"},
	}

	var (
		signed string
		err    error
	)
	if b.privateKey != nil {
		opts.GoogleAccessID = b.accessID
		opts.PrivateKey = b.privateKey
		signed, err = storage.SignedURL(b.bucket, objectPath, opts)
	} else {
		signed, err = b.client.Bucket(b.bucket).SignedURL(objectPath, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return &appstorage.SignedUpload{
		URL:    signed,
		Method: "PUT",
		Headers: map[string]string{
			"Content-Type":               contentType,
			"x-goog-if-generation-match": "0",
		},
		Path:      objectPath,
		Bucket:    b.bucket,
		ExpiresAt: expires,
	}, nil
}

func (b *Backend) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	reader, err := b.client.Bucket(b.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, appstorage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	return reader, nil
}
