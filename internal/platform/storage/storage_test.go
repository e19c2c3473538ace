package storage

import (
	"context"
	"io"
	"testing"
	"time"

	"docketflow/internal/platform/config"
)

type nopBackend struct{ bucket string }

func (n *nopBackend) Name() string   { return "nop" }
func (n *nopBackend) Bucket() string { return n.bucket }
func (n *nopBackend) SignUpload(context.Context, string, string, time.Duration) (*SignedUpload, error) {
	return nil, nil
}
func (n *nopBackend) Open(context.Context, string) (io.ReadCloser, error) { return nil, ErrObjectNotFound }

func TestFactory(t *testing.T) {
	Register("nop", func(cfg config.StorageConfig) (Backend, error) {
		return &nopBackend{bucket: cfg.Bucket}, nil
	})

	b, err := New(config.StorageConfig{Backend: "nop", Bucket: "delivery-dockets"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Bucket() != "delivery-dockets" {
		t.Errorf("Expected bucket delivery-dockets, got %s", b.Bucket())
	}

	if _, err := New(config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
