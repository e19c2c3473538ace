// Package storage abstracts the blob stores dockets are uploaded to.
//
// Backends register themselves from init() in their own package; cmd/server
// blank-imports the ones it ships with.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"docketflow/internal/platform/config"
)

// SignedUpload is a time-boxed credential to write exactly one object.
type SignedUpload struct {
	URL       string            `json:"signedUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Path      string            `json:"filePath"`
	Bucket    string            `json:"bucket"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type Backend interface {
	Name() string
	Bucket() string

	// SignUpload returns a create-only write URL for objectPath valid for ttl.
	SignUpload(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*SignedUpload, error)

	// Open streams an uploaded object.
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
}

var ErrObjectNotFound = errors.New("object not found")

type FactoryFunc func(cfg config.StorageConfig) (Backend, error)

var factories = make(map[string]FactoryFunc)

func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

func Registered() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(cfg config.StorageConfig) (Backend, error) {
	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %q (registered: %v)", cfg.Backend, Registered())
	}
	return factory(cfg)
}
