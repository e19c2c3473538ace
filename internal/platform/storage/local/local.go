// Package local stores dockets on the local filesystem. Upload URLs point back
// at this server's /storage/upload route and carry an HMAC signature over the
// object path, content type and expiry. Intended for development and
// single-node deployments.
package local

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/storage"
)

// MaxUploadBytes caps a single docket upload.
const MaxUploadBytes = 20 << 20

var (
	ErrInvalidSignature = errors.New("invalid upload signature")
	ErrExpired          = errors.New("upload url expired")
	ErrObjectExists     = errors.New("object already exists")
	ErrTooLarge         = errors.New("upload exceeds size limit")
)

func init() {
	storage.Register("local", func(cfg config.StorageConfig) (storage.Backend, error) {
		return New(cfg.Bucket, cfg.Local)
	})
}

type Backend struct {
	basePath  string
	publicURL string
	bucket    string
	secret    []byte
	now       func() time.Time
}

func New(bucket string, cfg config.LocalStorageConfig) (*Backend, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage base path is required")
	}
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	secret := []byte(cfg.SigningSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
		log.Warn().Msg("storage.local.signing_secret not set, upload URLs will not survive a restart")
	}

	return &Backend{
		basePath:  cfg.BasePath,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		bucket:    bucket,
		secret:    secret,
		now:       time.Now,
	}, nil
}

func (b *Backend) Name() string   { return "local" }
func (b *Backend) Bucket() string { return b.bucket }

func (b *Backend) SignUpload(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*storage.SignedUpload, error) {
	if _, err := b.resolve(objectPath); err != nil {
		return nil, err
	}

	expires := b.now().Add(ttl)
	exp := strconv.FormatInt(expires.Unix(), 10)

	q := url.Values{}
	q.Set("expires", exp)
	q.Set("content_type", contentType)
	q.Set("signature", b.sign(objectPath, contentType, exp))

	return &storage.SignedUpload{
		URL:       b.publicURL + "/storage/upload/" + escapePath(objectPath) + "?" + q.Encode(),
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		Path:      objectPath,
		Bucket:    b.bucket,
		ExpiresAt: expires,
	}, nil
}

// Verify checks a signature minted by SignUpload.
func (b *Backend) Verify(objectPath, contentType, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	expected := b.sign(objectPath, contentType, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	if b.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

// Write stores body at objectPath. It fails with ErrObjectExists if the
// object was already uploaded, which makes every signed URL single use.
func (b *Backend) Write(objectPath string, body io.Reader) (int64, error) {
	fullPath, err := b.resolve(objectPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		if os.IsExist(err) {
			return 0, ErrObjectExists
		}
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, io.LimitReader(body, MaxUploadBytes+1))
	if err == nil && written > MaxUploadBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return 0, err
	}
	return written, nil
}

func (b *Backend) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	fullPath, err := b.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (b *Backend) sign(objectPath, contentType, expires string) string {
	h := hmac.New(sha256.New, b.secret)
	h.Write([]byte(objectPath + "\n" + contentType + "\n" + expires))
	return hex.EncodeToString(h.Sum(nil))
}

// escapePath escapes each segment so names holding '#', '?' or '%' stay in
// the URL path.
func escapePath(objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// resolve maps objectPath under basePath and rejects traversal.
func (b *Backend) resolve(objectPath string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(objectPath))
	if objectPath == "" || clean == string(filepath.Separator) || strings.Contains(objectPath, "..") {
		return "", fmt.Errorf("invalid object path: %q", objectPath)
	}
	return filepath.Join(b.basePath, clean), nil
}
