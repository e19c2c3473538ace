// Package s3 signs docket uploads against AWS S3 or an S3-compatible store
// (MinIO, R2, Spaces) configured through storage.s3.endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/storage"
)

func init() {
	storage.Register("s3", func(cfg config.StorageConfig) (storage.Backend, error) {
		return New(cfg.Bucket, cfg.S3)
	})
}

type Backend struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

func New(bucket string, cfg config.S3StorageConfig) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("access_key_id and secret_access_key must be set together")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &Backend{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
	}, nil
}

func (b *Backend) Name() string   { return "s3" }
func (b *Backend) Bucket() string { return b.bucket }

// SignUpload presigns a PUT that S3 only accepts while the key does not exist yet.
func (b *Backend) SignUpload(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*storage.SignedUpload, error) {
	req, err := b.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectPath),
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  contentType,
		"If-None-Match": "*",
	}
	return &storage.SignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		Path:      objectPath,
		Bucket:    b.bucket,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (b *Backend) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return out.Body, nil
}
