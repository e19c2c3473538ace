// Package azure issues create-only SAS URLs for docket uploads into an Azure
// Blob Storage container. The configured bucket is used as the container name.
package azure

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/storage"
)

func init() {
	storage.Register("azure", func(cfg config.StorageConfig) (storage.Backend, error) {
		return New(cfg.Bucket, cfg.Azure)
	})
}

type Backend struct {
	client     *azblob.Client
	credential *azblob.SharedKeyCredential
	serviceURL string
	container  string
}

func New(container string, cfg config.AzureStorageConfig) (*Backend, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}
	if container == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &Backend{
		client:     client,
		credential: credential,
		serviceURL: serviceURL,
		container:  container,
	}, nil
}

func (b *Backend) Name() string   { return "azure" }
func (b *Backend) Bucket() string { return b.container }

// SignUpload grants Create only, so the URL cannot overwrite an existing blob.
func (b *Backend) SignUpload(ctx context.Context, objectPath, contentType string, ttl time.Duration) (*storage.SignedUpload, error) {
	expires := time.Now().UTC().Add(ttl)

	permissions := sas.BlobPermissions{Create: true}
	params, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     time.Now().UTC().Add(-5 * time.Minute), // clock skew
		ExpiryTime:    expires,
		Permissions:   permissions.String(),
		ContainerName: b.container,
		BlobName:      objectPath,
		ContentType:   contentType,
	}.SignWithSharedKey(b.credential)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SAS token: %w", err)
	}

	blobURL := strings.TrimSuffix(b.serviceURL, "/") + "/" + b.container + "/" + escapePath(objectPath)

	return &storage.SignedUpload{
		URL:    blobURL + "?" + params.Encode(),
		Method: "PUT",
		Headers: map[string]string{
			"Content-Type":   contentType,
			"x-ms-blob-type": "BlockBlob",
		},
		Path:      objectPath,
		Bucket:    b.container,
		ExpiresAt: expires,
	}, nil
}

func (b *Backend) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	blobClient := b.client.ServiceClient().NewContainerClient(b.container).NewBlobClient(objectPath)

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download from Azure Blob: %w", err)
	}
	return resp.Body, nil
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
