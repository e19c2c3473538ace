package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strings"

	documentai "google.golang.org/api/documentai/v1"
	"google.golang.org/api/option"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/storage"
)

// maxDocumentBytes is the Document AI online-processing request limit.
const maxDocumentBytes = 20 << 20

var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".gif":  "image/gif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".pdf":  "application/pdf",
}

// DocumentAIExtractor OCRs the uploaded object with a Google Document AI processor.
type DocumentAIExtractor struct {
	service   *documentai.Service
	processor string
	objects   storage.Backend
}

func NewDocumentAIExtractor(ctx context.Context, cfg config.DocumentAIConfig, objects storage.Backend, extra ...option.ClientOption) (*DocumentAIExtractor, error) {
	if objects == nil {
		return nil, fmt.Errorf("documentai extractor needs a storage backend")
	}

	location := cfg.Location
	if location == "" {
		location = "us"
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("https://%s-documentai.googleapis.com/", location)),
	}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := documentai.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}

	return &DocumentAIExtractor{
		service:   svc,
		processor: fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, location, cfg.ProcessorID),
		objects:   objects,
	}, nil
}

func (e *DocumentAIExtractor) Provider() string { return "documentai" }

func (e *DocumentAIExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	rc, err := e.objects.Open(ctx, req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download docket: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to download docket: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("docket exceeds %d bytes", maxDocumentBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("docket file is empty")
	}

	resp, err := e.service.Projects.Locations.Processors.Process(e.processor, &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: mimeTypeFor(req.FileName),
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("document AI processing failed: %w", err)
	}
	if resp.Document == nil || strings.TrimSpace(resp.Document.Text) == "" {
		return nil, fmt.Errorf("document AI returned no text")
	}

	return Parse(resp.Document.Text), nil
}

func mimeTypeFor(fileName string) string {
	if mt, ok := mimeByExt[strings.ToLower(path.Ext(fileName))]; ok {
		return mt
	}
	return "image/jpeg"
}
