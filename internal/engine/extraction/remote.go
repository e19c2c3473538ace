package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docketflow/internal/engine/webhooks"
	"docketflow/internal/platform/config"
)

const SignatureHeader = "X-Docketflow-Signature"

// RemoteExtractor delegates extraction to an HTTP endpoint. Requests are
// signed the same way as outgoing webhooks.
type RemoteExtractor struct {
	url    string
	secret string
	client *http.Client
}

type remoteRequest struct {
	BucketID string `json:"bucketId"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	UserID   string `json:"userId"`
	ClientID string `json:"clientId"`
}

// remoteResponse carries OCR text and optionally fields the endpoint already
// extracted; those take precedence over locally parsed values.
type remoteResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error"`
	ExtractedText string   `json:"extractedText"`
	SupplierName  *string  `json:"supplierName"`
	DocketNumber  *string  `json:"docketNumber"`
	DeliveryDate  *string  `json:"deliveryDate"`
	Confidence    *float64 `json:"confidenceScore"`
}

func NewRemoteExtractor(cfg config.RemoteConfig, timeout time.Duration) *RemoteExtractor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteExtractor{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *RemoteExtractor) Provider() string { return "remote" }

func (e *RemoteExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(remoteRequest{
		BucketID: req.BucketID,
		FileName: req.FileName,
		FilePath: req.FilePath,
		UserID:   req.UserID,
		ClientID: req.TenantID,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.secret != "" {
		httpReq.Header.Set(SignatureHeader, webhooks.Sign(e.secret, payload))
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}

	var out remoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 400 {
			return nil, statusError(resp.StatusCode, "")
		}
		return nil, fmt.Errorf("invalid extraction response: %w", err)
	}
	if resp.StatusCode >= 400 || !out.Success {
		return nil, statusError(resp.StatusCode, out.Error)
	}

	res := Parse(out.ExtractedText)
	if out.SupplierName != nil {
		res.SupplierName = out.SupplierName
	}
	if out.DocketNumber != nil {
		res.DocketNumber = out.DocketNumber
	}
	if out.DeliveryDate != nil {
		res.DeliveryDate = out.DeliveryDate
	}
	if out.Confidence != nil && *out.Confidence >= 0 && *out.Confidence <= 1 {
		res.Confidence = *out.Confidence
	}
	return res, nil
}

// statusError keeps the service's verdict on the document (4xx, or a 2xx
// answer with success=false) apart from its own failures (5xx).
func statusError(status int, msg string) error {
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	if status >= 500 {
		return fmt.Errorf("extraction service error: %s", msg)
	}
	if status < 400 {
		status = http.StatusUnprocessableEntity
	}
	return &RejectedError{StatusCode: status, Message: msg}
}
