package ingestion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/audit"
)

const (
	DefaultBatchSize = 10
	MaxBatchSize     = 25
	MaxBulkDockets   = 100
)

type BulkItem struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
}

// BulkRequest names several uploaded dockets of one tenant. BatchSize bounds
// how many are processed at once.
type BulkRequest struct {
	BucketID  string     `json:"bucketId" validate:"required"`
	UserID    string     `json:"userId" validate:"required"`
	TenantID  string     `json:"clientId" validate:"required"`
	Dockets   []BulkItem `json:"dockets"`
	BatchSize int        `json:"batchSize"`
}

type BulkItemResult struct {
	FilePath string   `json:"filePath"`
	Success  bool     `json:"success"`
	Status   int      `json:"status"`
	Error    string   `json:"error,omitempty"`
	Outcome  *Outcome `json:"result,omitempty"`
}

type BulkResult struct {
	Total           int              `json:"total"`
	Processed       int              `json:"processed"`
	Failed          int              `json:"failed"`
	BatchSize       int              `json:"batchSize"`
	Errors          []string         `json:"errors"`
	DeliveryRecords []string         `json:"deliveryRecords"`
	Items           []BulkItemResult `json:"items"`
}

// ProcessBatch runs Process for every docket in req with at most BatchSize in
// flight. A failing docket is reported in its item and never aborts the rest.
// A path listed twice is processed once; the repeat is reported as a conflict.
func (o *Orchestrator) ProcessBatch(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	switch {
	case len(req.Dockets) == 0:
		return nil, errors.Validation("No dockets provided for processing", "dockets")
	case len(req.Dockets) > MaxBulkDockets:
		return nil, errors.Validation(fmt.Sprintf("At most %d dockets can be processed per request", MaxBulkDockets), "dockets")
	}

	size := req.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if size > MaxBatchSize {
		size = MaxBatchSize
	}

	started := o.now()
	items := make([]BulkItemResult, len(req.Dockets))
	seen := make(map[string]bool, len(req.Dockets))

	var g errgroup.Group
	g.SetLimit(size)
	for i, d := range req.Dockets {
		items[i].FilePath = d.FilePath
		if seen[d.FilePath] {
			items[i].fail(errors.Conflict("Docket is listed more than once in this request"))
			continue
		}
		seen[d.FilePath] = true

		g.Go(func() error {
			out, err := o.Process(ctx, Request{
				BucketID: req.BucketID,
				FileName: d.FileName,
				FilePath: d.FilePath,
				UserID:   req.UserID,
				TenantID: req.TenantID,
			})
			if err != nil {
				items[i].fail(err)
				return nil
			}
			items[i].Success = true
			items[i].Status = http.StatusOK
			items[i].Outcome = out
			return nil
		})
	}
	g.Wait()

	res := &BulkResult{
		Total:           len(items),
		BatchSize:       size,
		Errors:          []string{},
		DeliveryRecords: []string{},
		Items:           items,
	}
	for _, it := range items {
		if !it.Success {
			res.Failed++
			res.Errors = append(res.Errors, it.FilePath+": "+it.Error)
			continue
		}
		res.Processed++
		res.DeliveryRecords = append(res.DeliveryRecords, it.Outcome.DocketID)
	}

	log.Info().
		Str("tenant_id", req.TenantID).
		Int("total", res.Total).
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Int("batch_size", size).
		Dur("elapsed", o.now().Sub(started)).
		Msg("bulk processing completed")

	if o.audit != nil {
		o.audit.Log(ctx, audit.Entry{
			TenantID:     req.TenantID,
			UserID:       req.UserID,
			Action:       audit.ActionBulkProcessed,
			ResourceType: "bulk_operation",
			Metadata: map[string]interface{}{
				"total":            res.Total,
				"processed":        res.Processed,
				"failed":           res.Failed,
				"batch_size":       size,
				"delivery_records": res.DeliveryRecords,
			},
		})
	}
	return res, nil
}

func (r *BulkItemResult) fail(err error) {
	r.Status, _ = errors.Status(err)
	r.Error = errors.PublicMessage(err)
}
