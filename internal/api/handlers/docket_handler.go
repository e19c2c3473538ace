package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"docketflow/internal/engine/ingestion"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/authz"
)

type DocketHandler struct {
	orchestrator *ingestion.Orchestrator
	records      *ingestion.Records
	authz        *authz.Authorizer
}

func NewDocketHandler(orchestrator *ingestion.Orchestrator, records *ingestion.Records, authorizer *authz.Authorizer) *DocketHandler {
	return &DocketHandler{orchestrator: orchestrator, records: records, authz: authorizer}
}

type processResponse struct {
	Success bool `json:"success"`
	*ingestion.Outcome
}

// Process handles the completed-upload notification.
func (h *DocketHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ingestion.Request
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}
	if err := validator.Struct(req); err != nil {
		errors.Respond(w, err)
		return
	}
	if err := checkActor(r.Context(), h.authz, principal(r), req.TenantID, req.UserID); err != nil {
		errors.Respond(w, err)
		return
	}

	outcome, err := h.orchestrator.Process(r.Context(), req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Success: true, Outcome: outcome})
}

type bulkResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Results *ingestion.BulkResult `json:"results"`
}

// ProcessBatch handles a list of completed uploads for one company. Per-item
// failures are reported in the results; the request itself still succeeds.
func (h *DocketHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req ingestion.BulkRequest
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}
	if err := validator.Struct(req); err != nil {
		errors.Respond(w, err)
		return
	}
	if err := checkActor(r.Context(), h.authz, principal(r), req.TenantID, req.UserID); err != nil {
		errors.Respond(w, err)
		return
	}

	res, err := h.orchestrator.ProcessBatch(r.Context(), req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{
		Success: true,
		Message: fmt.Sprintf("Bulk processing completed: %d/%d dockets processed successfully", res.Processed, res.Total),
		Results: res,
	})
}

func (h *DocketHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		errors.Respond(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		errors.Respond(w, err)
		return
	}

	dockets, err := h.records.List(r.Context(), param(r, "company_id"), limit, offset)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: dockets})
}

// Correct applies an operator's edits to extracted fields.
func (h *DocketHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var req ingestion.Correction
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}

	docket, err := h.records.Correct(r.Context(), param(r, "company_id"), param(r, "docket_id"), principal(r).UserID, req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: docket})
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Validation("Invalid fields: "+name, name)
	}
	return v, nil
}
