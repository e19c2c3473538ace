package handlers

import (
	"context"
	"net/http"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/audit"
)

type AuditReader interface {
	List(ctx context.Context, tenantID string, limit int) ([]audit.Entry, error)
}

type AuditHandler struct {
	logs AuditReader
}

func NewAuditHandler(logs AuditReader) *AuditHandler {
	return &AuditHandler{logs: logs}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		errors.Respond(w, err)
		return
	}

	entries, err := h.logs.List(r.Context(), param(r, "company_id"), limit)
	if err != nil {
		errors.Respond(w, errors.Upstream("Failed to load audit log", err))
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: entries})
}
