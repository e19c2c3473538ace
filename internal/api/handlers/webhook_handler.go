package handlers

import (
	"net/http"

	"docketflow/internal/engine/webhooks"
	"docketflow/internal/pkg/errors"
)

type WebhookHandler struct {
	registry *webhooks.Registry
}

func NewWebhookHandler(registry *webhooks.Registry) *WebhookHandler {
	return &WebhookHandler{registry: registry}
}

// Create returns the signing secret; it is not shown again.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req webhooks.CreateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}

	hook, err := h.registry.Create(r.Context(), param(r, "company_id"), principal(r).UserID, req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: hook})
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.registry.List(r.Context(), param(r, "company_id"))
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: hooks})
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), param(r, "company_id"), principal(r).UserID, param(r, "webhook_id")); err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: nil})
}
