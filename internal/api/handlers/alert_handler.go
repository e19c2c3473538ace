package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"docketflow/internal/engine/compliance"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/metrics"
	"docketflow/internal/platform/models"
)

type AlertHandler struct {
	alerts *compliance.Service
	authz  *authz.Authorizer
}

func NewAlertHandler(alerts *compliance.Service, authorizer *authz.Authorizer) *AlertHandler {
	return &AlertHandler{alerts: alerts, authz: authorizer}
}

// List serves open alerts for ?clientId=. Backend failures are answered with
// an empty successful list so the dashboard keeps rendering.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("clientId")
	if tenantID == "" {
		errors.Respond(w, errors.Validation("Missing required fields: clientId", "clientId"))
		return
	}

	if _, err := h.authz.Authorize(r.Context(), tenantID, principal(r).UserID, authz.AnyRole...); err != nil {
		if !errors.IsUpstream(err) {
			errors.Respond(w, err)
			return
		}
		h.degraded(w, tenantID, err)
		return
	}

	result := h.alerts.OpenAlerts(r.Context(), tenantID)
	alerts, failed := result.OrEmpty([]models.OpenAlert{})
	if failed {
		h.degraded(w, tenantID, result.Err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: alerts})
}

func (h *AlertHandler) degraded(w http.ResponseWriter, tenantID string, err error) {
	metrics.AlertReadsDegradedTotal.Inc()
	log.Warn().Err(err).Str("tenant_id", tenantID).Msg("serving empty alert list")
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: []models.OpenAlert{}})
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerts.Acknowledge(r.Context(), param(r, "alert_id"), principal(r).UserID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: alert})
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CorrectiveActions *string `json:"corrective_actions"`
	}
	if err := decodeJSON(r, &req, true); err != nil {
		errors.Respond(w, err)
		return
	}

	alert, err := h.alerts.Resolve(r.Context(), param(r, "alert_id"), principal(r).UserID, req.CorrectiveActions)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: alert})
}
