package handlers

import (
	"net/http"

	"docketflow/internal/engine/team"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/models"
)

type TeamHandler struct {
	team *team.Service
}

func NewTeamHandler(svc *team.Service) *TeamHandler {
	return &TeamHandler{team: svc}
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.team.List(r.Context(), param(r, "company_id"), principal(r).UserID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: members})
}

func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req team.InviteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}

	m, err := h.team.Invite(r.Context(), param(r, "company_id"), principal(r).UserID, req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: m})
}

func (h *TeamHandler) Accept(w http.ResponseWriter, r *http.Request) {
	m, err := h.team.Accept(r.Context(), param(r, "company_id"), principal(r).UserID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: m})
}

func (h *TeamHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}

	m, err := h.team.ChangeRole(r.Context(), param(r, "company_id"), principal(r).UserID, param(r, "user_id"), req.Role)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: m})
}

func (h *TeamHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	m, err := h.team.Revoke(r.Context(), param(r, "company_id"), principal(r).UserID, param(r, "user_id"))
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: m})
}
