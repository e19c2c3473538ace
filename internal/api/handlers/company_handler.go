package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"docketflow/internal/engine/company"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/models"
)

type CompanyHandler struct {
	companies *company.Service
}

func NewCompanyHandler(companies *company.Service) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type companyResponse struct {
	Success bool           `json:"success"`
	Company *models.Tenant `json:"company"`
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req company.Details
	if err := decodeJSON(r, &req, false); err != nil {
		errors.Respond(w, err)
		return
	}

	tenant, err := h.companies.Create(r.Context(), principal(r).UserID, req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, companyResponse{Success: true, Company: tenant})
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.companies.Get(r.Context(), param(r, "company_id"), principal(r).UserID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse{Success: true, Company: tenant})
}

// Update serves PUT /update-company. The userId in the body must be the
// session user. Permissions are checked before the business fields are
// decoded, so a caller without rights gets 403 whatever else the body holds.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		errors.Respond(w, errors.Validation("Invalid request body"))
		return
	}

	var target struct {
		CompanyID string `json:"companyId"`
		UserID    string `json:"userId"`
	}
	if err := json.Unmarshal(body, &target); err != nil {
		errors.Respond(w, errors.Validation("Invalid request body"))
		return
	}
	if target.UserID != "" && target.UserID != principal(r).UserID {
		errors.Respond(w, errors.Forbidden("User does not match the authenticated session"))
		return
	}
	if err := h.companies.AuthorizeUpdate(r.Context(), target.CompanyID, target.UserID); err != nil {
		errors.Respond(w, err)
		return
	}

	var req company.UpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		errors.Respond(w, errors.Validation("Invalid request body"))
		return
	}

	tenant, err := h.companies.Update(r.Context(), req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse{Success: true, Company: tenant})
}
