package handlers

import (
	"net/http"

	"docketflow/internal/engine/uploads"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/authz"
)

type UploadHandler struct {
	issuer *uploads.Issuer
	authz  *authz.Authorizer
}

func NewUploadHandler(issuer *uploads.Issuer, authorizer *authz.Authorizer) *UploadHandler {
	return &UploadHandler{issuer: issuer, authz: authorizer}
}

type uploadResponse struct {
	Success bool `json:"success"`
	*uploads.Upload
}

// Create issues a signed upload URL for a docket file.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req uploads.Request
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

	upload, err := h.issuer.Issue(r.Context(), req)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, Upload: upload})
}
