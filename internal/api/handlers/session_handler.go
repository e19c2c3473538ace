package handlers

import (
	"context"
	"net/http"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/models"
)

type CompanyLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.UserCompany, error)
}

// SessionHandler describes the authenticated caller.
type SessionHandler struct {
	memberships CompanyLister
}

func NewSessionHandler(memberships CompanyLister) *SessionHandler {
	return &SessionHandler{memberships: memberships}
}

type sessionResponse struct {
	Success   bool                 `json:"success"`
	UserID    string               `json:"userId"`
	Email     string               `json:"email,omitempty"`
	Companies []models.UserCompany `json:"companies"`
}

// Me returns the session user and the companies they are an active member of.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p.Service {
		errors.Respond(w, errors.Forbidden("Service callers have no session"))
		return
	}

	companies, err := h.memberships.ListByUser(r.Context(), p.UserID)
	if err != nil {
		errors.Respond(w, errors.Upstream("Failed to load companies", err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, UserID: p.UserID, Email: p.Email, Companies: companies})
}
