package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "docketflow/internal/api/context"
	"docketflow/internal/api/middleware"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/auth"
	"docketflow/internal/platform/authz"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v. An empty body is allowed when
// optional is set.
func decodeJSON(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || (optional && stderrors.Is(err, io.EOF)) {
		return nil
	}
	return errors.Validation("Invalid request body")
}

func param(r *http.Request, name string) string {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName(name)
}

func principal(r *http.Request) *auth.Principal {
	if p := middleware.PrincipalFrom(r.Context()); p != nil {
		return p
	}
	return &auth.Principal{}
}

// checkActor verifies that a user id named in a request body is the session
// user and holds an active membership in tenantID. Service callers act on
// behalf of any user.
func checkActor(ctx context.Context, authorizer *authz.Authorizer, p *auth.Principal, tenantID, userID string) error {
	if p.Service {
		return nil
	}
	if userID != p.UserID {
		return errors.Forbidden("User does not match the authenticated session")
	}
	_, err := authorizer.Authorize(ctx, tenantID, userID, authz.AnyRole...)
	return err
}
