package middleware

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "docketflow/internal/api/context"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/models"
)

// MembershipMiddleware gates company-scoped routes on the caller's role in
// the company named by a path parameter.
type MembershipMiddleware struct {
	authz *authz.Authorizer
}

func NewMembershipMiddleware(authorizer *authz.Authorizer) *MembershipMiddleware {
	return &MembershipMiddleware{authz: authorizer}
}

// Require admits callers with an active membership holding one of roles
// (any role when empty) in the tenant named by param.
func (m *MembershipMiddleware) Require(param string, roles ...models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFrom(r.Context())
			if principal == nil {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authenticated principal", nil)
				return
			}

			params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
			tenantID := params.ByName(param)
			if tenantID == "" {
				errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Missing company id", nil)
				return
			}

			membership, err := m.authz.Authorize(r.Context(), tenantID, principal.UserID, roles...)
			if err != nil {
				errors.Respond(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), apiContext.Membership, membership)
			next(w, r.WithContext(ctx))
		}
	}
}

// MembershipFrom returns the membership admitted by Require.
func MembershipFrom(ctx context.Context) *models.Membership {
	m, _ := ctx.Value(apiContext.Membership).(*models.Membership)
	return m
}
