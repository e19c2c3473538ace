package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apiContext "docketflow/internal/api/context"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/auth"
)

const ServiceKeyHeader = "X-Service-Key"

type AuthMiddleware struct {
	gateway     *auth.Gateway
	serviceKeys *auth.ServiceKeyVerifier
}

// NewAuthMiddleware accepts a nil serviceKeys, which disables service-key access.
func NewAuthMiddleware(gateway *auth.Gateway, serviceKeys *auth.ServiceKeyVerifier) *AuthMiddleware {
	return &AuthMiddleware{gateway: gateway, serviceKeys: serviceKeys}
}

// Handle requires a bearer session token.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := m.bearer(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(withPrincipal(r.Context(), principal)))
	}
}

// AllowServiceKey accepts either a valid X-Service-Key or a bearer session token.
func (m *AuthMiddleware) AllowServiceKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(ServiceKeyHeader); key != "" {
			if err := m.serviceKeys.Check(key); err != nil {
				log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("service key rejected")
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid service key", nil)
				return
			}
			next(w, r.WithContext(withPrincipal(r.Context(), &auth.Principal{Service: true})))
			return
		}
		m.Handle(next)(w, r)
	}
}

func (m *AuthMiddleware) bearer(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
		return nil, false
	}

	principal, err := m.gateway.Verify(r.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
		return nil, false
	}
	return principal, true
}

func withPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, apiContext.Principal, p)
}

// PrincipalFrom returns the authenticated caller, or nil on public routes.
func PrincipalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(apiContext.Principal).(*auth.Principal)
	return p
}
