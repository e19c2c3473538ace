// Package authz is the single place where tenant role checks happen.
package authz

import (
	"context"

	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/models"
)

type MembershipStore interface {
	Get(ctx context.Context, tenantID, userID string) (*models.Membership, error)
}

var (
	AnyRole    = []models.Role{}
	AdminRoles = []models.Role{models.RoleOwner, models.RoleAdmin}
	OwnerOnly  = []models.Role{models.RoleOwner}
)

type Authorizer struct {
	memberships MembershipStore
}

func New(memberships MembershipStore) *Authorizer {
	return &Authorizer{memberships: memberships}
}

// Authorize returns the caller's membership when it is active and holds one
// of roles (any role when roles is empty). Lookup failures are UpstreamErrors.
func (a *Authorizer) Authorize(ctx context.Context, tenantID, userID string, roles ...models.Role) (*models.Membership, error) {
	m, err := a.memberships.Get(ctx, tenantID, userID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Str("user_id", userID).Msg("membership lookup failed")
		return nil, errors.Upstream("Failed to verify company access", err)
	}
	if !m.IsActive() {
		return nil, errors.Forbidden("Access denied or company not found")
	}
	if !m.HasRole(roles...) {
		return nil, errors.Forbidden("Insufficient permissions")
	}
	return m, nil
}
