// Package team manages the membership lifecycle of a tenant: invite, accept,
// role change and revocation.
package team

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/models"
	"docketflow/internal/platform/repositories"
)

type MembershipStore interface {
	Get(ctx context.Context, tenantID, userID string) (*models.Membership, error)
	Create(ctx context.Context, m *models.Membership) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Membership, error)
	Update(ctx context.Context, m *models.Membership) error
	UpdateRetainingOwner(ctx context.Context, m *models.Membership) error
}

type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

type InviteRequest struct {
	UserID string      `json:"user_id" validate:"required"`
	Role   models.Role `json:"role" validate:"required"`
}

type Service struct {
	members MembershipStore
	authz   *authz.Authorizer
	audit   AuditLogger
	now     func() time.Time
}

func NewService(members MembershipStore, authorizer *authz.Authorizer, auditLog AuditLogger) *Service {
	return &Service{members: members, authz: authorizer, audit: auditLog, now: time.Now}
}

// List returns the non-revoked members of a tenant to any active member.
func (s *Service) List(ctx context.Context, tenantID, actorID string) ([]*models.Membership, error) {
	if _, err := s.authz.Authorize(ctx, tenantID, actorID, authz.AnyRole...); err != nil {
		return nil, err
	}
	members, err := s.members.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Upstream("Failed to load team members", err)
	}
	return members, nil
}

// Invite creates a pending membership. Owners and admins may invite; only
// owners may invite another owner. A revoked member is re-invited in place.
func (s *Service) Invite(ctx context.Context, tenantID, actorID string, req InviteRequest) (*models.Membership, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, errors.Validation("Invalid fields: role", "role")
	}

	actor, err := s.authz.Authorize(ctx, tenantID, actorID, authz.AdminRoles...)
	if err != nil {
		return nil, err
	}
	if req.Role == models.RoleOwner && actor.Role != models.RoleOwner {
		return nil, errors.Forbidden("Only owners can invite owners")
	}

	existing, err := s.members.Get(ctx, tenantID, req.UserID)
	if err != nil {
		return nil, errors.Upstream("Failed to load team member", err)
	}

	now := s.now().Unix()
	inviter := actorID

	if existing != nil {
		switch existing.Status {
		case models.MembershipActive:
			return nil, errors.Conflict("User is already a member of this company")
		case models.MembershipInvited:
			return nil, errors.Conflict("User has already been invited")
		}
		existing.Role = req.Role
		existing.Status = models.MembershipInvited
		existing.InvitedBy = &inviter
		existing.UpdatedAt = now
		if err := s.members.Update(ctx, existing); err != nil {
			return nil, errors.Upstream("Failed to invite team member", err)
		}
		s.log(ctx, tenantID, actorID, audit.ActionMemberInvited, existing)
		return existing, nil
	}

	m := &models.Membership{
		ID:        "mem_" + uuid.New().String(),
		TenantID:  tenantID,
		UserID:    req.UserID,
		Role:      req.Role,
		Status:    models.MembershipInvited,
		InvitedBy: &inviter,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.members.Create(ctx, m); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, errors.Conflict("User has already been invited")
		}
		return nil, errors.Upstream("Failed to invite team member", err)
	}

	log.Info().Str("tenant_id", tenantID).Str("user_id", req.UserID).Str("role", string(req.Role)).Msg("team member invited")
	s.log(ctx, tenantID, actorID, audit.ActionMemberInvited, m)
	return m, nil
}

// Accept activates the caller's own pending invitation.
func (s *Service) Accept(ctx context.Context, tenantID, userID string) (*models.Membership, error) {
	m, err := s.members.Get(ctx, tenantID, userID)
	if err != nil {
		return nil, errors.Upstream("Failed to load invitation", err)
	}
	if m == nil || m.Status != models.MembershipInvited {
		return nil, errors.NotFound("Invitation not found")
	}

	m.Status = models.MembershipActive
	m.UpdatedAt = s.now().Unix()
	if err := s.members.Update(ctx, m); err != nil {
		return nil, errors.Upstream("Failed to accept invitation", err)
	}
	s.log(ctx, tenantID, userID, audit.ActionMemberAccepted, m)
	return m, nil
}

// ChangeRole is owner only. The last active owner cannot be demoted.
func (s *Service) ChangeRole(ctx context.Context, tenantID, actorID, userID string, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, errors.Validation("Invalid fields: role", "role")
	}
	if _, err := s.authz.Authorize(ctx, tenantID, actorID, authz.OwnerOnly...); err != nil {
		return nil, err
	}

	target, err := s.target(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}
	demoting := target.Role == models.RoleOwner

	target.Role = role
	target.UpdatedAt = s.now().Unix()
	if err := s.save(ctx, target, demoting, "Cannot demote the last owner", "Failed to update team member"); err != nil {
		return nil, err
	}
	s.log(ctx, tenantID, actorID, audit.ActionMemberRoleChange, target)
	return target, nil
}

// Revoke removes a member. Admins cannot revoke owners and the last active
// owner cannot be revoked.
func (s *Service) Revoke(ctx context.Context, tenantID, actorID, userID string) (*models.Membership, error) {
	actor, err := s.authz.Authorize(ctx, tenantID, actorID, authz.AdminRoles...)
	if err != nil {
		return nil, err
	}

	target, err := s.target(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleOwner {
		if actor.Role != models.RoleOwner {
			return nil, errors.Forbidden("Admins cannot revoke owners")
		}
	}
	revokingOwner := target.Role == models.RoleOwner

	target.Status = models.MembershipRevoked
	target.UpdatedAt = s.now().Unix()
	if err := s.save(ctx, target, revokingOwner, "Cannot revoke the last owner", "Failed to revoke team member"); err != nil {
		return nil, err
	}
	s.log(ctx, tenantID, actorID, audit.ActionMemberRevoked, target)
	return target, nil
}

func (s *Service) target(ctx context.Context, tenantID, userID string) (*models.Membership, error) {
	m, err := s.members.Get(ctx, tenantID, userID)
	if err != nil {
		return nil, errors.Upstream("Failed to load team member", err)
	}
	if m == nil || m.Status == models.MembershipRevoked {
		return nil, errors.NotFound("Member not found")
	}
	return m, nil
}

// save writes m. When it touches an owner row the write only lands if an
// active owner remains; otherwise it fails with a conflict carrying lastOwner.
func (s *Service) save(ctx context.Context, m *models.Membership, ownerChange bool, lastOwner, failed string) error {
	var err error
	if ownerChange {
		err = s.members.UpdateRetainingOwner(ctx, m)
	} else {
		err = s.members.Update(ctx, m)
	}
	if stderrors.Is(err, repositories.ErrLastOwner) {
		return errors.Conflict(lastOwner)
	}
	if err != nil {
		return errors.Upstream(failed, err)
	}
	return nil
}

func (s *Service) log(ctx context.Context, tenantID, actorID, action string, m *models.Membership) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       actorID,
		Action:       action,
		ResourceType: "membership",
		ResourceID:   m.ID,
		Metadata: map[string]interface{}{
			"member": m.UserID,
			"role":   m.Role,
			"status": m.Status,
		},
	})
}
