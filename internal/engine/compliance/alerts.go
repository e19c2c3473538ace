package compliance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/models"
)

// Result carries a value or the error that prevented computing it, leaving
// the fallback decision to the caller.
type Result[T any] struct {
	Value T
	Err   error
}

// OrEmpty returns the value, or empty and true when the read failed.
func (r Result[T]) OrEmpty(empty T) (T, bool) {
	if r.Err != nil {
		return empty, true
	}
	return r.Value, false
}

type AlertStore interface {
	ListOpen(ctx context.Context, tenantID string) ([]models.OpenAlert, error)
	GetByID(ctx context.Context, id string) (*models.ComplianceAlert, error)
	Acknowledge(ctx context.Context, id, userID string, at int64) (bool, error)
	Resolve(ctx context.Context, id, userID string, correctiveActions *string, at int64) (bool, error)
}

type Service struct {
	alerts AlertStore
	authz  *authz.Authorizer
}

func NewService(alerts AlertStore, authorizer *authz.Authorizer) *Service {
	return &Service{alerts: alerts, authz: authorizer}
}

// OpenAlerts lists unresolved alerts for a tenant, newest first.
func (s *Service) OpenAlerts(ctx context.Context, tenantID string) Result[[]models.OpenAlert] {
	alerts, err := s.alerts.ListOpen(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to load open compliance alerts")
		return Result[[]models.OpenAlert]{Err: err}
	}
	return Result[[]models.OpenAlert]{Value: alerts}
}

// Acknowledge records that a member has seen the alert. Any active role may acknowledge.
func (s *Service) Acknowledge(ctx context.Context, alertID, userID string) (*models.ComplianceAlert, error) {
	alert, err := s.load(ctx, alertID, userID, authz.AnyRole...)
	if err != nil {
		return nil, err
	}

	ok, err := s.alerts.Acknowledge(ctx, alertID, userID, time.Now().Unix())
	if err != nil {
		return nil, errors.Upstream("Failed to acknowledge alert", err)
	}
	if !ok {
		return nil, errors.Conflict("Alert already acknowledged")
	}
	log.Info().Str("alert_id", alert.ID).Str("user_id", userID).Msg("compliance alert acknowledged")
	return s.reload(ctx, alertID)
}

// Resolve closes the alert so it drops out of the open list. Owner/admin only.
func (s *Service) Resolve(ctx context.Context, alertID, userID string, correctiveActions *string) (*models.ComplianceAlert, error) {
	alert, err := s.load(ctx, alertID, userID, authz.AdminRoles...)
	if err != nil {
		return nil, err
	}

	ok, err := s.alerts.Resolve(ctx, alertID, userID, correctiveActions, time.Now().Unix())
	if err != nil {
		return nil, errors.Upstream("Failed to resolve alert", err)
	}
	if !ok {
		return nil, errors.Conflict("Alert already resolved")
	}
	log.Info().Str("alert_id", alert.ID).Str("user_id", userID).Msg("compliance alert resolved")
	return s.reload(ctx, alertID)
}

func (s *Service) load(ctx context.Context, alertID, userID string, roles ...models.Role) (*models.ComplianceAlert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, errors.Upstream("Failed to load alert", err)
	}
	if alert == nil {
		return nil, errors.NotFound("Alert not found")
	}
	if _, err := s.authz.Authorize(ctx, alert.TenantID, userID, roles...); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *Service) reload(ctx context.Context, alertID string) (*models.ComplianceAlert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, errors.Upstream("Failed to load alert", err)
	}
	return alert, nil
}
