// Package company manages tenant records and their business metadata.
package company

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/validator"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/models"
)

type TenantStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, t *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
}

type MembershipWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, m *models.Membership) error
}

type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

// Details are the business fields shared by create and update.
type Details struct {
	Name                       string  `json:"name" validate:"required"`
	BusinessType               string  `json:"business_type" validate:"required"`
	BusinessEmail              string  `json:"business_email" validate:"required"`
	Phone                      *string `json:"phone"`
	LicenseNumber              *string `json:"license_number"`
	Address                    *string `json:"address"`
	EstimatedMonthlyDeliveries *int    `json:"estimated_monthly_deliveries" validate:"omitempty,min=0"`
}

type UpdateRequest struct {
	CompanyID string `json:"companyId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Details
}

type Service struct {
	tenants     TenantStore
	memberships MembershipWriter
	authz       *authz.Authorizer
	audit       AuditLogger
	now         func() time.Time
}

func NewService(tenants TenantStore, memberships MembershipWriter, authorizer *authz.Authorizer, auditLog AuditLogger) *Service {
	return &Service{
		tenants:     tenants,
		memberships: memberships,
		authz:       authorizer,
		audit:       auditLog,
		now:         time.Now,
	}
}

// Create registers a tenant with userID as its active owner.
func (s *Service) Create(ctx context.Context, userID string, d Details) (*models.Tenant, error) {
	email, err := cleanDetails(&d)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	tenant := &models.Tenant{
		ID:                         "ten_" + uuid.New().String(),
		Name:                       d.Name,
		BusinessType:               d.BusinessType,
		BusinessEmail:              email,
		Phone:                      d.Phone,
		LicenseNumber:              d.LicenseNumber,
		Address:                    d.Address,
		EstimatedMonthlyDeliveries: d.EstimatedMonthlyDeliveries,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	owner := &models.Membership{
		ID:        "mem_" + uuid.New().String(),
		TenantID:  tenant.ID,
		UserID:    userID,
		Role:      models.RoleOwner,
		Status:    models.MembershipActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.tenants.BeginTx(ctx)
	if err != nil {
		return nil, errors.Upstream("Failed to create company", err)
	}
	defer tx.Rollback()

	if err := s.tenants.CreateTx(ctx, tx, tenant); err != nil {
		return nil, errors.Upstream("Failed to create company", err)
	}
	if err := s.memberships.CreateTx(ctx, tx, owner); err != nil {
		return nil, errors.Upstream("Failed to create company", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Upstream("Failed to create company", err)
	}

	log.Info().Str("tenant_id", tenant.ID).Str("user_id", userID).Msg("company created")
	s.log(ctx, tenant.ID, userID, audit.ActionCompanyCreated, map[string]interface{}{"name": tenant.Name})
	return tenant, nil
}

// Get returns the tenant to any active member.
func (s *Service) Get(ctx context.Context, tenantID, userID string) (*models.Tenant, error) {
	if _, err := s.authz.Authorize(ctx, tenantID, userID, authz.AnyRole...); err != nil {
		return nil, err
	}
	return s.load(ctx, tenantID)
}

// AuthorizeUpdate checks that userID may edit companyID without looking at
// any business field.
func (s *Service) AuthorizeUpdate(ctx context.Context, companyID, userID string) error {
	if companyID == "" || userID == "" {
		var missing []string
		if companyID == "" {
			missing = append(missing, "companyId")
		}
		if userID == "" {
			missing = append(missing, "userId")
		}
		return errors.Validation("Missing required fields: "+strings.Join(missing, ", "), missing...)
	}

	_, err := s.authz.Authorize(ctx, companyID, userID, authz.AdminRoles...)
	return err
}

// Update replaces the business fields of a tenant. The caller must be an
// active owner or admin; that is checked before the fields are validated.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*models.Tenant, error) {
	if err := s.AuthorizeUpdate(ctx, req.CompanyID, req.UserID); err != nil {
		return nil, err
	}

	email, err := cleanDetails(&req.Details)
	if err != nil {
		return nil, err
	}

	tenant, err := s.load(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	tenant.Name = req.Name
	tenant.BusinessType = req.BusinessType
	tenant.BusinessEmail = email
	tenant.Phone = req.Phone
	tenant.LicenseNumber = req.LicenseNumber
	tenant.Address = req.Address
	tenant.EstimatedMonthlyDeliveries = req.EstimatedMonthlyDeliveries
	tenant.UpdatedAt = s.now().Unix()

	if err := s.tenants.Update(ctx, tenant); err != nil {
		log.Error().Err(err).Str("tenant_id", tenant.ID).Msg("failed to update company")
		return nil, errors.Upstream("Failed to update company", err)
	}

	s.log(ctx, tenant.ID, req.UserID, audit.ActionCompanyUpdated, map[string]interface{}{
		"name":          tenant.Name,
		"business_type": tenant.BusinessType,
	})
	return tenant, nil
}

func (s *Service) load(ctx context.Context, tenantID string) (*models.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, errors.Upstream("Failed to load company", err)
	}
	if tenant == nil {
		return nil, errors.NotFound("Company not found")
	}
	return tenant, nil
}

func (s *Service) log(ctx context.Context, tenantID, userID, action string, meta map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       userID,
		Action:       action,
		ResourceType: "company",
		ResourceID:   tenantID,
		Metadata:     meta,
	})
}

// cleanDetails trims text fields in place, validates them and returns the
// normalized business email.
func cleanDetails(d *Details) (string, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.BusinessType = strings.TrimSpace(d.BusinessType)
	d.BusinessEmail = strings.TrimSpace(d.BusinessEmail)
	d.Phone = trimOptional(d.Phone)
	d.LicenseNumber = trimOptional(d.LicenseNumber)
	d.Address = trimOptional(d.Address)

	if err := validator.Struct(d); err != nil {
		return "", err
	}
	email, ok := validator.NormalizeEmail(d.BusinessEmail)
	if !ok {
		return "", errors.Validation("Invalid fields: business_email", "business_email")
	}
	return email, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
