package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"docketflow/internal/platform/database"
	"docketflow/internal/platform/models"
)

// ErrNotConfigured is returned by every repository built without a database.
var ErrNotConfigured = database.ErrNotConfigured

type base struct {
	db *sqlx.DB
}

func (b base) conn() (*sqlx.DB, error) {
	if b.db == nil {
		return nil, ErrNotConfigured
	}
	return b.db, nil
}

func (b base) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	return db.BeginTxx(ctx, nil)
}

// IsUniqueViolation reports a unique-constraint failure from either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

type TenantRepository struct {
	base
}

func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{base{db: db}}
}

const tenantColumns = `id, name, business_type, business_email, phone, license_number, address, estimated_monthly_deliveries, created_at, updated_at`

func (r *TenantRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, t *models.Tenant) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.Name, t.BusinessType, t.BusinessEmail, t.Phone, t.LicenseNumber, t.Address, t.EstimatedMonthlyDeliveries, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var t models.Tenant
	err = db.GetContext(ctx, &t, db.Rebind(`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Update writes the mutable business fields and updated_at.
func (r *TenantRepository) Update(ctx context.Context, t *models.Tenant) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, db.Rebind(`
		UPDATE tenants
		SET name = ?, business_type = ?, business_email = ?, phone = ?, license_number = ?, address = ?,
			estimated_monthly_deliveries = ?, updated_at = ?
		WHERE id = ?
	`), t.Name, t.BusinessType, t.BusinessEmail, t.Phone, t.LicenseNumber, t.Address, t.EstimatedMonthlyDeliveries, t.UpdatedAt, t.ID)
	return err
}

type MembershipRepository struct {
	base
}

func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{base{db: db}}
}

const membershipColumns = `id, tenant_id, user_id, role, status, invited_by, created_at, updated_at`

func (r *MembershipRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, m *models.Membership) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), m.ID, m.TenantID, m.UserID, m.Role, m.Status, m.InvitedBy, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), m.ID, m.TenantID, m.UserID, m.Role, m.Status, m.InvitedBy, m.CreatedAt, m.UpdatedAt)
	return err
}

// Get returns the membership of userID in tenantID whatever its status.
func (r *MembershipRepository) Get(ctx context.Context, tenantID, userID string) (*models.Membership, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var m models.Membership
	err = db.GetContext(ctx, &m, db.Rebind(`SELECT `+membershipColumns+` FROM memberships WHERE tenant_id = ? AND user_id = ?`), tenantID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Membership, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	members := []*models.Membership{}
	err = db.SelectContext(ctx, &members, db.Rebind(`
		SELECT `+membershipColumns+` FROM memberships
		WHERE tenant_id = ? AND status <> 'revoked'
		ORDER BY created_at ASC
	`), tenantID)
	return members, err
}

func (r *MembershipRepository) Update(ctx context.Context, m *models.Membership) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		UPDATE memberships SET role = ?, status = ?, invited_by = ?, updated_at = ? WHERE id = ?
	`), m.Role, m.Status, m.InvitedBy, m.UpdatedAt, m.ID)
	return err
}

// ErrLastOwner is returned when an update would leave a tenant without an
// active owner.
var ErrLastOwner = errors.New("tenant would have no active owner")

// UpdateRetainingOwner applies m unless the tenant would be left without an
// active owner. The owner check and the write share one transaction; on
// postgres the owner rows are locked, sqlite serialises writers.
func (r *MembershipRepository) UpdateRetainingOwner(ctx context.Context, m *models.Membership) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT id FROM memberships WHERE tenant_id = ? AND role = 'owner' AND status = 'active'`
	if tx.DriverName() == "postgres" {
		query += ` FOR UPDATE`
	}
	owners := []string{}
	if err := tx.SelectContext(ctx, &owners, tx.Rebind(query), m.TenantID); err != nil {
		return err
	}

	remaining := 0
	for _, id := range owners {
		if id != m.ID {
			remaining++
		}
	}
	if m.Role == models.RoleOwner && m.Status == models.MembershipActive {
		remaining++
	}
	if remaining == 0 {
		return ErrLastOwner
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE memberships SET role = ?, status = ?, invited_by = ?, updated_at = ? WHERE id = ?
	`), m.Role, m.Status, m.InvitedBy, m.UpdatedAt, m.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByUser returns the active memberships of userID with their tenants.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.UserCompany, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	companies := []models.UserCompany{}
	err = db.SelectContext(ctx, &companies, db.Rebind(`
		SELECT m.role, m.status,
			t.id AS "tenant.id", t.name AS "tenant.name", t.business_type AS "tenant.business_type",
			t.business_email AS "tenant.business_email", t.phone AS "tenant.phone",
			t.license_number AS "tenant.license_number", t.address AS "tenant.address",
			t.estimated_monthly_deliveries AS "tenant.estimated_monthly_deliveries",
			t.created_at AS "tenant.created_at", t.updated_at AS "tenant.updated_at"
		FROM memberships m
		INNER JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_id = ? AND m.status = 'active'
		ORDER BY m.created_at ASC
	`), userID)
	return companies, err
}
