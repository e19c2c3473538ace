package company

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/authz"
	"docketflow/internal/platform/database"
	"docketflow/internal/platform/models"
	"docketflow/internal/platform/repositories"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type fixture struct {
	db      *sqlx.DB
	svc     *Service
	members *repositories.MembershipRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := database.Schema()
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	tenants := repositories.NewTenantRepository(db)
	members := repositories.NewMembershipRepository(db)
	return &fixture{
		db:      db,
		svc:     NewService(tenants, members, authz.New(members), nil),
		members: members,
	}
}

func (f *fixture) company(t *testing.T) *models.Tenant {
	t.Helper()
	tenant, err := f.svc.Create(context.Background(), "usr_owner", Details{
		Name:          "Harbour Cafe",
		BusinessType:  "cafe",
		BusinessEmail: "Owner@Harbour.co.nz",
	})
	require.NoError(t, err)
	return tenant
}

func (f *fixture) member(t *testing.T, tenantID, userID string, role models.Role, status models.MembershipStatus) {
	t.Helper()
	require.NoError(t, f.members.Create(context.Background(), &models.Membership{
		ID:       "mem_" + userID,
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
		Status:   status,
	}))
}

func validUpdate(tenantID, userID string) UpdateRequest {
	return UpdateRequest{
		CompanyID: tenantID,
		UserID:    userID,
		Details: Details{
			Name:                       "Harbour Cafe & Bar",
			BusinessType:               "restaurant",
			BusinessEmail:              "kitchen@harbour.co.nz",
			Phone:                      strPtr("+64 9 555 0100"),
			LicenseNumber:              strPtr("FCP-2291"),
			Address:                    strPtr("1 Quay St, Auckland"),
			EstimatedMonthlyDeliveries: intPtr(120),
		},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	tenant := f.company(t)

	assert.Equal(t, "owner@harbour.co.nz", tenant.BusinessEmail)

	m, err := f.members.Get(context.Background(), tenant.ID, "usr_owner")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoleOwner, m.Role)
	assert.Equal(t, models.MembershipActive, m.Status)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "usr_1", Details{Name: "  ", BusinessType: "cafe"})
	var verr *errors.ValidationError
	require.True(t, stderrors.As(err, &verr))
	assert.Equal(t, []string{"name", "business_email"}, verr.Fields)
}

func TestUpdate_OwnerUpdatesEveryField(t *testing.T) {
	f := newFixture(t)
	tenant := f.company(t)

	updated, err := f.svc.Update(context.Background(), validUpdate(tenant.ID, "usr_owner"))
	require.NoError(t, err)

	assert.Equal(t, "Harbour Cafe & Bar", updated.Name)
	assert.Equal(t, "restaurant", updated.BusinessType)
	assert.Equal(t, "kitchen@harbour.co.nz", updated.BusinessEmail)
	assert.Equal(t, "+64 9 555 0100", *updated.Phone)
	assert.Equal(t, "FCP-2291", *updated.LicenseNumber)
	assert.Equal(t, "1 Quay St, Auckland", *updated.Address)
	assert.Equal(t, 120, *updated.EstimatedMonthlyDeliveries)

	stored, err := repositories.NewTenantRepository(f.db).GetByID(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Name, stored.Name)
	assert.Equal(t, 120, *stored.EstimatedMonthlyDeliveries)
}

func TestUpdate_Permissions(t *testing.T) {
	f := newFixture(t)
	tenant := f.company(t)
	f.member(t, tenant.ID, "usr_admin", models.RoleAdmin, models.MembershipActive)
	f.member(t, tenant.ID, "usr_member", models.RoleMember, models.MembershipActive)
	f.member(t, tenant.ID, "usr_invited", models.RoleOwner, models.MembershipInvited)

	invalid := validUpdate(tenant.ID, "")
	invalid.Name = ""
	invalid.BusinessEmail = "not-an-email"

	tests := []struct {
		name       string
		req        UpdateRequest
		wantStatus int
	}{
		{"admin allowed", validUpdate(tenant.ID, "usr_admin"), 200},
		{"member denied", validUpdate(tenant.ID, "usr_member"), 403},
		{"member denied with invalid fields", func() UpdateRequest { r := invalid; r.UserID = "usr_member"; return r }(), 403},
		{"invited owner denied", validUpdate(tenant.ID, "usr_invited"), 403},
		{"stranger denied", validUpdate(tenant.ID, "usr_stranger"), 403},
		{"owner with invalid email", func() UpdateRequest { r := validUpdate(tenant.ID, "usr_owner"); r.BusinessEmail = "nope"; return r }(), 400},
		{"missing company id", validUpdate("", "usr_owner"), 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(context.Background(), tt.req)
			if tt.wantStatus == 200 {
				assert.NoError(t, err)
				return
			}
			status, _ := errors.Status(err)
			assert.Equal(t, tt.wantStatus, status, "err = %v", err)
		})
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	tenant := f.company(t)

	got, err := f.svc.Get(context.Background(), tenant.ID, "usr_owner")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = f.svc.Get(context.Background(), tenant.ID, "usr_stranger")
	var aerr *errors.AuthorizationError
	assert.True(t, stderrors.As(err, &aerr))
}

func TestUnconfiguredDatabase(t *testing.T) {
	members := repositories.NewMembershipRepository(nil)
	svc := NewService(repositories.NewTenantRepository(nil), members, authz.New(members), nil)

	_, err := svc.Update(context.Background(), validUpdate("ten_1", "usr_owner"))
	assert.True(t, errors.IsUpstream(err))

	_, err = svc.Create(context.Background(), "usr_owner", validUpdate("", "").Details)
	assert.True(t, errors.IsUpstream(err))
}
