package team

import (
	"context"
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

const tenantID = "ten_harbour"

type fixture struct {
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
	_, err = db.Exec(`INSERT INTO tenants (id, name, created_at, updated_at) VALUES (?, 'Harbour Cafe', 1, 1)`, tenantID)
	require.NoError(t, err)

	members := repositories.NewMembershipRepository(db)
	f := &fixture{svc: NewService(members, authz.New(members), nil), members: members}
	f.add(t, "usr_owner", models.RoleOwner, models.MembershipActive)
	f.add(t, "usr_admin", models.RoleAdmin, models.MembershipActive)
	f.add(t, "usr_member", models.RoleMember, models.MembershipActive)
	return f
}

func (f *fixture) add(t *testing.T, userID string, role models.Role, status models.MembershipStatus) {
	t.Helper()
	require.NoError(t, f.members.Create(context.Background(), &models.Membership{
		ID: "mem_" + userID, TenantID: tenantID, UserID: userID, Role: role, Status: status,
	}))
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	status, _ := errors.Status(err)
	return status
}

func TestInviteAndAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.Invite(ctx, tenantID, "usr_admin", InviteRequest{UserID: "usr_new", Role: models.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipInvited, m.Status)
	assert.Equal(t, "usr_admin", *m.InvitedBy)

	_, err = f.svc.Invite(ctx, tenantID, "usr_admin", InviteRequest{UserID: "usr_new", Role: models.RoleMember})
	assert.Equal(t, 409, statusOf(err))

	accepted, err := f.svc.Accept(ctx, tenantID, "usr_new")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipActive, accepted.Status)

	_, err = f.svc.Accept(ctx, tenantID, "usr_new")
	assert.Equal(t, 404, statusOf(err))

	list, err := f.svc.List(ctx, tenantID, "usr_new")
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func TestInvite_Permissions(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		role  models.Role
		want  int
	}{
		{"owner invites owner", "usr_owner", models.RoleOwner, 200},
		{"admin invites admin", "usr_admin", models.RoleAdmin, 200},
		{"admin cannot invite owner", "usr_admin", models.RoleOwner, 403},
		{"member cannot invite", "usr_member", models.RoleMember, 403},
		{"unknown role", "usr_owner", models.Role("manager"), 400},
		{"missing role", "usr_owner", models.Role(""), 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Invite(context.Background(), tenantID, tt.actor, InviteRequest{UserID: "usr_new", Role: tt.role})
			assert.Equal(t, tt.want, statusOf(err), "err = %v", err)
		})
	}
}

func TestInvite_ReusesRevokedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Revoke(ctx, tenantID, "usr_admin", "usr_member")
	require.NoError(t, err)

	m, err := f.svc.Invite(ctx, tenantID, "usr_owner", InviteRequest{UserID: "usr_member", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "mem_usr_member", m.ID)
	assert.Equal(t, models.RoleAdmin, m.Role)
	assert.Equal(t, models.MembershipInvited, m.Status)
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ChangeRole(ctx, tenantID, "usr_admin", "usr_member", models.RoleAdmin)
	assert.Equal(t, 403, statusOf(err), "admins cannot change roles")

	_, err = f.svc.ChangeRole(ctx, tenantID, "usr_owner", "usr_owner", models.RoleAdmin)
	assert.Equal(t, 409, statusOf(err), "last owner cannot be demoted")

	m, err := f.svc.ChangeRole(ctx, tenantID, "usr_owner", "usr_admin", models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, m.Role)

	m, err = f.svc.ChangeRole(ctx, tenantID, "usr_admin", "usr_owner", models.RoleMember)
	require.NoError(t, err, "a second owner may demote the first")
	assert.Equal(t, models.RoleMember, m.Role)

	_, err = f.svc.ChangeRole(ctx, tenantID, "usr_admin", "usr_ghost", models.RoleMember)
	assert.Equal(t, 404, statusOf(err))
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "usr_owner2", models.RoleOwner, models.MembershipActive)

	_, err := f.svc.Revoke(ctx, tenantID, "usr_admin", "usr_owner2")
	assert.Equal(t, 403, statusOf(err), "admins cannot revoke owners")

	_, err = f.svc.Revoke(ctx, tenantID, "usr_member", "usr_admin")
	assert.Equal(t, 403, statusOf(err))

	_, err = f.svc.Revoke(ctx, tenantID, "usr_owner", "usr_owner2")
	require.NoError(t, err)

	_, err = f.svc.Revoke(ctx, tenantID, "usr_owner", "usr_owner")
	assert.Equal(t, 409, statusOf(err), "last owner cannot be revoked")

	_, err = f.svc.Revoke(ctx, tenantID, "usr_owner", "usr_owner2")
	assert.Equal(t, 404, statusOf(err), "already revoked")
}

// racingStore revokes another owner just before the guarded write lands,
// the way a concurrent request would.
type racingStore struct {
	*repositories.MembershipRepository
	other *models.Membership
}

func (r *racingStore) UpdateRetainingOwner(ctx context.Context, m *models.Membership) error {
	r.other.Status = models.MembershipRevoked
	if err := r.MembershipRepository.Update(ctx, r.other); err != nil {
		return err
	}
	return r.MembershipRepository.UpdateRetainingOwner(ctx, m)
}

func TestRevoke_ConcurrentOwnerRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "usr_owner2", models.RoleOwner, models.MembershipActive)

	other, err := f.members.Get(ctx, tenantID, "usr_owner2")
	require.NoError(t, err)
	svc := NewService(&racingStore{MembershipRepository: f.members, other: other}, authz.New(f.members), nil)

	_, err = svc.Revoke(ctx, tenantID, "usr_owner", "usr_owner")
	assert.Equal(t, 409, statusOf(err), "err = %v", err)

	owner, err := f.members.Get(ctx, tenantID, "usr_owner")
	require.NoError(t, err)
	assert.True(t, owner.IsActive(), "the remaining owner must stay active")
	assert.Equal(t, models.RoleOwner, owner.Role)
}
