package models

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipInvited MembershipStatus = "invited"
	MembershipRevoked MembershipStatus = "revoked"
)

// Tenant is a client organization. It is never hard-deleted.
type Tenant struct {
	ID                         string  `json:"id" db:"id"`
	Name                       string  `json:"name" db:"name"`
	BusinessType               string  `json:"business_type" db:"business_type"`
	BusinessEmail              string  `json:"business_email" db:"business_email"`
	Phone                      *string `json:"phone,omitempty" db:"phone"`
	LicenseNumber              *string `json:"license_number,omitempty" db:"license_number"`
	Address                    *string `json:"address,omitempty" db:"address"`
	EstimatedMonthlyDeliveries *int    `json:"estimated_monthly_deliveries,omitempty" db:"estimated_monthly_deliveries"`
	CreatedAt                  int64   `json:"created_at" db:"created_at"`
	UpdatedAt                  int64   `json:"updated_at" db:"updated_at"`
}

type Membership struct {
	ID        string           `json:"id" db:"id"`
	TenantID  string           `json:"tenant_id" db:"tenant_id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Role      Role             `json:"role" db:"role"`
	Status    MembershipStatus `json:"status" db:"status"`
	InvitedBy *string          `json:"invited_by,omitempty" db:"invited_by"`
	CreatedAt int64            `json:"created_at" db:"created_at"`
	UpdatedAt int64            `json:"updated_at" db:"updated_at"`
}

func (m *Membership) IsActive() bool {
	return m != nil && m.Status == MembershipActive
}

// HasRole reports whether the membership is active and holds one of roles.
// An empty roles list accepts any active membership.
func (m *Membership) HasRole(roles ...Role) bool {
	if !m.IsActive() {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if m.Role == r {
			return true
		}
	}
	return false
}

// UserCompany is a tenant seen through one of the caller's memberships.
type UserCompany struct {
	Role    Role             `json:"role" db:"role"`
	Status  MembershipStatus `json:"status" db:"status"`
	Company Tenant           `json:"company" db:"tenant"`
}
