package domain

import "time"

// Role is the per-tenant privilege level of an end user. Roles are totally
// ordered; comparisons go through Rank, never string comparison.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRanks = map[Role]int{
	RoleGuest:  1,
	RoleUser:   2,
	RoleEditor: 3,
	RoleAdmin:  4,
}

// Rank returns the numeric position of the role in the hierarchy.
// Unknown roles rank below guest so they never pass a privilege check.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// ParseRole maps a string to a known Role, defaulting to guest.
func ParseRole(s string) Role {
	if _, ok := roleRanks[Role(s)]; ok {
		return Role(s)
	}
	return RoleGuest
}

// EndUser is an identity within a tenant. Email is unique per tenant,
// case-insensitive. End users are banned rather than deleted.
type EndUser struct {
	ID           string         `json:"id" bson:"_id,omitempty"`
	TenantID     string         `json:"tenant_id" bson:"tenant_id"`
	Email        string         `json:"email" bson:"email"`
	PasswordHash string         `json:"-" bson:"password_hash"`
	DisplayName  string         `json:"display_name" bson:"display_name"`
	AvatarURL    string         `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	Role         Role           `json:"role" bson:"role"`
	ProfileData  map[string]any `json:"profile_data,omitempty" bson:"profile_data,omitempty"`

	// Reset tokens are single-use; a new request supersedes the old token.
	ResetToken        string     `json:"-" bson:"reset_token,omitempty"`
	ResetTokenExpires *time.Time `json:"-" bson:"reset_token_expires,omitempty"`

	BannedAt    *time.Time `json:"banned_at,omitempty" bson:"banned_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
}

// Banned reports whether the identity is currently banned.
func (u *EndUser) Banned() bool {
	return u.BannedAt != nil
}
