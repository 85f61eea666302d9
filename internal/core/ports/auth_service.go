package ports

import (
	"context"

	"github.com/appforge/data-platform/internal/core/domain"
)

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	IdentityID string
	TenantID   string
	Role       domain.Role
}

// SignupInput carries everything needed to create an identity.
type SignupInput struct {
	TenantID    string
	Email       string
	Password    string
	DisplayName string
}

// AuthResult pairs an identity with a freshly issued session token.
type AuthResult struct {
	User  *domain.EndUser
	Token string
}

// UpdateProfileInput holds the mutable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateProfileInput struct {
	TenantID    string
	IdentityID  string
	DisplayName *string
	AvatarURL   *string
	ProfileData map[string]any
}

// AuthService implements identity lifecycle and session tokens.
type AuthService interface {
	// Signup creates an identity. The first identity of a tenant is
	// auto-promoted to admin; later signups default to user. Enforces the
	// tenant's plan user cap.
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, tenantID, email, password string) (*AuthResult, error)
	// ParseToken verifies a bearer token and resolves the identity behind
	// it. Any signature, expiry or shape failure yields AUTH_INVALID, and
	// so does a banned or since-removed identity: a valid signature alone
	// does not keep a session alive. The returned role is the stored one,
	// so role changes take effect without reissuing the token.
	ParseToken(ctx context.Context, token string) (*TokenClaims, error)
	Me(ctx context.Context, tenantID, identityID string) (*domain.EndUser, error)
	UpdateProfile(ctx context.Context, in UpdateProfileInput) (*domain.EndUser, error)
	// ChangeRole sets a user's role. Audited.
	ChangeRole(ctx context.Context, tenantID, actorID, targetID string, role domain.Role) (*domain.EndUser, error)
	// Ban and Unban toggle the banned state. Audited.
	Ban(ctx context.Context, tenantID, actorID, targetID string) error
	Unban(ctx context.Context, tenantID, actorID, targetID string) error
	// RequestPasswordReset issues a single-use reset token with a one hour
	// expiry. Returns the token so the (external) mail collaborator can
	// deliver it; unknown emails return NOT_FOUND.
	RequestPasswordReset(ctx context.Context, tenantID, email string) (string, error)
	ResetPassword(ctx context.Context, tenantID, token, newPassword string) error
}
