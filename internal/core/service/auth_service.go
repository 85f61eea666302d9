package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
)

const (
	tokenTTL      = 30 * 24 * time.Hour
	resetTokenTTL = time.Hour
)

// AuthService implements signup, login, profile and role management plus
// stateless session tokens.
type AuthService struct {
	identities ports.IdentityRepository
	tenants    ports.TenantRepository
	audit      ports.AuditSink
	jwtSecret  []byte
	logger     zerolog.Logger
}

func NewAuthService(
	identities ports.IdentityRepository,
	tenants ports.TenantRepository,
	audit ports.AuditSink,
	jwtSecret string,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		tenants:    tenants,
		audit:      audit,
		jwtSecret:  []byte(jwtSecret),
		logger:     logger,
	}
}

// Signup creates a new identity. The first identity in a tenant is
// auto-promoted to admin; the tenant's plan tier caps the identity count.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidation("invalid signup payload", domain.FieldViolation{
			Field: "email", Rule: "email", Message: "must be a valid email address",
		})
	}
	if len(in.Password) < 8 {
		return nil, domain.NewValidation("invalid signup payload", domain.FieldViolation{
			Field: "password", Rule: "minLength", Message: "must be at least 8 characters",
		})
	}

	tenant, err := s.tenants.FindByID(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}

	count, err := s.identities.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if count >= tenant.Plan.UserLimit() {
		return nil, domain.NewValidation(fmt.Sprintf("plan limit of %d users reached", tenant.Plan.UserLimit()))
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	role := domain.RoleUser
	if count == 0 {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user := &domain.EndUser{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.identities.Insert(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	s.logger.Info().
		Str("tenant_id", tenant.ID).
		Str("identity_id", user.ID).
		Str("role", string(user.Role)).
		Msg("identity created")

	return &ports.AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a fresh session token. Unknown
// email, wrong password and banned identities are indistinguishable.
func (s *AuthService) Login(ctx context.Context, tenantID, email, password string) (*ports.AuthResult, error) {
	user, err := s.identities.FindByEmail(ctx, tenantID, normalizeEmail(email))
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NewAuthInvalid("invalid credentials")
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) || user.Banned() {
		return nil, domain.NewAuthInvalid("invalid credentials")
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.identities.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", user.ID).Msg("failed to record last login")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	return &ports.AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) issueToken(user *domain.EndUser) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"tid":  user.TenantID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.jwtSecret)
}

// ParseToken verifies signature and expiry, then re-resolves the identity
// so bans and role changes take effect immediately instead of riding out
// the token TTL. Verification fails closed: any failure yields
// AUTH_INVALID.
func (s *AuthService) ParseToken(ctx context.Context, token string) (*ports.TokenClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.NewAuthInvalid("invalid or expired token")
	}

	sub, _ := claims["sub"].(string)
	tid, _ := claims["tid"].(string)
	if sub == "" || tid == "" {
		return nil, domain.NewAuthInvalid("malformed token claims")
	}

	user, err := s.identities.FindByID(ctx, tid, sub)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NewAuthInvalid("unknown identity")
		}
		return nil, err
	}
	if user.Banned() {
		return nil, domain.NewAuthInvalid("account disabled")
	}

	return &ports.TokenClaims{
		IdentityID: sub,
		TenantID:   tid,
		Role:       user.Role,
	}, nil
}

func (s *AuthService) Me(ctx context.Context, tenantID, identityID string) (*domain.EndUser, error) {
	return s.identities.FindByID(ctx, tenantID, identityID)
}

// UpdateProfile applies the provided fields; nil pointers keep stored values.
func (s *AuthService) UpdateProfile(ctx context.Context, in ports.UpdateProfileInput) (*domain.EndUser, error) {
	user, err := s.identities.FindByID(ctx, in.TenantID, in.IdentityID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if in.ProfileData != nil {
		user.ProfileData = in.ProfileData
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.identities.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeRole sets the target's role and records an audit entry.
func (s *AuthService) ChangeRole(ctx context.Context, tenantID, actorID, targetID string, role domain.Role) (*domain.EndUser, error) {
	if role.Rank() == 0 {
		return nil, domain.NewValidation("unknown role", domain.FieldViolation{
			Field: "role", Rule: "enum", Message: "must be one of guest, user, editor, admin",
		})
	}

	user, err := s.identities.FindByID(ctx, tenantID, targetID)
	if err != nil {
		return nil, err
	}

	previous := user.Role
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.identities.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, ports.AuditEntry{
		TenantID:     tenantID,
		ActorID:      actorID,
		Action:       "role_change",
		ResourceType: "end_user",
		ResourceID:   targetID,
		Details:      map[string]any{"from": string(previous), "to": string(role)},
	})

	return user, nil
}

func (s *AuthService) Ban(ctx context.Context, tenantID, actorID, targetID string) error {
	return s.setBanned(ctx, tenantID, actorID, targetID, true)
}

func (s *AuthService) Unban(ctx context.Context, tenantID, actorID, targetID string) error {
	return s.setBanned(ctx, tenantID, actorID, targetID, false)
}

func (s *AuthService) setBanned(ctx context.Context, tenantID, actorID, targetID string, banned bool) error {
	user, err := s.identities.FindByID(ctx, tenantID, targetID)
	if err != nil {
		return err
	}

	action := "unban"
	user.BannedAt = nil
	if banned {
		action = "ban"
		now := time.Now().UTC()
		user.BannedAt = &now
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.identities.Update(ctx, user); err != nil {
		return err
	}

	s.audit.Record(ctx, ports.AuditEntry{
		TenantID:     tenantID,
		ActorID:      actorID,
		Action:       action,
		ResourceType: "end_user",
		ResourceID:   targetID,
	})
	return nil
}

// RequestPasswordReset stores a fresh single-use reset token on the
// identity, superseding any previous one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, tenantID, email string) (string, error) {
	user, err := s.identities.FindByEmail(ctx, tenantID, normalizeEmail(email))
	if err != nil {
		return "", err
	}

	token, err := GenerateResetToken()
	if err != nil {
		return "", domain.NewInternal(err)
	}

	expires := time.Now().UTC().Add(resetTokenTTL)
	user.ResetToken = token
	user.ResetTokenExpires = &expires
	user.UpdatedAt = time.Now().UTC()

	if err := s.identities.Update(ctx, user); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token. Expired or unknown tokens are
// rejected; the token is cleared on success.
func (s *AuthService) ResetPassword(ctx context.Context, tenantID, token, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.NewValidation("invalid password", domain.FieldViolation{
			Field: "password", Rule: "minLength", Message: "must be at least 8 characters",
		})
	}

	user, err := s.identities.FindByResetToken(ctx, tenantID, token)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.NewAuthInvalid("invalid or expired reset token")
		}
		return err
	}
	if user.ResetTokenExpires == nil || time.Now().UTC().After(*user.ResetTokenExpires) {
		return domain.NewAuthInvalid("invalid or expired reset token")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return domain.NewInternal(err)
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpires = nil
	user.UpdatedAt = time.Now().UTC()

	return s.identities.Update(ctx, user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
