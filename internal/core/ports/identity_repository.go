package ports

import (
	"context"

	"github.com/appforge/data-platform/internal/core/domain"
)

// IdentityRepository persists end users. Email lookups are case-insensitive;
// the adapter is expected to normalise to lower case.
type IdentityRepository interface {
	// Insert stores a new identity. A duplicate (tenant_id, email) pair
	// returns a CONFLICT error.
	Insert(ctx context.Context, user *domain.EndUser) error
	FindByID(ctx context.Context, tenantID, id string) (*domain.EndUser, error)
	FindByEmail(ctx context.Context, tenantID, email string) (*domain.EndUser, error)
	// FindByResetToken matches an identity carrying the given reset token.
	FindByResetToken(ctx context.Context, tenantID, token string) (*domain.EndUser, error)
	Update(ctx context.Context, user *domain.EndUser) error
	// CountByTenant is used at signup to enforce the plan user cap.
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}
