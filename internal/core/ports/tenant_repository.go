package ports

import (
	"context"

	"github.com/appforge/data-platform/internal/core/domain"
)

// TenantRepository reads tenants created by the provisioning system.
// This service never writes tenants.
type TenantRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
}
