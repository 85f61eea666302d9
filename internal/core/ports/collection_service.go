package ports

import (
	"context"

	"github.com/appforge/data-platform/internal/core/domain"
)

// UpdateSchemaInput replaces a collection's schema and, when Settings is
// non-nil, its access settings. Existing items are not revalidated or
// migrated; they are checked against the new schema at their next write.
type UpdateSchemaInput struct {
	TenantID string
	Name     string
	Schema   []domain.FieldDef
	Settings *domain.CollectionSettings
}

// CollectionService is the tenant-scoped collection registry.
type CollectionService interface {
	// GetOrCreate resolves a collection by name, lazily provisioning it
	// with an empty schema and default settings on first reference.
	// Idempotent under concurrent first access.
	GetOrCreate(ctx context.Context, tenantID, name string) (*domain.Collection, error)
	UpdateSchema(ctx context.Context, in UpdateSchemaInput) (*domain.Collection, error)
	// List returns the tenant's collections in creation order.
	List(ctx context.Context, tenantID string) ([]*domain.Collection, error)
}
